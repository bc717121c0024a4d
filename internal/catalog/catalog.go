// Package catalog loads candidate city records from CSV, XLSX, and
// shapefile sources, validates their schema, and applies the population
// floor before records reach the selection pipeline.
package catalog

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geosample-cli/internal/geodist"
	"github.com/sells-group/geosample-cli/internal/model"
)

// ErrSchema marks a catalog whose header lacks the required coordinate or
// population fields. It is the only fatal load-time condition; individual
// bad rows are skipped, not fatal.
var ErrSchema = eris.New("catalog: required columns missing")

// Columns maps catalog header names to record fields. Lat, Lng, and
// Population are required; ID and Name are optional (IDs default to the row
// ordinal).
type Columns struct {
	ID         string `yaml:"id" mapstructure:"id"`
	Name       string `yaml:"name" mapstructure:"name"`
	Lat        string `yaml:"lat" mapstructure:"lat"`
	Lng        string `yaml:"lng" mapstructure:"lng"`
	Population string `yaml:"population" mapstructure:"population"`
}

// DefaultColumns matches the simplemaps world-cities layout.
func DefaultColumns() Columns {
	return Columns{ID: "id", Name: "city", Lat: "lat", Lng: "lng", Population: "population"}
}

// Catalog is an ordered pool of candidate records with valid coordinates.
type Catalog struct {
	Cities  []model.City
	Skipped int // rows dropped for missing or out-of-range values
}

// columnIndex resolves header positions for the configured columns.
type columnIndex struct {
	id, name, lat, lng, pop int
}

func resolveHeader(header []string, cols Columns) (columnIndex, error) {
	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	idx := columnIndex{
		id:   find(cols.ID),
		name: find(cols.Name),
		lat:  find(cols.Lat),
		lng:  find(cols.Lng),
		pop:  find(cols.Population),
	}

	var missing []string
	if idx.lat < 0 {
		missing = append(missing, cols.Lat)
	}
	if idx.lng < 0 {
		missing = append(missing, cols.Lng)
	}
	if idx.pop < 0 {
		missing = append(missing, cols.Population)
	}
	if len(missing) > 0 {
		return idx, eris.Wrapf(ErrSchema, "header lacks %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// appendRow parses one record and appends it to the catalog. Rows with
// unparsable or out-of-range coordinates, or negative population, are
// counted in Skipped and dropped.
func (c *Catalog) appendRow(row []string, idx columnIndex, ordinal int) {
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	lat, latErr := strconv.ParseFloat(get(idx.lat), 64)
	lng, lngErr := strconv.ParseFloat(get(idx.lng), 64)
	if latErr != nil || lngErr != nil || !geodist.ValidCoords(lat, lng) {
		c.skip(ordinal, "invalid coordinates")
		return
	}

	pop, popErr := strconv.ParseInt(get(idx.pop), 10, 64)
	if popErr != nil {
		// Some catalogs publish population as a float.
		f, ferr := strconv.ParseFloat(get(idx.pop), 64)
		if ferr != nil {
			c.skip(ordinal, "unparsable population")
			return
		}
		pop = int64(f)
	}
	if pop < 0 {
		c.skip(ordinal, "negative population")
		return
	}

	id := int64(ordinal)
	if raw := get(idx.id); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			id = parsed
		}
	}

	c.Cities = append(c.Cities, model.City{
		ID:         id,
		Name:       get(idx.name),
		Lat:        lat,
		Lng:        lng,
		Population: pop,
	})
}

func (c *Catalog) skip(ordinal int, reason string) {
	c.Skipped++
	zap.L().Debug("catalog row skipped", zap.Int("row", ordinal), zap.String("reason", reason))
}

// FilterPopulation returns the cities at or above the population floor,
// preserving order. A floor of zero returns everything.
func (c *Catalog) FilterPopulation(min int64) []model.City {
	if min <= 0 {
		return c.Cities
	}
	out := make([]model.City, 0, len(c.Cities))
	for _, city := range c.Cities {
		if city.Population >= min {
			out = append(out, city)
		}
	}
	zap.L().Info("population floor applied",
		zap.Int64("population_min", min),
		zap.Int("before", len(c.Cities)),
		zap.Int("after", len(out)),
	)
	return out
}

// DuplicateNames groups city IDs by normalized name and returns only the
// groups with more than one member. Used by catalog validation to flag
// likely duplicate records.
func (c *Catalog) DuplicateNames() map[string][]int64 {
	byName := make(map[string][]int64)
	for _, city := range c.Cities {
		key := NormalizeName(city.Name)
		if key == "" {
			continue
		}
		byName[key] = append(byName[key], city.ID)
	}
	for key, ids := range byName {
		if len(ids) < 2 {
			delete(byName, key)
		}
	}
	return byName
}
