package catalog

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geosample-cli/internal/geodist"
	"github.com/sells-group/geosample-cli/internal/model"
)

// ShapefileOptions names the DBF attribute fields carrying the name and
// population of each point feature.
type ShapefileOptions struct {
	NameField       string `yaml:"name_field" mapstructure:"name_field"`
	PopulationField string `yaml:"population_field" mapstructure:"population_field"`
}

// DefaultShapefileOptions matches Natural Earth populated-places layers.
func DefaultShapefileOptions() ShapefileOptions {
	return ShapefileOptions{NameField: "NAME", PopulationField: "POP_MAX"}
}

// LoadShapefile reads a point shapefile as a city catalog. Coordinates come
// from the geometry, name and population from DBF attributes. A missing
// population field is a schema error, mirroring the tabular loaders.
func LoadShapefile(path string, opts ShapefileOptions) (*Catalog, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, opts.NameField)
	popIdx := fieldIndex(reader, opts.PopulationField)
	if popIdx < 0 {
		return nil, eris.Wrapf(ErrSchema, "shapefile lacks attribute %s", opts.PopulationField)
	}

	cat := &Catalog{}
	ordinal := 0
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			cat.Skipped++
			continue
		}
		ordinal++

		lat, lng := pt.Y, pt.X
		if !geodist.ValidCoords(lat, lng) {
			cat.Skipped++
			continue
		}

		pop, err := strconv.ParseFloat(strings.TrimSpace(reader.Attribute(popIdx)), 64)
		if err != nil || pop < 0 {
			cat.Skipped++
			continue
		}

		name := ""
		if nameIdx >= 0 {
			name = strings.TrimSpace(reader.Attribute(nameIdx))
		}

		cat.Cities = append(cat.Cities, model.City{
			ID:         int64(ordinal),
			Name:       name,
			Lat:        lat,
			Lng:        lng,
			Population: int64(pop),
		})
	}

	zap.L().Info("catalog loaded",
		zap.String("format", "shapefile"),
		zap.Int("cities", len(cat.Cities)),
		zap.Int("skipped", cat.Skipped),
	)
	return cat, nil
}

// fieldIndex returns the index of a named DBF field, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	if name == "" {
		return -1
	}
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
