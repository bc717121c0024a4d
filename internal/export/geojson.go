// Package export writes selections to interchange formats.
package export

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geosample-cli/internal/model"
)

// WriteGeoJSON writes the selection as a GeoJSON FeatureCollection of
// points, one feature per city, with name and population as properties.
func WriteGeoJSON(w io.Writer, sel model.Selection) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(sel))}
	for _, c := range sel {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.FormatInt(c.ID, 10),
			Geometry: geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}),
			Properties: map[string]any{
				"name":       c.Name,
				"population": c.Population,
			},
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&fc); err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	return nil
}
