package catalog

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestShapefile(t *testing.T, withPop bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "places.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)

	fields := []shp.Field{shp.StringField("NAME", 25)}
	if withPop {
		fields = append(fields, shp.NumberField("POP_MAX", 12))
	}
	require.NoError(t, w.SetFields(fields))

	cities := []struct {
		name     string
		lng, lat float64
		pop      int
	}{
		{"Tokyo", 139.6922, 35.6897, 37977000},
		{"Paris", 2.3522, 48.8566, 11020000},
	}
	for _, c := range cities {
		n := w.Write(&shp.Point{X: c.lng, Y: c.lat})
		require.NoError(t, w.WriteAttribute(int(n), 0, c.name))
		if withPop {
			require.NoError(t, w.WriteAttribute(int(n), 1, c.pop))
		}
	}
	w.Close()
	return path
}

func TestLoadShapefile_Valid(t *testing.T) {
	path := createTestShapefile(t, true)

	cat, err := LoadShapefile(path, DefaultShapefileOptions())
	require.NoError(t, err)

	require.Len(t, cat.Cities, 2)
	assert.Equal(t, "Tokyo", cat.Cities[0].Name)
	assert.Equal(t, int64(37977000), cat.Cities[0].Population)
	assert.InDelta(t, 35.6897, cat.Cities[0].Lat, 1e-4)
	assert.InDelta(t, 139.6922, cat.Cities[0].Lng, 1e-4)
}

func TestLoadShapefile_MissingPopulationField(t *testing.T) {
	path := createTestShapefile(t, false)

	_, err := LoadShapefile(path, DefaultShapefileOptions())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrSchema))
}
