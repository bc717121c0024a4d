package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geosample-cli/internal/model"
)

var testSelection = model.Selection{
	{ID: 1, Name: "Tokyo", Lat: 35.6897, Lng: 139.6922, Population: 37977000},
	{ID: 6, Name: "Paris", Lat: 48.8566, Lng: 2.3522, Population: 11020000},
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, testSelection))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "1", fc.Features[0].ID)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	// GeoJSON order is lng, lat.
	assert.InDelta(t, 139.6922, fc.Features[0].Geometry.Coordinates[0], 1e-9)
	assert.InDelta(t, 35.6897, fc.Features[0].Geometry.Coordinates[1], 1e-9)
	assert.Equal(t, "Tokyo", fc.Features[0].Properties["name"])
}

func TestWriteCSV_RoundTripHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSelection))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,city,lat,lng,population", lines[0])
	assert.Equal(t, "1,Tokyo,35.6897,139.6922,37977000", lines[1])
}

func TestWriteManifest(t *testing.T) {
	var buf bytes.Buffer
	m := Manifest{
		RunID:     "abc",
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Params:    model.RunParams{NCities: 2, MinDistanceKm: 500},
		Selected:  2,
		ClosestKm: 9715.3,
		Warnings:  []string{"something degraded"},
		CityIDs:   []int64{1, 6},
	}
	require.NoError(t, WriteManifest(&buf, m))

	var got Manifest
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, m.Params.NCities, got.Params.NCities)
	assert.Equal(t, m.CityIDs, got.CityIDs)
}
