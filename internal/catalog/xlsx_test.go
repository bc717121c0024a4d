package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("cities")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "cities.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadXLSX_Valid(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"id", "city", "lat", "lng", "population"},
		{"1", "Tokyo", "35.6897", "139.6922", "37977000"},
		{"2", "Nowhere", "", "10.0", "5"},
		{"3", "Paris", "48.8566", "2.3522", "11020000"},
	})

	cat, err := LoadXLSX(context.Background(), path, DefaultColumns())
	require.NoError(t, err)

	assert.Len(t, cat.Cities, 2)
	assert.Equal(t, 1, cat.Skipped)
	assert.Equal(t, "Tokyo", cat.Cities[0].Name)
	assert.Equal(t, "Paris", cat.Cities[1].Name)
}

func TestLoadXLSX_SchemaError(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"id", "city", "population"},
		{"1", "Tokyo", "37977000"},
	})

	_, err := LoadXLSX(context.Background(), path, DefaultColumns())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrSchema))
}
