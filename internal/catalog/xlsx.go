package catalog

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// LoadXLSX reads a city catalog from the first sheet of an XLSX workbook.
// The first row is the header, validated the same way as CSV.
func LoadXLSX(ctx context.Context, path string, cols Columns) (*Catalog, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrap(ErrSchema, "workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Wrap(ErrSchema, "empty catalog")
	}

	idx, err := resolveHeader(rowToStrings(sheet.Rows[0]), cols)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{}
	for i, row := range sheet.Rows[1:] {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "catalog: xlsx load cancelled")
		}
		cat.appendRow(rowToStrings(row), idx, i+1)
	}

	zap.L().Info("catalog loaded",
		zap.String("format", "xlsx"),
		zap.Int("cities", len(cat.Cities)),
		zap.Int("skipped", cat.Skipped),
	)
	return cat, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
