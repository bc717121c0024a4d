package catalog

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadCSV reads a city catalog from r. The first row is the header and must
// contain the configured lat, lng, and population columns; otherwise
// ErrSchema is returned before any rows are parsed.
func LoadCSV(ctx context.Context, r io.Reader, cols Columns) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Wrap(ErrSchema, "empty catalog")
	}
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read header")
	}

	idx, err := resolveHeader(header, cols)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{}
	ordinal := 0
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "catalog: csv load cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read row")
		}

		ordinal++
		cat.appendRow(row, idx, ordinal)
	}

	zap.L().Info("catalog loaded",
		zap.String("format", "csv"),
		zap.Int("cities", len(cat.Cities)),
		zap.Int("skipped", cat.Skipped),
	)
	return cat, nil
}

// LoadCSVFile reads a city catalog from a CSV file on disk.
func LoadCSVFile(ctx context.Context, path string, cols Columns) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return LoadCSV(ctx, f, cols)
}
