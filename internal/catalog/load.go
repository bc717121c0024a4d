package catalog

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Load reads a catalog from path, dispatching on format ("csv", "xlsx",
// "shp"). An empty format is inferred from the file extension.
func Load(ctx context.Context, path, format string, cols Columns, shpOpts ShapefileOptions) (*Catalog, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	switch format {
	case "csv":
		return LoadCSVFile(ctx, path, cols)
	case "xlsx":
		return LoadXLSX(ctx, path, cols)
	case "shp":
		return LoadShapefile(path, shpOpts)
	default:
		return nil, eris.Errorf("catalog: unsupported format %q", format)
	}
}
