package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geosample-cli/internal/model"
)

// WriteCSV writes the selection with the same columns the default catalog
// layout uses, so a selection can be fed back in as a catalog.
func WriteCSV(w io.Writer, sel model.Selection) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "city", "lat", "lng", "population"}); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, c := range sel {
		row := []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			strconv.FormatFloat(c.Lat, 'f', -1, 64),
			strconv.FormatFloat(c.Lng, 'f', -1, 64),
			strconv.FormatInt(c.Population, 10),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
