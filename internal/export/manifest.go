package export

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geosample-cli/internal/model"
)

// Manifest is a YAML summary of one selection run, suitable for checking
// into a fixtures repo next to the exported selection itself.
type Manifest struct {
	RunID     string          `yaml:"run_id,omitempty"`
	CreatedAt time.Time       `yaml:"created_at"`
	Params    model.RunParams `yaml:"params"`
	Selected  int             `yaml:"selected"`
	ClosestKm float64         `yaml:"closest_km"`
	Warnings  []string        `yaml:"warnings,omitempty"`
	CityIDs   []int64         `yaml:"city_ids"`
}

// WriteManifest writes the run manifest as YAML.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return eris.Wrap(err, "export: encode manifest")
	}
	return eris.Wrap(enc.Close(), "export: close manifest encoder")
}
