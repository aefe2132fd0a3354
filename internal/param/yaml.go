package param

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type paramFile struct {
	Parameters []paramDef `yaml:"parameters"`
}

type paramDef struct {
	Label      string   `yaml:"label"`
	Key        string   `yaml:"key"`
	Keys       []string `yaml:"keys"`
	Dtype      string   `yaml:"dtype"`
	Units      string   `yaml:"units"`
	Coordinate string   `yaml:"coordinate"`
	Period     string   `yaml:"period"`
	Computed   string   `yaml:"computed"`
}

var builtins = map[string]func() Computed{
	"datetime":       Datetime,
	"wmo_station_id": WMOStationID,
	"wigos_id":       WIGOSID,
	"position":       Position,
	"crs":            CRS,
}

// LoadYAML registers the parameters defined in a document of the form
//
//	parameters:
//	  - label: tp
//	    keys: [totalPrecipitationOrTotalWaterEquivalent, totalPrecipitationPast24Hours]
//	    dtype: float
//	    units: mm
//	    period: timePeriod
//	  - label: station
//	    computed: wmo_station_id
//
// Several keys form a fallback chain. Definitions replace existing labels.
// Nothing is registered when any definition is invalid.
func (r *Registry) LoadYAML(src io.Reader) error {
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)
	var f paramFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode parameters: %w", err)
	}
	built := make([]Accessor, len(f.Parameters))
	for i, d := range f.Parameters {
		a, err := d.accessor()
		if err != nil {
			return fmt.Errorf("parameter %d (%q): %w", i, d.Label, err)
		}
		built[i] = a
	}
	for i, d := range f.Parameters {
		r.Register(d.Label, built[i])
	}
	return nil
}

// LoadYAMLFile reads parameter definitions from path.
func (r *Registry) LoadYAMLFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open parameters file: %w", err)
	}
	defer fh.Close()
	return r.LoadYAML(fh)
}

func (d paramDef) accessor() (Accessor, error) {
	if d.Label == "" {
		return nil, errors.New("missing label")
	}
	if d.Computed != "" {
		mk, ok := builtins[d.Computed]
		if !ok {
			return nil, fmt.Errorf("unknown computed parameter %q", d.Computed)
		}
		if d.Key != "" || len(d.Keys) > 0 {
			return nil, errors.New("computed parameters take no keys")
		}
		c := mk()
		c.Label = d.Label
		return c, nil
	}
	keys := d.Keys
	if d.Key != "" {
		keys = append([]string{d.Key}, keys...)
	}
	if len(keys) == 0 {
		return nil, errors.New("missing key")
	}
	dt, err := ParseDtype(d.Dtype)
	if err != nil {
		return nil, err
	}
	chain := make([]Accessor, len(keys))
	for i, k := range keys {
		s := Simple{Key: k, Label: d.Label, Dtype: dt, Units: d.Units}
		if d.Coordinate == "" && d.Period == "" {
			chain[i] = s
			continue
		}
		chain[i] = Qualified{Inner: s, CoordKey: d.Coordinate, PeriodKey: d.Period}
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return Fallback{Label: d.Label, Accessors: chain}, nil
}
