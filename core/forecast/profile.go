package forecast

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is a forecast file used by offline planning runs.
type Profile struct {
	Price              []float64 `json:"predicted_price" yaml:"predicted_price"`
	Load               []float64 `json:"predicted_load" yaml:"predicted_load"`
	UncontrollableLoad []float64 `json:"predicted_uncontrollable_load" yaml:"predicted_uncontrollable_load"`
}

// Raw converts the profile into unaligned forecast vectors.
func (p Profile) Raw() Raw {
	return Raw{Price: p.Price, Load: p.Load, UncontrollableLoad: p.UncontrollableLoad}
}

// LoadProfile reads a Profile from a JSON or YAML file.
func LoadProfile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return Profile{}, err
	}
	defer f.Close()
	return DecodeProfile(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeProfile reads a Profile from r in the given format.
func DecodeProfile(r io.Reader, format string) (Profile, error) {
	var p Profile
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return p, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&p); err != nil {
			return p, err
		}
	default:
		return p, fmt.Errorf("unsupported format: %s", format)
	}
	return p, nil
}
