// internal/browser/yaml.go
package browser

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// profileFile es el formato en disco de los perfiles extra.
type profileFile struct {
	Profiles []ProfileSpec `yaml:"profiles"`
}

// LoadProfiles lee perfiles extra desde un YAML.
func LoadProfiles(path string) ([]ProfileSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	specs, err := ParseProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	return specs, nil
}

// ParseProfiles decodifica un documento `profiles:`. Rechaza campos desconocidos:
// una errata en una extensión o cabecera no pasa desapercibida.
func ParseProfiles(data []byte) ([]ProfileSpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f profileFile
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("no profiles defined")
	}
	for i, s := range f.Profiles {
		if _, err := NewProfile(s); err != nil {
			return nil, fmt.Errorf("profile #%d: %w", i+1, err)
		}
	}
	return f.Profiles, nil
}
