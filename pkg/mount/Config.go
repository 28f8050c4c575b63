// =================================================================
//
// Work of the U.S. Department of Defense, Defense Digital Service.
// Released as open source under the MIT License.  See LICENSE file.
//
// =================================================================

package mount

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Config is a mount as written in a mounts file.
type Config struct {
	Target string `json:"target" toml:"target" yaml:"target"`
	Source string `json:"source" toml:"source" yaml:"source"`
}

// File is the content of a mounts file.
type File struct {
	Mounts []Config `json:"mounts" toml:"mounts" yaml:"mounts"`
}

// ParsePairs parses mounts in the format of a json array of arrays [[target, source],...].
func ParsePairs(str string) ([]Config, error) {
	if len(str) == 0 {
		return []Config{}, nil
	}
	pairs := [][2]string{}
	if err := json.Unmarshal([]byte(str), &pairs); err != nil {
		return nil, fmt.Errorf("error unmarshaling mounts: %w", err)
	}
	configs := make([]Config, 0, len(pairs))
	for _, pair := range pairs {
		configs = append(configs, Config{Target: pair[0], Source: pair[1]})
	}
	return configs, nil
}

// FormatOf returns the format of a mounts file from its extension.
func FormatOf(p string) (string, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yml", ".yaml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format for mounts file %q, expecting .json, .toml, .yml, or .yaml", p)
}

// ParseConfig parses the mounts listed in data.
func ParseConfig(data []byte, format string) ([]Config, error) {
	f := File{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("error unmarshaling json: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("error unmarshaling toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("error unmarshaling yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	for i, c := range f.Mounts {
		if len(c.Target) == 0 {
			return nil, fmt.Errorf("mount %d is missing a target", i)
		}
	}
	return f.Mounts, nil
}

// ReadConfigFile reads the mounts listed in the file at p.
func ReadConfigFile(p string) ([]Config, error) {
	format, err := FormatOf(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("error reading mounts file %q: %w", p, err)
	}
	configs, err := ParseConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("error parsing mounts file %q: %w", p, err)
	}
	return configs, nil
}
