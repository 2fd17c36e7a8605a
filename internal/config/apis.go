package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadAPIsFile reads additional API registrations from a standalone YAML
// file of the form:
//
//	apis:
//	  hunter:
//	    calls_per_second: 2
//	    max_concurrent: 1
//
// Entries supplement the main config's apis map; a file entry for an
// already-configured name replaces it.
func LoadAPIsFile(path string) (map[string]APIConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read apis file: %w", err)
	}

	var doc struct {
		APIs map[string]APIConfig `yaml:"apis"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse apis file %s: %w", path, err)
	}

	for name, api := range doc.APIs {
		if api.CallsPerSecond <= 0 {
			return nil, fmt.Errorf("apis file %s: api %q: calls_per_second must be positive", path, name)
		}
		if api.MaxConcurrent <= 0 {
			return nil, fmt.Errorf("apis file %s: api %q: max_concurrent must be positive", path, name)
		}
	}

	return doc.APIs, nil
}
