package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML document of VARIABLE: value pairs and exports every
// variable that is not already set to a non-empty value in the environment
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("[config LoadFile] read %s: %w", path, err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("[config LoadFile] parse %s: %w", path, err)
	}

	for k, v := range values {
		if current, exists := os.LookupEnv(k); exists && current != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("[config LoadFile] set %s: %w", k, err)
		}
	}
	return nil
}
