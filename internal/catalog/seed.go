package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// IPChannel is one statically configured stream.
type IPChannel struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoadIPSeed reads a YAML list of IP channels. Entries without a URL are
// rejected; a missing name defaults to the URL.
func LoadIPSeed(path string) ([]IPChannel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ip channel seed: %w", err)
	}
	var seeds []IPChannel
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse ip channel seed: %w", err)
	}
	for i := range seeds {
		seeds[i].URL = strings.TrimSpace(seeds[i].URL)
		if seeds[i].URL == "" {
			return nil, fmt.Errorf("ip channel seed entry %d: url is required", i)
		}
		if strings.TrimSpace(seeds[i].Name) == "" {
			seeds[i].Name = seeds[i].URL
		}
	}
	return seeds, nil
}
