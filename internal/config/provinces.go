package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed provinces.yaml
var defaultProvinces []byte

// Province names the files each source adapter reads for one builtin
// province.
type Province struct {
	Key               string `yaml:"key"`
	NameTH            string `yaml:"name_th"`
	Bundle            string `yaml:"bundle"`
	UserDir           string `yaml:"user_dir"`
	AggregatedJSON    string `yaml:"aggregated_json"`
	AggregatedGeoJSON string `yaml:"aggregated_geojson"`
}

// Catalog is the ordered list of builtin provinces.
type Catalog struct {
	Provinces []Province `yaml:"provinces"`
}

// LoadCatalog reads the province catalog from path, or the embedded default
// when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	data := defaultProvinces
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Catalog{}, fmt.Errorf("read provinces file: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse provinces: %w", err)
	}
	seen := map[string]bool{}
	for i, p := range c.Provinces {
		if p.Key == "" {
			return Catalog{}, fmt.Errorf("province %d: key is required", i)
		}
		if seen[p.Key] {
			return Catalog{}, fmt.Errorf("province %q listed twice", p.Key)
		}
		seen[p.Key] = true
	}
	return c, nil
}

// Lookup finds a province by key.
func (c Catalog) Lookup(key string) (Province, bool) {
	for _, p := range c.Provinces {
		if p.Key == key {
			return p, true
		}
	}
	return Province{}, false
}

// Keys returns province keys in catalog order.
func (c Catalog) Keys() []string {
	out := make([]string, 0, len(c.Provinces))
	for _, p := range c.Provinces {
		out = append(out, p.Key)
	}
	return out
}
