// Package catalog exposes the static list of plugin types the gateway
// supports. The catalog is reference data for operators; it does not
// constrain which plugin names may be stored.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// PluginType describes one configurable plugin and an example of its
// configuration shape.
type PluginType struct {
	Name         string         `yaml:"name" json:"name"`
	Description  string         `yaml:"description" json:"description"`
	ConfigSchema map[string]any `yaml:"config_schema" json:"config_schema"`
}

var (
	loadOnce    sync.Once
	loadedTypes map[string][]PluginType
	loadErr     error
)

// Available returns the supported plugin types grouped by category.
func Available() (map[string][]PluginType, error) {
	loadOnce.Do(func() {
		var out map[string][]PluginType
		if errUnmarshal := yaml.Unmarshal(catalogYAML, &out); errUnmarshal != nil {
			loadErr = fmt.Errorf("catalog: parse embedded catalog: %w", errUnmarshal)
			return
		}
		loadedTypes = out
	})
	return loadedTypes, loadErr
}
