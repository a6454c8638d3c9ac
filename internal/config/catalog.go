package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerEntry is one user-defined tool server in the YAML catalog.
//
// Env values are passed to the spawned process verbatim. RequiredEnv names
// are read from the parent environment at connect time; a missing one aborts
// that server's connection attempt before anything is spawned.
//
// Description, when set, is the one-line capability summary offered to the
// server selector. Entries without a description are still connectable but
// are left out of the selection prompt.
type ServerEntry struct {
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args"`
	Env         map[string]string `yaml:"env,omitempty"`
	RequiredEnv []string          `yaml:"requiredEnv,omitempty"`
	Description string            `yaml:"description,omitempty"`
}

// Catalog is the parsed servers.yaml file.
type Catalog struct {
	Servers map[string]ServerEntry `yaml:"servers"`
}

// LoadCatalog reads and parses the tool-server catalog at path.
// If path is empty, CatalogPath() is used. A missing file yields an empty
// catalog; a malformed file is an error, since a half-parsed catalog could
// silently drop servers the user expects.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		path = CatalogPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{Servers: map[string]ServerEntry{}}, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if cat.Servers == nil {
		cat.Servers = map[string]ServerEntry{}
	}
	return &cat, nil
}
