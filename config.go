package neotype

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .neotype.yaml configuration file.
type Config struct {
	// Neo4j holds the store connection settings.
	Neo4j *Neo4jConfig `yaml:"neo4j,omitempty"`

	// SkipSetup makes PersistSchema mark types as provisioned without
	// issuing schema writes: a fast start against a store whose schema is
	// known to exist.
	SkipSetup bool `yaml:"skip_setup,omitempty"`

	// Schema is an optional path to a yaml type catalog (see LoadSchemaFile),
	// relative to the config file.
	Schema string `yaml:"schema,omitempty"`
}

// Neo4jConfig holds Neo4j connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".neotype.yaml", ".neotype.yml", "neotype.yaml", "neotype.yml"}

// LoadConfig finds and loads the nearest .neotype.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
