package neotype_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rlch/neotype"
)

func TestFindConfig_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "services", "zoo")

	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(root, ".neotype.yaml")
	if err := os.WriteFile(path, []byte("skip_setup: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	found, err := neotype.FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}

	if found != path {
		t.Errorf("FindConfig = %q, want %q", found, path)
	}
}

func TestFindConfig_NotFound(t *testing.T) {
	t.Parallel()

	_, err := neotype.FindConfig(t.TempDir())
	if !errors.Is(err, neotype.ErrConfigNotFound) {
		t.Errorf("FindConfig in empty tree: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	content := `
neo4j:
  uri: neo4j://localhost:7687
  username: neo4j
  password: secret
  database: zoo
skip_setup: true
schema: schema.yaml
`
	if err := os.WriteFile(filepath.Join(dir, ".neotype.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := neotype.LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Neo4j == nil {
		t.Fatal("Neo4j section missing")
	}

	if cfg.Neo4j.URI != "neo4j://localhost:7687" {
		t.Errorf("URI = %q", cfg.Neo4j.URI)
	}

	if cfg.Neo4j.Database != "zoo" {
		t.Errorf("Database = %q", cfg.Neo4j.Database)
	}

	if !cfg.SkipSetup {
		t.Error("SkipSetup not parsed")
	}

	if cfg.Schema != "schema.yaml" {
		t.Errorf("Schema = %q", cfg.Schema)
	}
}

func TestLoadConfigFile_BadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".neotype.yaml")
	if err := os.WriteFile(path, []byte("neo4j: [not: a mapping\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := neotype.LoadConfigFile(path); err == nil {
		t.Error("malformed yaml parsed without error")
	}
}
