package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEdgeDBConfig_Defaults(t *testing.T) {
	t.Setenv("SONAMUTE_EDGEDB_USER", "sona")
	t.Setenv("SONAMUTE_EDGEDB_PASS", "mute")
	os.Unsetenv("SONAMUTE_EDGEDB_HOST")
	os.Unsetenv("SONAMUTE_EDGEDB_PORT")

	cfg, err := LoadEdgeDBConfig()
	if err != nil {
		t.Fatalf("LoadEdgeDBConfig: %v", err)
	}
	if cfg.Host != "localhost" {
		t.Errorf("Host = %q, want localhost", cfg.Host)
	}
	if cfg.Port != 5656 {
		t.Errorf("Port = %d, want 5656", cfg.Port)
	}
}

func TestLoadEdgeDBConfig_MissingRequired(t *testing.T) {
	os.Unsetenv("SONAMUTE_EDGEDB_USER")
	os.Unsetenv("SONAMUTE_EDGEDB_PASS")

	if _, err := LoadEdgeDBConfig(); err == nil {
		t.Fatal("expected error for missing required env vars")
	}
}

func TestLoadSourcesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yml")
	doc := `
- source: discord
  root: /data/discord
  to_db: true
- source: reddit
  root: /data/reddit
  to_db: false
  output: ./reddit.json
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	actions, err := LoadSourcesFile(path)
	if err != nil {
		t.Fatalf("LoadSourcesFile: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("len(actions) = %d, want 2", len(actions))
	}
	if actions[0].Source != "discord" || !actions[0].ToDB {
		t.Errorf("actions[0] = %+v", actions[0])
	}
	if actions[1].Output != "./reddit.json" {
		t.Errorf("actions[1].Output = %q", actions[1].Output)
	}
}

func TestLoadSourcesFile_MissingDestination(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yml")
	doc := `
- source: discord
  root: /data/discord
  to_db: false
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSourcesFile(path); err == nil {
		t.Fatal("expected error when to_db is false and output is empty")
	}
}
