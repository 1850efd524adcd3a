package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "story_state.db" {
		t.Errorf("db path: got %q", cfg.DBPath)
	}
	if cfg.Pipeline.MaxMemoryMatches != 10 {
		t.Errorf("max memory matches: got %d", cfg.Pipeline.MaxMemoryMatches)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.yaml")
	data := `
db_path: from_file.db
provider:
  primary_model: gemini-2.0-flash
scheduler:
  task_timeout_seconds: 30
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("STORY_DB", "from_env.db")
	t.Setenv("STORY_TASK_TIMEOUT_SECONDS", "45")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "from_env.db" {
		t.Errorf("env should win over file: got %q", cfg.DBPath)
	}
	if cfg.Provider.PrimaryModel != "gemini-2.0-flash" {
		t.Errorf("file value lost: got %q", cfg.Provider.PrimaryModel)
	}
	if cfg.Scheduler.TaskTimeoutSeconds != 45 {
		t.Errorf("timeout: got %d", cfg.Scheduler.TaskTimeoutSeconds)
	}
	// Untouched fields keep defaults.
	if cfg.Provider.AdvancedModel != "gemini-2.5-pro" {
		t.Errorf("default lost: got %q", cfg.Provider.AdvancedModel)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("db_path: [unclosed"), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadBadTimeoutEnv(t *testing.T) {
	t.Setenv("STORY_TASK_TIMEOUT_SECONDS", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric timeout")
	}
}
