package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, resolved, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != missing {
		t.Fatalf("resolved path = %q, want %q", resolved, missing)
	}
	if cfg.Progress.PollInterval != defaultProgressPoll {
		t.Fatalf("poll_interval = %d, want default %d", cfg.Progress.PollInterval, defaultProgressPoll)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("format = %q, want console", cfg.Logging.Format)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data_dir not absolute: %q", cfg.Paths.DataDir)
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[consolidation]
source_priority = [" Amazon ", "shopify", ""]

[logging]
format = "JSON"
level = " Debug "
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	want := []string{"amazon", "shopify"}
	if len(cfg.Consolidation.SourcePriority) != len(want) {
		t.Fatalf("source_priority = %v, want %v", cfg.Consolidation.SourcePriority, want)
	}
	for i, source := range want {
		if cfg.Consolidation.SourcePriority[i] != source {
			t.Fatalf("source_priority[%d] = %q, want %q", i, cfg.Consolidation.SourcePriority[i], source)
		}
	}
	if got := cfg.DatabasePath(); got != filepath.Join(dir, "data", "catalog.db") {
		t.Fatalf("database path = %q", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"badFormat", "[logging]\nformat = \"yaml\"\n", "logging.format"},
		{"badLevel", "[logging]\nlevel = \"trace\"\n", "logging.level"},
		{"zeroPoll", "[progress]\npoll_interval = 0\n", "progress.poll_interval"},
		{"confidenceRange", "[consolidation]\nmin_confidence = 1.5\n", "consolidation.min_confidence"},
		{"duplicateSource", "[consolidation]\nsource_priority = [\"amazon\", \"amazon\"]\n", "source_priority"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}

func TestExpandPathResolvesHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := expandPath("~/x")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if got != filepath.Join(home, "x") {
		t.Fatalf("expandPath = %q, want %q", got, filepath.Join(home, "x"))
	}
}
