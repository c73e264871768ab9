package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("AVIVA_SET", "on")
	t.Setenv("AVIVA_EMPTY", "")

	tests := map[string]string{
		"${AVIVA_SET}":                    "on",
		"$AVIVA_SET":                      "on",
		"${AVIVA_SET:-off}":               "on",
		"${AVIVA_EMPTY:-off}":             "off",
		"${AVIVA_MISSING:-3000}":          "3000",
		"${AVIVA_MISSING}":                "",
		"http://h:${AVIVA_MISSING:-80}/x": "http://h:80/x",
	}
	for in, want := range tests {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	t.Setenv("AVIVA_TEST_PORT", "")
	path := writeConfig(t, "port: ${AVIVA_TEST_PORT:-3000}\nname: aviva\n")

	cfg := sample{Dir: "./data"}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3000 || cfg.Name != "aviva" || cfg.Dir != "./data" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, "name: aviva\n")

	var cfg sample
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}
}
