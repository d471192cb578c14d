package config

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"VEKTA_PATH", "VEKTA_DIMENSIONS", "VEKTA_LABEL_SIZE", "VEKTA_TOP_K",
		"VEKTA_SEARCH_METHOD", "VEKTA_SIMILARITY_THRESHOLD", "VEKTA_VERBOSE",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Error("expected ConfigError when path/dimensions/label_size are unset")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	os.Setenv("VEKTA_PATH", dir)
	os.Setenv("VEKTA_DIMENSIONS", "8")
	os.Setenv("VEKTA_LABEL_SIZE", "32")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Path != dir {
		t.Errorf("path = %q, want %q", cfg.Path, dir)
	}
	if cfg.Dimensions != 8 {
		t.Errorf("dimensions = %d, want 8", cfg.Dimensions)
	}
	if cfg.TopK != 10 {
		t.Errorf("top_k default = %d, want 10", cfg.TopK)
	}
	if cfg.SearchMethod != "exact" {
		t.Errorf("search_method default = %q, want exact", cfg.SearchMethod)
	}
}

func TestLoadRejectsBadDimensions(t *testing.T) {
	clearEnv(t)
	os.Setenv("VEKTA_PATH", t.TempDir())
	os.Setenv("VEKTA_DIMENSIONS", "7")
	os.Setenv("VEKTA_LABEL_SIZE", "32")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Error("expected error for dimensions not a multiple of 8")
	}
}

func TestPrint(t *testing.T) {
	cfg := Config{Path: "/tmp/x", Dimensions: 8, LabelSize: 32, TopK: 10, SearchMethod: "exact"}
	var sb strings.Builder
	cfg.Print(func(format string, args ...interface{}) {
		sb.WriteString(fmt.Sprintf(format, args...))
	})
	out := sb.String()
	if !strings.Contains(out, "path=/tmp/x") {
		t.Errorf("Print output missing path line: %q", out)
	}
}
