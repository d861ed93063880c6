package cmd

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Layout.Provider != "tabula" {
		t.Fatalf("unexpected layout provider %q", cfg.Layout.Provider)
	}
	if cfg.Layout.Docling.Timeout != 120*time.Second {
		t.Fatalf("unexpected docling timeout %s", cfg.Layout.Docling.Timeout)
	}
	if !cfg.OCR.Enabled || cfg.OCR.Scale != 3 {
		t.Fatalf("unexpected ocr config %+v", cfg.OCR)
	}
	if len(cfg.OCR.Languages) != 1 || cfg.OCR.Languages[0] != "eng" {
		t.Fatalf("unexpected ocr languages %v", cfg.OCR.Languages)
	}
	if cfg.NER.Gemini.MaxRetries != 3 {
		t.Fatalf("unexpected max retries %d", cfg.NER.Gemini.MaxRetries)
	}
	if cfg.Server.Addr != ":8000" || cfg.Server.MaxUploadMB != 20 {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache must be disabled by default")
	}
}

func TestLoadConfigFillsMissingSections(t *testing.T) {
	cfg, err := loadConfig(viper.New())
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Layout == nil || cfg.Layout.Docling == nil || cfg.OCR == nil || cfg.NER == nil ||
		cfg.NER.Gemini == nil || cfg.Parser == nil || cfg.Server == nil || cfg.Cache == nil {
		t.Fatalf("expected every section to be initialized, got %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(`
layout:
  provider: docling
  docling:
    url: http://docling:5001
parser:
  body-labels: [text, list_item]
ner:
  gemini:
    api-key: secret
`)); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Layout.Provider != "docling" || cfg.Layout.Docling.URL != "http://docling:5001" {
		t.Fatalf("unexpected layout config %+v", cfg.Layout)
	}
	if cfg.Layout.Docling.Timeout != 120*time.Second {
		t.Fatalf("default timeout lost: %s", cfg.Layout.Docling.Timeout)
	}
	if len(cfg.Parser.BodyLabels) != 2 {
		t.Fatalf("unexpected body labels %v", cfg.Parser.BodyLabels)
	}

	safe := redacted(cfg)
	if safe.NER.Gemini.APIKey != "***" {
		t.Fatalf("api key not redacted: %q", safe.NER.Gemini.APIKey)
	}
	if cfg.NER.Gemini.APIKey != "secret" {
		t.Fatal("redacted must not modify the original config")
	}
}

func TestOutputPaths(t *testing.T) {
	t.Parallel()

	files := []string{"cv.pdf", "/tmp/docs/John.PDF", "noext"}
	got, err := outputPaths("out", files)
	if err != nil {
		t.Fatalf("outputPaths returned error: %v", err)
	}

	want := map[string]string{
		"cv.pdf":             filepath.Join("out", "cv.json"),
		"/tmp/docs/John.PDF": filepath.Join("out", "John.json"),
		"noext":              filepath.Join("out", "noext.json"),
	}
	for in, path := range want {
		if got[in] != path {
			t.Fatalf("output for %q = %q, want %q", in, got[in], path)
		}
	}
}

func TestOutputPathsRejectsCollisions(t *testing.T) {
	t.Parallel()

	tests := [][]string{
		{"a/cv.pdf", "b/cv.pdf"},
		{"cv.pdf", "cv.PDF"},
		{"cv.pdf", "cv.pdf"},
	}

	for _, files := range tests {
		_, err := outputPaths("out", files)
		if err == nil {
			t.Fatalf("expected collision error for %v", files)
		}
		if !strings.Contains(err.Error(), files[0]) || !strings.Contains(err.Error(), files[1]) {
			t.Fatalf("error should name both inputs, got %v", err)
		}
	}
}
