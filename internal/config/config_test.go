package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults_AllFields(t *testing.T) {
	cfg := Defaults()

	if filepath.Base(cfg.CacheDir) != "aebs" {
		t.Errorf("Expected CacheDir to end in 'aebs', got '%s'", cfg.CacheDir)
	}
	if cfg.CatalogURL != "https://api.github.com/repos/electron/electron/releases" {
		t.Errorf("Unexpected CatalogURL '%s'", cfg.CatalogURL)
	}
	if cfg.AssetPrefix != "electron" {
		t.Errorf("Expected AssetPrefix 'electron', got '%s'", cfg.AssetPrefix)
	}
	if cfg.MaxRedirects != 10 {
		t.Errorf("Expected MaxRedirects 10, got %d", cfg.MaxRedirects)
	}
	if cfg.Workers != 0 {
		t.Errorf("Expected Workers 0, got %d", cfg.Workers)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("AEBS_CACHE_DIR", "")
	t.Setenv("AEBS_CATALOG_URL", "")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, Defaults())
	}
}

func TestLoad_ProjectFile(t *testing.T) {
	t.Setenv("AEBS_CACHE_DIR", "")
	t.Setenv("AEBS_CATALOG_URL", "")

	root := t.TempDir()
	body := strings.Join([]string{
		"cacheDir: /var/cache/electron",
		"assetPrefix: electron-nightly",
		"httpTimeout: 90s",
		"workers: 2",
		"maxRedirects: 0",
	}, "\n")
	if err := os.WriteFile(filepath.Join(root, ".aebs.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheDir != "/var/cache/electron" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.AssetPrefix != "electron-nightly" {
		t.Errorf("AssetPrefix = %q", cfg.AssetPrefix)
	}
	if cfg.HTTPTimeout != 90*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if cfg.MaxRedirects != 10 {
		t.Errorf("MaxRedirects = %d, want default restored", cfg.MaxRedirects)
	}
	if cfg.CatalogURL != Defaults().CatalogURL {
		t.Errorf("CatalogURL = %q, want default", cfg.CatalogURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".aebs.yaml"), []byte("cacheDir: /from/file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AEBS_CACHE_DIR", "/from/env")
	t.Setenv("AEBS_CATALOG_URL", "http://mirror.local/releases")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheDir != "/from/env" {
		t.Errorf("CacheDir = %q, want env value", cfg.CacheDir)
	}
	if cfg.CatalogURL != "http://mirror.local/releases" {
		t.Errorf("CatalogURL = %q, want env value", cfg.CatalogURL)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".aebs.yaml"), []byte("workers: [not a number\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(root); err == nil || !strings.Contains(err.Error(), ".aebs.yaml") {
		t.Errorf("Load() error = %v, want parse error naming the file", err)
	}
}
