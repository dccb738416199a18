package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aebs/aebs/internal/catalog"
	"github.com/aebs/aebs/internal/fetch"
	"github.com/aebs/aebs/internal/project"
)

// Config holds user/system configuration for a build.
// Flags override whatever Load returns.
type Config struct {
	CacheDir     string        `yaml:"cacheDir"`
	CatalogURL   string        `yaml:"catalogURL"`
	AssetPrefix  string        `yaml:"assetPrefix"`
	UserAgent    string        `yaml:"userAgent"`
	HTTPTimeout  time.Duration `yaml:"httpTimeout"`
	MaxRedirects int           `yaml:"maxRedirects"`
	Workers      int           `yaml:"workers"` // 0 means GOMAXPROCS
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	cache, err := os.UserCacheDir()
	if err != nil {
		cache = os.TempDir()
	}
	return Config{
		CacheDir:     filepath.Join(cache, "aebs"),
		CatalogURL:   catalog.DefaultEndpoint,
		AssetPrefix:  "electron",
		UserAgent:    "aebs",
		HTTPTimeout:  30 * time.Minute,
		MaxRedirects: fetch.DefaultMaxRedirects,
	}
}

// Load returns defaults overlaid with the project's .aebs.yaml (when
// present) and then AEBS_CACHE_DIR / AEBS_CATALOG_URL.
func Load(projectRoot string) (Config, error) {
	cfg := Defaults()
	if projectRoot != "" {
		path := project.Layout{Root: projectRoot}.ConfigFile()
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if v := os.Getenv("AEBS_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("AEBS_CATALOG_URL"); v != "" {
		cfg.CatalogURL = v
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = fetch.DefaultMaxRedirects
	}
	return cfg, nil
}
