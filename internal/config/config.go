package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-dedup/internal/constants"
)

//go:embed sensitivity.yaml
var sensitivityYAML []byte

type Config struct {
	Database    DatabaseConfig
	Catalog     CatalogConfig
	Thumbnails  ThumbnailConfig
	Sensitivity SensitivityConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type CatalogConfig struct {
	DSN          string // MariaDB DSN of the photo catalog to sync from (e.g., photoprism:photoprism@tcp(mariadb:3306)/photoprism)
	MaxOpenConns int    // Maximum open connections (default 4; the catalog is only read during sync)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type ThumbnailConfig struct {
	Dir string // Base directory for rendered thumbnails; relative thumbnail paths resolve against it
}

type SensitivityConfig struct {
	Levels map[string]int `yaml:"levels"`
}

// Threshold resolves a sensitivity value to a Hamming threshold. Named levels
// come from the embedded sensitivity map; numeric values are clamped to the
// documented 1-20 range. Anything unparsable falls back to the default.
func (s *SensitivityConfig) Threshold(sensitivity string) int {
	if t, ok := s.Levels[sensitivity]; ok {
		return t
	}
	n, err := strconv.Atoi(sensitivity)
	if err != nil {
		return constants.DefaultHammingThreshold
	}
	return ClampThreshold(n)
}

// ClampThreshold bounds a threshold to the documented 1-20 range.
func ClampThreshold(t int) int {
	if t < constants.MinHammingThreshold {
		return constants.MinHammingThreshold
	}
	if t > constants.MaxHammingThreshold {
		return constants.MaxHammingThreshold
	}
	return t
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var sensitivity SensitivityConfig
	if err := yaml.Unmarshal(sensitivityYAML, &sensitivity); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded sensitivity.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Catalog: CatalogConfig{
			DSN:          os.Getenv("CATALOG_DATABASE_URL"),
			MaxOpenConns: envInt("CATALOG_MAX_OPEN_CONNS", 4),
			MaxIdleConns: envInt("CATALOG_MAX_IDLE_CONNS", 2),
		},
		Thumbnails: ThumbnailConfig{
			Dir: os.Getenv("THUMBNAIL_DIR"),
		},
		Sensitivity: sensitivity,
	}
}
