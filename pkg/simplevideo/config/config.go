package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tendant/simple-video/pkg/simplevideo"
)

const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"

	ContentMemory = "memory"
	ContentFS     = "fs"
	ContentS3     = "s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: DatabaseMemory,
		DBSchema:     "video",
		AutoMigrate:  true,
		Content: ContentBackendConfig{
			Type:   ContentMemory,
			Config: map[string]interface{}{},
		},
		DefaultPageSize:    simplevideo.DefaultPageSize,
		MaxPageSize:        simplevideo.DefaultMaxPageSize,
		MaxVersionRetries:  simplevideo.DefaultMaxVersionRetries,
		EnableEventLogging: true,
	}
}

// ServerConfig represents configuration for the video store and its server
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Catalog configuration
	DatabaseURL  string // postgres connection string or sqlite file path
	DatabaseType string // "memory", "postgres", "sqlite"
	DBSchema     string // Postgres schema to use (default: video)
	AutoMigrate  bool   // Apply catalog migrations on startup

	// Content configuration
	Content ContentBackendConfig

	// Query and versioning options
	DefaultPageSize    int
	MaxPageSize        int
	MaxVersionRetries  int
	EnableEventLogging bool
}

// ContentBackendConfig represents configuration for the content store
type ContentBackendConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// IsProduction reports whether the server runs in production mode.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres, DatabaseSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'sqlite'")
	}

	switch c.Content.Type {
	case ContentMemory:
	case ContentFS:
		if getString(c.Content.Config, "base_dir", "") == "" {
			return errors.New("content base_dir is required for the fs backend")
		}
	case ContentS3:
		if getString(c.Content.Config, "bucket", "") == "" {
			return errors.New("content bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unsupported content backend type: %s", c.Content.Type)
	}

	if c.MaxPageSize <= 0 {
		return errors.New("max_page_size must be positive")
	}
	if c.DefaultPageSize <= 0 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default_page_size must be between 1 and %d", c.MaxPageSize)
	}
	if c.MaxVersionRetries <= 0 {
		return errors.New("max_version_retries must be positive")
	}

	return nil
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
