package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Server:
//
//	PORT - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//
// Catalog:
//
//	DATABASE_URL - one of:
//	  - "memory" - In-memory catalog (default)
//	  - "postgres://..." or "postgresql://..." - PostgreSQL catalog
//	  - "sqlite:///path/to/catalog.db" or "sqlite://catalog.db" - SQLite catalog
//	DB_SCHEMA - Postgres schema (default: "video")
//	AUTO_MIGRATE - Apply catalog migrations on startup (default: true)
//
// Content:
//
//	CONTENT_URL - one of (STORAGE_URL is accepted as an alias):
//	  - "memory://" - In-memory content (default)
//	  - "file:///path/to/data" - Filesystem content
//	  - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true&prefix=videos"
//
// Queries and versioning:
//
//	DEFAULT_PAGE_SIZE, MAX_PAGE_SIZE, MAX_VERSION_RETRIES, ENABLE_EVENT_LOGGING
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		if err := applyContentEnv(prefix, c); err != nil {
			return err
		}

		if v, ok := lookupEnv(prefix, "DB_SCHEMA"); ok && v != "" {
			c.DBSchema = v
		}
		if v, ok, err := parseBoolEnv(prefix, "AUTO_MIGRATE"); err != nil {
			return err
		} else if ok {
			c.AutoMigrate = v
		}
		if v, ok, err := parseBoolEnv(prefix, "ENABLE_EVENT_LOGGING"); err != nil {
			return err
		} else if ok {
			c.EnableEventLogging = v
		}

		intSettings := []struct {
			key    string
			target *int
		}{
			{"DEFAULT_PAGE_SIZE", &c.DefaultPageSize},
			{"MAX_PAGE_SIZE", &c.MaxPageSize},
			{"MAX_VERSION_RETRIES", &c.MaxVersionRetries},
		}
		for _, s := range intSettings {
			v, ok, err := parseIntEnv(prefix, s.key)
			if err != nil {
				return err
			}
			if ok {
				*s.target = v
			}
		}

		return nil
	}
}

// applyDatabaseEnv applies catalog configuration from environment
func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")

	switch {
	case !hasURL || dbURL == "" || dbURL == "memory":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty in DATABASE_URL")
		}
		c.DatabaseType = DatabaseSQLite
		c.DatabaseURL = path
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgresql://...' or 'sqlite://...')", dbURL)
	}
	return nil
}

// applyContentEnv applies content store configuration from environment
func applyContentEnv(prefix string, c *ServerConfig) error {
	contentURL, hasURL := lookupEnv(prefix, "CONTENT_URL")
	if !hasURL {
		contentURL, hasURL = lookupEnv(prefix, "STORAGE_URL")
	}

	switch {
	case !hasURL || contentURL == "" || contentURL == "memory" || contentURL == "memory://":
		c.Content = ContentBackendConfig{Type: ContentMemory, Config: map[string]interface{}{}}
		return nil
	case strings.HasPrefix(contentURL, "file://"):
		return applyFilesystemContent(contentURL, c)
	case strings.HasPrefix(contentURL, "s3://"):
		return applyS3Content(contentURL, c)
	}

	return fmt.Errorf("unsupported CONTENT_URL format: %s (use 'memory://', 'file://...', or 's3://...')", contentURL)
}

// applyFilesystemContent configures filesystem content from URL
// Format: file:///path/to/data
func applyFilesystemContent(raw string, c *ServerConfig) error {
	path := strings.TrimPrefix(raw, "file://")
	if path == "" {
		return fmt.Errorf("filesystem path cannot be empty in CONTENT_URL")
	}

	c.Content = ContentBackendConfig{
		Type: ContentFS,
		Config: map[string]interface{}{
			"base_dir": path,
		},
	}
	return nil
}

// applyS3Content configures S3 content from URL
// Format: s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true
func applyS3Content(raw string, c *ServerConfig) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid CONTENT_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in CONTENT_URL")
	}

	backend := ContentBackendConfig{
		Type: ContentS3,
		Config: map[string]interface{}{
			"bucket": u.Host,
			"region": "us-east-1",
		},
	}

	q := u.Query()
	for param, key := range map[string]string{
		"region":     "region",
		"endpoint":   "endpoint",
		"prefix":     "prefix",
		"path_style": "use_path_style",
		"sse":        "sse_algorithm",
		"kms_key_id": "sse_kms_key_id",
		"create":     "create_bucket_if_not_exist",
	} {
		if v := q.Get(param); v != "" {
			backend.Config[key] = v
		}
	}
	if _, ok := backend.Config["sse_algorithm"]; ok {
		backend.Config["enable_sse"] = true
	}

	if accessKey, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && accessKey != "" {
		backend.Config["access_key_id"] = accessKey
	}
	if secretKey, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && secretKey != "" {
		backend.Config["secret_access_key"] = secretKey
	}
	if region, ok := os.LookupEnv("AWS_REGION"); ok && region != "" && q.Get("region") == "" {
		backend.Config["region"] = region
	}

	c.Content = backend
	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseBoolEnv(prefix, key string) (bool, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}

func parseIntEnv(prefix, key string) (int, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}
