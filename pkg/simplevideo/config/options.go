package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the catalog backend. url is a connection string
// for postgres and a file path for sqlite.
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case DatabaseMemory:
		case DatabasePostgres, DatabaseSQLite:
			if url == "" {
				return fmt.Errorf("database URL is required for %s", dbType)
			}
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate toggles catalog migrations on startup
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithMemoryContent stores content in memory
func WithMemoryContent() Option {
	return func(c *ServerConfig) error {
		c.Content = ContentBackendConfig{Type: ContentMemory, Config: map[string]interface{}{}}
		return nil
	}
}

// WithFilesystemContent stores content below baseDir
func WithFilesystemContent(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Content = ContentBackendConfig{
			Type: ContentFS,
			Config: map[string]interface{}{
				"base_dir": baseDir,
			},
		}
		return nil
	}
}

// WithS3Content stores content in an S3 bucket. extra carries optional
// settings such as "endpoint", "prefix" and "use_path_style".
func WithS3Content(bucket, region string, extra map[string]interface{}) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		cfg := map[string]interface{}{
			"bucket": bucket,
			"region": region,
		}
		for k, v := range extra {
			cfg[k] = v
		}
		c.Content = ContentBackendConfig{Type: ContentS3, Config: cfg}
		return nil
	}
}

// WithPageSizes sets the default and maximum page size for queries
func WithPageSizes(defaultSize, maxSize int) Option {
	return func(c *ServerConfig) error {
		if defaultSize <= 0 || maxSize <= 0 {
			return fmt.Errorf("page sizes must be positive, got: %d, %d", defaultSize, maxSize)
		}
		c.DefaultPageSize = defaultSize
		c.MaxPageSize = maxSize
		return nil
	}
}

// WithMaxVersionRetries bounds version number allocation retries
func WithMaxVersionRetries(n int) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("max version retries must be positive, got: %d", n)
		}
		c.MaxVersionRetries = n
		return nil
	}
}

// WithEventLogging toggles structured logging of lifecycle events
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}
