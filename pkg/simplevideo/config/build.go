package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-video/pkg/simplevideo"
	memorycatalog "github.com/tendant/simple-video/pkg/simplevideo/catalog/memory"
	pgcatalog "github.com/tendant/simple-video/pkg/simplevideo/catalog/postgres"
	sqlitecatalog "github.com/tendant/simple-video/pkg/simplevideo/catalog/sqlite"
	fscontent "github.com/tendant/simple-video/pkg/simplevideo/content/fs"
	memorycontent "github.com/tendant/simple-video/pkg/simplevideo/content/memory"
	s3content "github.com/tendant/simple-video/pkg/simplevideo/content/s3"
)

// Stack is every component of a running store, built explicitly and handed
// to the transport layer.
type Stack struct {
	Catalog simplevideo.CatalogStore
	Content simplevideo.ContentStore
	Engine  *simplevideo.Engine
	Query   *simplevideo.QueryService

	closers []func()
}

// Close releases database handles in reverse order of creation.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Build assembles the catalog store, content store, engine and query
// service described by the configuration.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	stack := &Stack{}

	catalog, closeCatalog, err := c.buildCatalog(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog store: %w", err)
	}
	stack.Catalog = catalog
	stack.closers = append(stack.closers, closeCatalog)

	content, err := c.buildContent(ctx)
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("failed to build content store: %w", err)
	}
	stack.Content = content

	var sink simplevideo.EventSink = simplevideo.NewNoopEventSink()
	if c.EnableEventLogging {
		sink = simplevideo.NewLoggingEventSink(logger)
	}

	engine, err := simplevideo.NewEngine(
		simplevideo.WithCatalog(catalog),
		simplevideo.WithContent(content),
		simplevideo.WithEventSink(sink),
		simplevideo.WithLogger(logger),
		simplevideo.WithMaxVersionRetries(c.MaxVersionRetries),
	)
	if err != nil {
		stack.Close()
		return nil, err
	}
	stack.Engine = engine

	query, err := simplevideo.NewQueryService(catalog, simplevideo.WithPageSizes(c.DefaultPageSize, c.MaxPageSize))
	if err != nil {
		stack.Close()
		return nil, err
	}
	stack.Query = query

	return stack, nil
}

// buildCatalog creates a CatalogStore based on the configuration
func (c *ServerConfig) buildCatalog(ctx context.Context, logger *slog.Logger) (simplevideo.CatalogStore, func(), error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memorycatalog.New(), func() {}, nil

	case DatabasePostgres:
		if c.AutoMigrate {
			if err := pgcatalog.Migrate(ctx, c.DatabaseURL, c.DBSchema); err != nil {
				return nil, nil, err
			}
		}
		pool, err := NewPostgresPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		return pgcatalog.NewWithPool(pool), pool.Close, nil

	case DatabaseSQLite:
		catalog, err := sqlitecatalog.Open(ctx, sqlitecatalog.Config{
			Path:   c.DatabaseURL,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return catalog, func() {
			if err := catalog.Close(); err != nil {
				logger.Error("Failed to close sqlite catalog", "error", err)
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// NewPostgresPool opens a pgx pool whose sessions use schema as search_path.
func NewPostgresPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// buildContent creates a ContentStore based on the backend configuration
func (c *ServerConfig) buildContent(ctx context.Context) (simplevideo.ContentStore, error) {
	config := c.Content
	switch config.Type {
	case ContentMemory:
		return memorycontent.New(), nil

	case ContentFS:
		return fscontent.New(fscontent.Config{
			BaseDir: getString(config.Config, "base_dir", "./data/videos"),
		})

	case ContentS3:
		return s3content.New(ctx, s3content.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			Prefix:                 getString(config.Config, "prefix", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", os.Getenv("AWS_ACCESS_KEY_ID")),
			SecretAccessKey:        getString(config.Config, "secret_access_key", os.Getenv("AWS_SECRET_ACCESS_KEY")),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported content backend type: %s", config.Type)
	}
}
