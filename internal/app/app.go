package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tinylink-dev/tinylink/internal/config"
	"github.com/tinylink-dev/tinylink/internal/ratelimit"
	"github.com/tinylink-dev/tinylink/internal/server"
	"github.com/tinylink-dev/tinylink/internal/shortener"
)

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Server  *server.Server
	Handler *shortener.Handler

	dbPool   *pgxpool.Pool
	sqliteDB *sql.DB
	redis    *redis.Client
}

// New initializes and returns a new App instance with all dependencies
// wired up. The store handle is owned here and closed in Shutdown.
func New(ctx context.Context) (*App, error) {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"db_driver", cfg.Database.Driver,
	)

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	repo, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	repo = shortener.WithTimeout(repo, cfg.Database.QueryTimeout)

	svc := shortener.NewService(repo, nil)
	handler := shortener.NewHandler(shortener.HandlerConfig{
		Service:     svc,
		Logger:      logger,
		BaseURL:     cfg.Server.BaseURL,
		Environment: cfg.App.Environment,
	})

	limiters := a.setupLimiters()

	a.Handler = handler
	a.Server = server.New(cfg, logger, handler, limiters)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"rate_limiting", cfg.Redis.Enabled,
	)

	return a, nil
}

// Start starts the application server and blocks until shutdown.
func (a *App) Start(ctx context.Context) error {
	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown releases the store and redis handles.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.dbPool != nil {
		a.dbPool.Close()
		a.Logger.Info("database pool closed")
	}
	if a.sqliteDB != nil {
		if err := a.sqliteDB.Close(); err != nil {
			a.Logger.Warn("failed to close sqlite database", "error", err.Error())
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis client", "error", err.Error())
		}
	}

	return nil
}

// openStore opens the configured store backend, applies the schema, and
// returns the repository over it.
func (a *App) openStore(ctx context.Context) (shortener.Repository, error) {
	switch a.Config.Database.Driver {
	case "sqlite":
		repo, db, err := shortener.OpenSQLiteRepository(ctx, a.Config.Database.SQLitePath, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.sqliteDB = db
		a.Logger.Info("sqlite store opened", "path", a.Config.Database.SQLitePath)
		return repo, nil

	default:
		pool, err := a.connectPostgres(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.dbPool = pool

		if err := shortener.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		return shortener.NewPostgresRepository(pool, nil), nil
	}
}

// connectPostgres establishes the pgx pool and verifies connectivity.
func (a *App) connectPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	cfg := a.Config.Database

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns

	a.Logger.Info("connecting to database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a.Logger.Info("database connection established")
	return pool, nil
}

// setupLimiters builds the per-route rate limiters. Without Redis the
// limiters are no-ops.
func (a *App) setupLimiters() server.Limiters {
	cfg := a.Config.Redis
	if !cfg.Enabled {
		return server.Limiters{}
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	a.Logger.Info("rate limiting enabled",
		"redis_addr", cfg.Addr,
		"create_max", cfg.CreateLimit,
		"redirect_max", cfg.RedirectLimit,
	)

	return server.Limiters{
		Create: ratelimit.NewRedis(a.redis, ratelimit.Config{
			Name:   "create",
			Max:    cfg.CreateLimit,
			Window: cfg.CreateWindow,
		}),
		Redirect: ratelimit.NewRedis(a.redis, ratelimit.Config{
			Name:   "redirect",
			Max:    cfg.RedirectLimit,
			Window: cfg.RedirectWindow,
		}),
	}
}

// loadEnv loads a .env file in non-production environments.
func loadEnv() {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" || env == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found")
		}
	}
}

// setupLogger creates a structured JSON logger at the configured level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
