// Package database opens the Postgres pools and owns the schema.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quotely/internal/config"
	"quotely/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// DB is the primary pool once Connect has succeeded.
	DB *gorm.DB
	// readDB is the replica pool; nil when DB_READ_HOST is unset.
	readDB *gorm.DB
)

// ConnectOptions controls what Connect does after opening the pool.
type ConnectOptions struct {
	ApplySchema bool
}

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 5
	connMaxLifetime     = 5 * time.Minute
	slowQueryThreshold  = 200 * time.Millisecond
)

// slogGorm routes GORM's logging into slog. Only failures and slow
// statements are logged unless the level is raised to logger.Info.
type slogGorm struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewGormLogger adapts l for GORM at warn level.
func NewGormLogger(l *slog.Logger) logger.Interface {
	return &slogGorm{log: l, level: logger.Warn, slow: slowQueryThreshold}
}

func (g *slogGorm) LogMode(level logger.LogLevel) logger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *slogGorm) printf(ctx context.Context, at logger.LogLevel, lvl slog.Level, msg string, args []any) {
	if g.level >= at {
		g.log.Log(ctx, lvl, fmt.Sprintf(msg, args...))
	}
}

func (g *slogGorm) Info(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (g *slogGorm) Warn(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (g *slogGorm) Error(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, logger.Error, slog.LevelError, msg, args)
}

// Trace logs one executed statement. Record-not-found is not an error here;
// repositories turn it into NOT_FOUND.
func (g *slogGorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	took := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.slow > 0 && took > g.slow

	var lvl slog.Level
	var msg string
	switch {
	case failed && g.level >= logger.Error:
		lvl, msg = slog.LevelError, "sql failed"
	case slow && g.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "sql slow"
	case g.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "sql"
	default:
		return
	}

	stmt, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", stmt),
		slog.Int64("rows", rows),
		slog.Duration("took", took),
	}
	if failed {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	g.log.LogAttrs(ctx, lvl, msg, attrs...)
}

// GormConfig is the gorm.Config for every pool, tests included. Timestamps
// are generated in UTC.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  NewGormLogger(middleware.Logger),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// endpoint is one Postgres server the service talks to.
type endpoint struct {
	host, port, user, password string
}

func (e endpoint) dsn(cfg *config.Config) string {
	ssl := cfg.DBSSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		e.host, e.port, e.user, e.password, cfg.DBName, ssl)
}

func open(e endpoint, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(e.dsn(cfg)), GormConfig())
	if err != nil {
		return nil, err
	}
	if err := tunePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

// Connect opens the primary pool and applies the schema policy.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return ConnectWithOptions(cfg, ConnectOptions{ApplySchema: true})
}

// ConnectWithOptions opens the primary pool and, when DB_READ_HOST is set,
// a replica pool for list and lookup reads. A replica that cannot be opened
// is logged and skipped.
func ConnectWithOptions(cfg *config.Config, opts ConnectOptions) (*gorm.DB, error) {
	primary, err := open(endpoint{cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword}, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s:%s/%s: %w", cfg.DBHost, cfg.DBPort, cfg.DBName, err)
	}
	middleware.Logger.Info("database connected", slog.String("host", cfg.DBHost), slog.String("db", cfg.DBName))

	if opts.ApplySchema {
		if err := ApplySchema(context.Background(), primary, cfg); err != nil {
			Close(primary)
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	if cfg.DBReadHost != "" {
		replica, err := open(endpoint{cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword}, cfg)
		if err != nil {
			middleware.Logger.Warn("read replica unavailable, reading from primary",
				slog.String("host", cfg.DBReadHost),
				slog.String("error", err.Error()),
			)
		} else {
			readDB = replica
			middleware.Logger.Info("read replica connected", slog.String("host", cfg.DBReadHost))
		}
	}

	DB = primary
	return DB, nil
}

func tunePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(orDefault(cfg.DBMaxOpenConns, defaultMaxOpenConns))
	sqlDB.SetMaxIdleConns(orDefault(cfg.DBMaxIdleConns, defaultMaxIdleConns))
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return nil
}

func orDefault(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

// GetReadDB returns the replica pool, or nil.
func GetReadDB() *gorm.DB {
	return readDB
}

// Close closes db and the replica pool.
func Close(db *gorm.DB) {
	for _, conn := range []*gorm.DB{db, readDB} {
		if conn == nil {
			continue
		}
		sqlDB, err := conn.DB()
		if err != nil {
			continue
		}
		if err := sqlDB.Close(); err != nil {
			middleware.Logger.Error("closing database pool", slog.String("error", err.Error()))
		}
	}
	readDB = nil
}
