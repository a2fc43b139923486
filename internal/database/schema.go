package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"quotely/internal/config"
	"quotely/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is what cmd/migrate status prints.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// schemaPlan is the resolved DB_SCHEMA_MODE for one environment.
type schemaPlan struct {
	mode string
	env  string
	sql  bool
	auto bool
}

var sharedEnvs = []string{"production", "prod", "staging", "stage"}

func resolveSchemaPlan(cfg *config.Config) (schemaPlan, error) {
	p := schemaPlan{
		mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		env:  cfg.Env,
	}
	if p.mode == "" {
		p.mode = SchemaModeHybrid
	}
	shared := slices.Contains(sharedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch p.mode {
	case SchemaModeSQL:
		p.sql = true
	case SchemaModeHybrid:
		// Shared environments only take reviewed SQL.
		p.sql, p.auto = true, !shared
	case SchemaModeAuto:
		if shared && !cfg.DBAutoMigrateAllowDestructive {
			return p, fmt.Errorf("DB_SCHEMA_MODE=auto is refused in %q unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		p.auto = true
	default:
		return p, fmt.Errorf("unknown DB_SCHEMA_MODE %q (want hybrid, sql or auto)", p.mode)
	}
	return p, nil
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	p, err := resolveSchemaPlan(cfg)
	if err != nil {
		return false, false, err
	}
	return p.sql, p.auto, nil
}

// AutoMigrate creates or alters the users, quotes and votes tables from
// their GORM models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema prepares the database according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	p, err := resolveSchemaPlan(cfg)
	if err != nil {
		return err
	}

	if p.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !p.auto {
		return nil
	}

	middleware.Logger.InfoContext(ctx, "auto-migrating models",
		slog.String("mode", p.mode),
		slog.String("env", p.env),
		slog.Int("models", len(PersistentModels())),
	)
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus describes what ApplySchema would do without doing it.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	p, err := resolveSchemaPlan(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               p.mode,
		Environment:        p.env,
		WillRunSQL:         p.sql,
		WillRunAutoMigrate: p.auto,
	}
	if !p.sql {
		return status, nil
	}

	ledger := NewMigrationStore(db)
	if status.AppliedVersions, err = ledger.GetAppliedMigrations(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = pendingMigrations(ctx, ledger, GetMigrations()); err != nil {
		return nil, err
	}
	return status, nil
}
