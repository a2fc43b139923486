package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"quotely/internal/middleware"

	"gorm.io/gorm"
)

// MigrationStore records which schema versions have been applied.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]int, error)
	ApplyMigration(ctx context.Context, version int, name, sql string) error
	RemoveMigration(ctx context.Context, version int) error
}

// SchemaVersion is one row of the applied-migration ledger.
type SchemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (SchemaVersion) TableName() string {
	return "schema_versions"
}

type versionLedger struct {
	db *gorm.DB
}

// NewMigrationStore returns a MigrationStore backed by the schema_versions table.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &versionLedger{db: db}
}

func (l *versionLedger) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	versions := []int{}
	err := l.db.WithContext(ctx).
		Model(&SchemaVersion{}).
		Order("version").
		Pluck("version", &versions).Error
	switch {
	case err == nil:
		return versions, nil
	case errors.Is(err, gorm.ErrRecordNotFound), ledgerMissing(err):
		// Nothing has ever been applied.
		return []int{}, nil
	default:
		return nil, fmt.Errorf("read schema versions: %w", err)
	}
}

// ledgerMissing matches the Postgres and SQLite "no such table" errors.
func ledgerMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no such table") {
		return true
	}
	return strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")
}

// ApplyMigration executes sql and records version atomically.
func (l *versionLedger) ApplyMigration(ctx context.Context, version int, name, sql string) error {
	txErr := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration %06d_%s: %w", version, name, err)
		}
		return tx.Create(&SchemaVersion{Version: version, Name: name}).Error
	})
	if txErr != nil {
		return txErr
	}
	middleware.Logger.InfoContext(ctx, "schema version applied",
		slog.Int("version", version),
		slog.String("name", name),
	)
	return nil
}

func (l *versionLedger) RemoveMigration(ctx context.Context, version int) error {
	res := l.db.WithContext(ctx).Delete(&SchemaVersion{}, "version = ?", version)
	if res.Error != nil {
		return fmt.Errorf("forget schema version %d: %w", version, res.Error)
	}
	middleware.Logger.InfoContext(ctx, "schema version removed", slog.Int("version", version))
	return nil
}

// RunMigrations brings the database up to the newest embedded version.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrations(ctx, db, migrations)
}

func runMigrations(ctx context.Context, db *gorm.DB, registered []Migration) error {
	if err := db.WithContext(ctx).AutoMigrate(&SchemaVersion{}); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	ledger := NewMigrationStore(db)
	todo, err := pendingMigrations(ctx, ledger, registered)
	if err != nil {
		return err
	}
	if len(todo) == 0 {
		middleware.Logger.DebugContext(ctx, "schema is current", slog.Int("known", len(registered)))
		return nil
	}

	for _, m := range todo {
		middleware.Logger.InfoContext(ctx, "applying schema version", slog.String("migration", m.String()))
		if err := ledger.ApplyMigration(ctx, m.Version, m.Name, m.UpScript); err != nil {
			return err
		}
	}
	return nil
}

// pendingMigrations returns the registered migrations not yet in the
// ledger. A ledger entry with no registered migration is an error: the
// database was migrated by a newer build.
func pendingMigrations(ctx context.Context, ledger MigrationStore, registered []Migration) ([]Migration, error) {
	applied, err := ledger.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	var todo []Migration
	for _, m := range registered {
		if done[m.Version] {
			delete(done, m.Version)
			continue
		}
		todo = append(todo, m)
	}

	if len(done) > 0 {
		strays := make([]int, 0, len(done))
		for v := range done {
			strays = append(strays, v)
		}
		slices.Sort(strays)
		names := make([]string, len(strays))
		for i, v := range strays {
			names[i] = fmt.Sprintf("%06d", v)
		}
		return nil, fmt.Errorf("schema_versions lists versions this build does not know: %s", strings.Join(names, ", "))
	}
	return todo, nil
}

// RollbackMigration runs the down script of an applied version and drops
// it from the ledger.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("no migration with version %d", version)
	}

	ledger := NewMigrationStore(db)
	applied, err := ledger.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %s is not applied", m)
	}

	middleware.Logger.InfoContext(ctx, "rolling back schema version", slog.String("migration", m.String()))
	if err := db.WithContext(ctx).Exec(m.DownScript).Error; err != nil {
		return fmt.Errorf("down script for %s: %w", m, err)
	}
	return ledger.RemoveMigration(ctx, version)
}
