// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"quotely/internal/database"
	"quotely/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a private in-memory database with foreign keys enabled
// and every persistent model migrated. A single connection serializes
// statements the way one Postgres row lock would.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateQuote inserts a quote owned by owner.
func CreateQuote(t *testing.T, db *gorm.DB, owner *models.User, text string) *models.Quote {
	t.Helper()
	quote := &models.Quote{Text: text, UserID: owner.ID}
	require.NoError(t, db.Create(quote).Error)
	return quote
}

// CreateVote records voter's vote for quote.
func CreateVote(t *testing.T, db *gorm.DB, voter *models.User, quote *models.Quote) *models.Vote {
	t.Helper()
	vote := &models.Vote{UserID: voter.ID, QuoteID: quote.ID}
	require.NoError(t, db.Create(vote).Error)
	return vote
}
