// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a registered account. Username is case-sensitive and unique.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id" swaggertype:"string" format:"uuid"`
	Username     string    `gorm:"size:40;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BeforeCreate assigns a random id when none was set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Author is the public projection of a user embedded in quote listings.
type Author struct {
	ID       uuid.UUID `json:"id" swaggertype:"string" format:"uuid"`
	Username string    `json:"username"`
}

// Profile is the caller's own account view, including their current vote.
type Profile struct {
	ID        uuid.UUID    `json:"id" swaggertype:"string" format:"uuid"`
	Username  string       `json:"username"`
	CreatedAt time.Time    `json:"createdAt"`
	Vote      *ProfileVote `json:"vote"`
}

// ProfileVote is the vote summary shown on a profile.
type ProfileVote struct {
	ID        uuid.UUID `json:"id" swaggertype:"string" format:"uuid"`
	CreatedAt time.Time `json:"createdAt"`
	Quote     QuoteRef  `json:"quote"`
}

// QuoteRef identifies a quote without its payload.
type QuoteRef struct {
	ID uuid.UUID `json:"id" swaggertype:"string" format:"uuid"`
}
