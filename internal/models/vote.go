package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote records that a user backs a quote. The unique index on user_id keeps
// at most one vote per user; casting again moves the existing row.
type Vote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id" swaggertype:"string" format:"uuid"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	QuoteID   uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Quote     *Quote    `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a random id when none was set.
func (v *Vote) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// VoteView is the API representation of a vote with its voter and quote.
type VoteView struct {
	ID        uuid.UUID    `json:"id" swaggertype:"string" format:"uuid"`
	CreatedAt time.Time    `json:"createdAt"`
	User      Author       `json:"user"`
	Quote     QuoteSummary `json:"quote"`
}

// QuoteSummary is a quote without its derived fields.
type QuoteSummary struct {
	ID   uuid.UUID `json:"id" swaggertype:"string" format:"uuid"`
	Text string    `json:"text"`
}

// NewVoteView projects v. User and Quote must be loaded.
func NewVoteView(v *Vote) VoteView {
	view := VoteView{ID: v.ID, CreatedAt: v.CreatedAt}
	view.User.ID = v.UserID
	view.Quote.ID = v.QuoteID
	if v.User != nil {
		view.User.Username = v.User.Username
	}
	if v.Quote != nil {
		view.Quote.Text = v.Quote.Text
	}
	return view
}
