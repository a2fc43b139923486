package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Quote is a short text owned by the user who posted it. VoteCount is
// derived from the votes table on every read and never stored.
type Quote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id" swaggertype:"string" format:"uuid"`
	Text      string    `gorm:"size:255;not null;index:quote_text" json:"text"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	Author    *Author `gorm:"-" json:"user,omitempty"`
	VoteCount int64   `gorm:"-" json:"voteCount"`
}

// BeforeCreate assigns a random id when none was set.
func (q *Quote) BeforeCreate(_ *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// QuotePage is one page of a quote listing.
type QuotePage struct {
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
	Total int64    `json:"total"`
	Data  []*Quote `json:"data"`
}
