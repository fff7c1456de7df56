package models

import (
	"time"

	"gorm.io/datatypes"
)

// TokenUsage records provider token counts for a generated answer.
type TokenUsage struct {
	Prompt     int `gorm:"not null;default:0" json:"prompt"`     // Prompt tokens.
	Completion int `gorm:"not null;default:0" json:"completion"` // Completion tokens.
}

// Answer is the canonical cached answer for a question.
type Answer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CanonicalKey     string `gorm:"type:text;not null;uniqueIndex"` // platform:version:question slug.
	OriginalQuestion string `gorm:"type:text;not null"`             // First phrasing seen.
	Platform         string `gorm:"type:text;not null;index:idx_answers_platform_version"`
	Version          string `gorm:"type:text;not null;index:idx_answers_platform_version"`

	AnswerText string                      `gorm:"type:text;not null"`              // Generated answer body.
	ModelUsed  string                      `gorm:"type:varchar(64);not null"`       // Model that produced the answer.
	Tokens     TokenUsage                  `gorm:"embedded;embeddedPrefix:tokens_"` // Token accounting.
	Sources    datatypes.JSONSlice[string] `gorm:"type:json"`                       // Ordered source references.

	Popularity int `gorm:"not null;default:1;index"` // Creations plus cache hits.
	Ups        int `gorm:"not null;default:0"`       // Upvotes.
	Downs      int `gorm:"not null;default:0"`       // Downvotes.
	Score      int `gorm:"not null;default:0;index"` // Ups minus downs.

	Published      bool   `gorm:"not null;default:false;index"` // Listed in the public catalog.
	PublishedURL   string `gorm:"type:text"`                    // Public path while published.
	SEOTitle       string `gorm:"type:text"`                    // Catalog page title.
	SEODescription string `gorm:"type:text"`                    // Catalog page description.

	LastHitAt time.Time `gorm:"not null"`                // Last cache hit or creation.
	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
