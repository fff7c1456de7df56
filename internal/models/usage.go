package models

import "time"

// Usage is one answered or failed question.
type Usage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   uint64  `gorm:"not null;index"`            // Asking user.
	AnswerID *uint64 `gorm:"index"`                     // Served answer; nil on failure.
	Plan     Plan    `gorm:"type:varchar(32);not null"` // Plan at request time.
	Model    string  `gorm:"type:varchar(64);not null"` // Model used, or "cache".
	Outcome  string  `gorm:"type:varchar(16);not null"` // hit, miss, duplicate, or failed.

	PromptTokens     int `gorm:"not null;default:0"` // Prompt tokens billed to this request.
	CompletionTokens int `gorm:"not null;default:0"` // Completion tokens billed to this request.

	RequestedAt time.Time `gorm:"not null;index"`          // Request timestamp.
	CreatedAt   time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
