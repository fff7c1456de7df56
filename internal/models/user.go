package models

import "time"

// User is the entitlement record of a verified identity.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Subject string `gorm:"type:text;not null;uniqueIndex"` // Verified identity subject.
	Email   string `gorm:"type:text"`                      // Email address.

	Plan Plan `gorm:"type:varchar(32);not null;default:'trial';index"` // Entitlement class.

	DailyUsed        int       `gorm:"not null;default:0"` // Questions in the current daily window.
	DailyWindowStart time.Time `gorm:"not null"`           // Daily window anchor.

	MonthlyUsed    int       `gorm:"not null;default:0"` // Questions in the current monthly window.
	MonthlyResetAt time.Time `gorm:"not null;index"`     // First instant of the next monthly window.

	TrialQuestionsUsed int       `gorm:"not null;default:0"` // Questions asked while on trial.
	TrialExpiresAt     time.Time `gorm:"not null"`           // End of the trial period.

	MessageCount int  `gorm:"not null;default:0"`    // Running assistant message counter.
	SeesAds      bool `gorm:"not null;default:true"` // Ad display preference.

	LastSeen  time.Time `gorm:"not null"`                // Last accepted question.
	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
