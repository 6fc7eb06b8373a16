package models

import "time"

// WaitlistEntry is created once per email and never updated or deleted by the API.
type WaitlistEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Email     string    `gorm:"type:varchar(320);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
}
