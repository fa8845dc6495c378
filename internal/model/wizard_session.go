package model

import "time"

// WizardSession persists an in-progress booking wizard so a reload does not
// lose the customer's selection.
type WizardSession struct {
	ID          string     `gorm:"primaryKey;size:36"`
	CurrentStep string     `gorm:"size:16;not null"`
	Location    *Location  `gorm:"serializer:json"`
	Service     *Service   `gorm:"serializer:json"`
	ScheduledAt *time.Time
	Name        string `gorm:"size:128"`
	Phone       string `gorm:"size:64"`
	Email       string `gorm:"size:256"`
	HasInfo     bool   `gorm:"not null;default:false"`
	BookingID   *int64
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null;index"`
}
