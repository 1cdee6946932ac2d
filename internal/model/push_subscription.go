package model

import "time"

// PushSubscription holds a browser push endpoint registered for a notification recipient.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	Recipient string    `gorm:"size:120;index;not null"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
