package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Subscribers are alerted when one of their dispensers runs low.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Dispensers []*Dispenser `gorm:"many2many:subscription_dispenser_mapping;"`
}
