package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageHistory is a single recorded instance of water being dispensed to a
// user. Records are immutable once created.
type UsageHistory struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	DispenserID string    `gorm:"size:36;index;not null" json:"dispenserId"`
	UserID      string    `gorm:"size:36;index;not null" json:"userId"`
	Date        time.Time `gorm:"index;not null" json:"date"`
	Usage       float64   `gorm:"not null" json:"usage"`
}

// TableName keeps the collection name the API was built around.
func (UsageHistory) TableName() string {
	return "usage_history"
}

func (u *UsageHistory) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
