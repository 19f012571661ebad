package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DispenserStatus classifies a dispenser by its remaining water level.
type DispenserStatus string

const (
	StatusGood    DispenserStatus = "good"
	StatusMedium  DispenserStatus = "medium"
	StatusLow     DispenserStatus = "low"
	StatusOffline DispenserStatus = "offline"
)

// Dispenser represents a physical water-dispensing unit tracked by the fleet.
type Dispenser struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	Name       string          `gorm:"size:128;not null" json:"name"`
	Location   string          `gorm:"size:256" json:"location,omitempty"`
	Capacity   float64         `gorm:"not null" json:"capacity"`
	Remaining  float64         `gorm:"not null" json:"remaining"`
	WaterLevel int             `json:"waterLevel"`
	Status     DispenserStatus `gorm:"size:16" json:"status"`
	TotalUsers int             `json:"totalUsers"`
	LastSync   *time.Time      `json:"lastSync,omitempty"`
	LastRefill *time.Time      `json:"lastRefill,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate assigns a store-side identifier, mirroring the auto-generated
// document IDs this API has always exposed.
func (d *Dispenser) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
