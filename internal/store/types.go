package store

import "water-dispenser-backend/internal/model"

// UsageOutcome captures the dispenser-side effects of recording a usage
// event, echoed back to the caller alongside the created record.
type UsageOutcome struct {
	Remaining           float64               `json:"remaining"`
	Status              model.DispenserStatus `json:"status"`
	PercentageRemaining int                   `json:"percentageRemaining"`
	PreviousStatus      model.DispenserStatus `json:"-"`
	FirstTimeUser       bool                  `json:"-"`
}
