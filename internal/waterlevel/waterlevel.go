// Package waterlevel holds the water-level bookkeeping shared by the sensor
// sync and usage-recording endpoints: percentage derivation, status
// classification and refill detection.
package waterlevel

import (
	"math"

	"water-dispenser-backend/internal/model"
)

// RefillFraction is the share of total capacity a remaining-volume jump must
// reach before it counts as a physical refill rather than a re-measurement.
const RefillFraction = 0.15

// Percent converts a remaining volume into a rounded percentage of capacity.
// A zero or unset capacity is treated as 1 so the division is always defined.
func Percent(remaining, capacity float64) int {
	if capacity <= 0 {
		capacity = 1
	}
	return int(math.Round(remaining / capacity * 100))
}

// SyncStatus is the classification applied on sensor sync. A level at or
// below zero means the sensor reports an empty (or disconnected) unit.
func SyncStatus(level int) model.DispenserStatus {
	switch {
	case level > 70:
		return model.StatusGood
	case level >= 30:
		return model.StatusMedium
	case level > 0:
		return model.StatusLow
	default:
		return model.StatusOffline
	}
}

// UsageStatus is the classification applied when a usage event is recorded.
// Unlike SyncStatus it has no offline branch: a dispenser drained to zero by
// usage is merely "low" until the next sensor sync says otherwise. The two
// tables diverge on purpose.
func UsageStatus(percentage float64) model.DispenserStatus {
	switch {
	case percentage > 70:
		return model.StatusGood
	case percentage >= 30:
		return model.StatusMedium
	default:
		return model.StatusLow
	}
}

// IsRefill reports whether a newly synced remaining volume indicates the
// dispenser was physically refilled: the reading must have increased, and by
// at least RefillFraction of capacity.
func IsRefill(oldRemaining, newRemaining, capacity float64) bool {
	delta := newRemaining - oldRemaining
	return delta > 0 && delta >= capacity*RefillFraction
}

// NeedsAttention reports whether a status transition should alert
// subscribers: the dispenser just left the good/medium band.
func NeedsAttention(prev, next model.DispenserStatus) bool {
	wasOK := prev == model.StatusGood || prev == model.StatusMedium || prev == ""
	nowBad := next == model.StatusLow || next == model.StatusOffline
	return wasOK && nowBad
}
