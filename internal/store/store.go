package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"water-dispenser-backend/internal/model"
	"water-dispenser-backend/internal/waterlevel"
)

// Store defines the interface for all database operations. It mirrors the
// per-collection contract the handlers are written against: list, get by id,
// add with a store-assigned id, partial-field update, delete, and filtered
// queries with ordering and limit.
type Store interface {
	DB() *gorm.DB

	ListDispensers(ctx context.Context) ([]model.Dispenser, error)
	GetDispenser(ctx context.Context, id string) (*model.Dispenser, error)
	CreateDispenser(ctx context.Context, d *model.Dispenser) error
	UpdateDispenser(ctx context.Context, id string, fields map[string]any) error
	DeleteDispenser(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)

	UsageByDispenser(ctx context.Context, dispenserID string, limit int) ([]model.UsageHistory, error)
	UsageByDispenserBetween(ctx context.Context, dispenserID string, from, to time.Time) ([]model.UsageHistory, error)
	RecordUsage(ctx context.Context, dispenserID, userID string, usage float64, now time.Time) (*model.UsageHistory, *UsageOutcome, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for callers that need to compose their
// own transactions, such as the subscription handlers.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) ListDispensers(ctx context.Context) ([]model.Dispenser, error) {
	var dispensers []model.Dispenser
	if err := s.db.WithContext(ctx).Order("created_at").Find(&dispensers).Error; err != nil {
		return nil, fmt.Errorf("failed to list dispensers: %w", err)
	}
	return dispensers, nil
}

func (s *gormStore) GetDispenser(ctx context.Context, id string) (*model.Dispenser, error) {
	var d model.Dispenser
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *gormStore) CreateDispenser(ctx context.Context, d *model.Dispenser) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to create dispenser: %w", err)
	}
	return nil
}

// UpdateDispenser merges the given column/value pairs into an existing row.
// Absent columns keep their stored values.
func (s *gormStore) UpdateDispenser(ctx context.Context, id string, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&model.Dispenser{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update dispenser %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *gormStore) DeleteDispenser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&model.Dispenser{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete dispenser %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *gormStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *gormStore) UsageByDispenser(ctx context.Context, dispenserID string, limit int) ([]model.UsageHistory, error) {
	var records []model.UsageHistory
	err := s.db.WithContext(ctx).
		Where("dispenser_id = ?", dispenserID).
		Order("date DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history: %w", err)
	}
	return records, nil
}

func (s *gormStore) UsageByDispenserBetween(ctx context.Context, dispenserID string, from, to time.Time) ([]model.UsageHistory, error) {
	var records []model.UsageHistory
	err := s.db.WithContext(ctx).
		Where("dispenser_id = ? AND date >= ? AND date <= ?", dispenserID, from, to).
		Order("date DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history window: %w", err)
	}
	return records, nil
}

// RecordUsage inserts a usage record and applies the resulting dispenser
// mutation in a single transaction: remaining volume is decremented (clamped
// at zero), status is reclassified, and the distinct-user counter is bumped
// when this is the pair's first recorded usage. Running the first-use check
// inside the transaction keeps concurrent submissions from double-counting a
// user.
func (s *gormStore) RecordUsage(ctx context.Context, dispenserID, userID string, usage float64, now time.Time) (*model.UsageHistory, *UsageOutcome, error) {
	var record model.UsageHistory
	var outcome UsageOutcome

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dispenser model.Dispenser
		if err := tx.First(&dispenser, "id = ?", dispenserID).Error; err != nil {
			return err
		}

		var prior int64
		if err := tx.Model(&model.UsageHistory{}).
			Where("dispenser_id = ? AND user_id = ?", dispenserID, userID).
			Count(&prior).Error; err != nil {
			return fmt.Errorf("failed to count prior usage: %w", err)
		}

		record = model.UsageHistory{
			DispenserID: dispenserID,
			UserID:      userID,
			Date:        now,
			Usage:       usage,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create usage record: %w", err)
		}

		capacity := dispenser.Capacity
		if capacity <= 0 {
			capacity = 1
		}
		newRemaining := math.Max(0, dispenser.Remaining-usage)
		percentage := newRemaining / capacity * 100
		newStatus := waterlevel.UsageStatus(percentage)

		updates := map[string]any{
			"remaining": newRemaining,
			"status":    newStatus,
			"last_sync": now,
		}
		firstUse := prior == 0
		if firstUse {
			updates["total_users"] = dispenser.TotalUsers + 1
		}
		if err := tx.Model(&model.Dispenser{}).Where("id = ?", dispenserID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update dispenser %s: %w", dispenserID, err)
		}

		outcome = UsageOutcome{
			Remaining:           newRemaining,
			Status:              newStatus,
			PercentageRemaining: int(math.Round(percentage)),
			PreviousStatus:      dispenser.Status,
			FirstTimeUser:       firstUse,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &record, &outcome, nil
}
