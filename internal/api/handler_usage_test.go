package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-dispenser-backend/internal/model"
)

func TestCreateUsageHistory(t *testing.T) {
	router, s, _ := setupRouter(t)
	d := seedDispenser(t, s, 100, 50)
	u := seedUser(t, s, "alice")

	w := doJSON(router, http.MethodPost, "/api/usage-history", map[string]any{
		"dispenserId": d.ID,
		"userId":      u.ID,
		"usage":       20,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, d.ID, data["dispenserId"])
	assert.Equal(t, u.ID, data["userId"])
	assert.Equal(t, 20.0, data["usage"])

	updates := body["dispenserUpdates"].(map[string]any)
	assert.Equal(t, 30.0, updates["remaining"])
	assert.Equal(t, "medium", updates["status"])
	assert.Equal(t, 30.0, updates["percentageRemaining"])

	var stored model.Dispenser
	require.NoError(t, s.DB().First(&stored, "id = ?", d.ID).Error)
	assert.Equal(t, 30.0, stored.Remaining)
	assert.Equal(t, 1, stored.TotalUsers)
}

func TestCreateUsageHistory_TotalUsersOncePerUser(t *testing.T) {
	router, s, _ := setupRouter(t)
	d := seedDispenser(t, s, 100, 100)
	u := seedUser(t, s, "alice")

	for i := 0; i < 2; i++ {
		w := doJSON(router, http.MethodPost, "/api/usage-history", map[string]any{
			"dispenserId": d.ID,
			"userId":      u.ID,
			"usage":       5,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	var stored model.Dispenser
	require.NoError(t, s.DB().First(&stored, "id = ?", d.ID).Error)
	assert.Equal(t, 1, stored.TotalUsers)
}

func TestCreateUsageHistory_DrainToLowAlerts(t *testing.T) {
	router, s, notifier := setupRouter(t)
	d := seedDispenser(t, s, 100, 40)
	u := seedUser(t, s, "alice")

	w := doJSON(router, http.MethodPost, "/api/usage-history", map[string]any{
		"dispenserId": d.ID,
		"userId":      u.ID,
		"usage":       30,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{d.ID}, notifier.dispatched())
}

func TestCreateUsageHistory_Validation(t *testing.T) {
	router, s, _ := setupRouter(t)
	d := seedDispenser(t, s, 100, 50)
	u := seedUser(t, s, "alice")

	testCases := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{"missing usage", map[string]any{"dispenserId": d.ID, "userId": u.ID}, "Missing required fields: dispenserId, userId, usage"},
		{"missing userId", map[string]any{"dispenserId": d.ID, "usage": 5}, "Missing required fields: dispenserId, userId, usage"},
		{"zero usage", map[string]any{"dispenserId": d.ID, "userId": u.ID, "usage": 0}, "Usage must be a positive number"},
		{"negative usage", map[string]any{"dispenserId": d.ID, "userId": u.ID, "usage": -3}, "Usage must be a positive number"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/usage-history", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.message, decodeBody(t, w)["message"])
		})
	}
}

func TestCreateUsageHistory_UnknownReferences(t *testing.T) {
	router, s, _ := setupRouter(t)
	d := seedDispenser(t, s, 100, 50)
	u := seedUser(t, s, "alice")

	w := doJSON(router, http.MethodPost, "/api/usage-history", map[string]any{
		"dispenserId": "nope", "userId": u.ID, "usage": 5,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Dispenser with ID 'nope' not found", decodeBody(t, w)["message"])

	w = doJSON(router, http.MethodPost, "/api/usage-history", map[string]any{
		"dispenserId": d.ID, "userId": "nope", "usage": 5,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User with ID 'nope' not found", decodeBody(t, w)["message"])
}

func TestGetUsageHistory_JoinsUsers(t *testing.T) {
	router, s, _ := setupRouter(t)
	d := seedDispenser(t, s, 100, 100)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	base := time.Now().UTC().Add(-time.Hour)
	for i, u := range []*model.User{alice, bob, alice} {
		require.NoError(t, s.DB().Create(&model.UsageHistory{
			DispenserID: d.ID,
			UserID:      u.ID,
			Date:        base.Add(time.Duration(i) * time.Minute),
			Usage:       2,
		}).Error)
	}

	w := doJSON(router, http.MethodGet, "/api/usage-history/"+d.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, 3.0, body["count"])
	entries := body["data"].([]any)
	require.Len(t, entries, 3)

	// Newest first, with user profiles embedded.
	first := entries[0].(map[string]any)
	assert.Equal(t, alice.ID, first["userId"])
	require.NotNil(t, first["user"])
	assert.Equal(t, "alice", first["user"].(map[string]any)["name"])

	second := entries[1].(map[string]any)
	assert.Equal(t, bob.ID, second["userId"])
	assert.Equal(t, "bob", second["user"].(map[string]any)["name"])
}

func TestGetUsageHistory_MissingUserJoinsAsNull(t *testing.T) {
	router, s, _ := setupRouter(t)
	d := seedDispenser(t, s, 100, 100)

	require.NoError(t, s.DB().Create(&model.UsageHistory{
		DispenserID: d.ID,
		UserID:      "gone",
		Date:        time.Now().UTC(),
		Usage:       2,
	}).Error)

	w := doJSON(router, http.MethodGet, "/api/usage-history/"+d.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	entries := decodeBody(t, w)["data"].([]any)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].(map[string]any)["user"])
}

func TestGetUsageHistory_Limit(t *testing.T) {
	router, s, _ := setupRouter(t)
	d := seedDispenser(t, s, 100, 100)
	u := seedUser(t, s, "alice")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		require.NoError(t, s.DB().Create(&model.UsageHistory{
			DispenserID: d.ID,
			UserID:      u.ID,
			Date:        base.Add(time.Duration(i) * time.Minute),
			Usage:       1,
		}).Error)
	}

	// Default limit is 10.
	w := doJSON(router, http.MethodGet, "/api/usage-history/"+d.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10.0, decodeBody(t, w)["count"])

	w = doJSON(router, http.MethodGet, "/api/usage-history/"+d.ID+"?limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, decodeBody(t, w)["count"])

	w = doJSON(router, http.MethodGet, "/api/usage-history/"+d.ID+"?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUsageHistory_Empty(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/usage-history/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No usage history found", decodeBody(t, w)["message"])
}

func TestGetWeeklyUsageHistory_Window(t *testing.T) {
	router, s, _ := setupRouter(t)
	d := seedDispenser(t, s, 100, 100)
	u := seedUser(t, s, "alice")

	end := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{
		end.AddDate(0, 0, -8), // outside
		end.AddDate(0, 0, -6),
		end.AddDate(0, 0, -1),
	}
	for _, date := range dates {
		require.NoError(t, s.DB().Create(&model.UsageHistory{
			DispenserID: d.ID,
			UserID:      u.ID,
			Date:        date,
			Usage:       1,
		}).Error)
	}

	w := doJSON(router, http.MethodGet, fmt.Sprintf("/api/usage-history/%s/weekly?date=2026-08-15", d.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, 2.0, body["count"])

	dateRange := body["dateRange"].(map[string]any)
	assert.Equal(t, "2026-08-08T00:00:00Z", dateRange["from"])
	assert.Equal(t, "2026-08-15T00:00:00Z", dateRange["to"])

	entries := body["data"].([]any)
	first := entries[0].(map[string]any)
	second := entries[1].(map[string]any)
	assert.Greater(t, first["date"].(string), second["date"].(string), "descending by date")
}

func TestGetWeeklyUsageHistory_BadDate(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/usage-history/d1/weekly?date=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWeeklyUsageHistory_Empty(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/usage-history/nope/weekly", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No usage history found for the specified week", decodeBody(t, w)["message"])
}
