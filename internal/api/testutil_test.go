package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"water-dispenser-backend/config"
	"water-dispenser-backend/internal/model"
	"water-dispenser-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeNotifier records dispatched dispenser IDs.
type fakeNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeNotifier) Dispatch(dispenserID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, dispenserID)
}

func (f *fakeNotifier) dispatched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

// setupRouter builds a router over a fresh in-memory database. The rate
// limiter is configured wide open so tests never trip it.
func setupRouter(t *testing.T) (*gin.Engine, store.Store, *fakeNotifier) {
	t.Helper()

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Dispenser{},
		&model.User{},
		&model.UsageHistory{},
		&model.PushSubscription{},
	))

	notifier := &fakeNotifier{}
	appStore := store.NewGormStore(db)
	router := NewRouter(appStore, nil, notifier, &config.ServerConfig{
		RateLimitPerSec: 10000,
		RateLimitBurst:  10000,
		CacheTTLSeconds: 1,
	})
	return router, appStore, notifier
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func seedDispenser(t *testing.T, s store.Store, capacity, remaining float64) *model.Dispenser {
	t.Helper()
	d := &model.Dispenser{
		Name:      "Office 3F",
		Capacity:  capacity,
		Remaining: remaining,
		Status:    model.StatusMedium,
	}
	require.NoError(t, s.CreateDispenser(context.Background(), d))
	return d
}

func seedUser(t *testing.T, s store.Store, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, s.DB().Create(u).Error)
	return u
}
