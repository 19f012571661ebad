package api

import (
	"water-dispenser-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

// Notifier dispatches a dispenser ID to the alerting pipeline. Satisfied by
// notification.WorkerPool; nil disables alerting.
type Notifier interface {
	Dispatch(dispenserID string)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	webpush  *webpush.Options
	notifier Notifier
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, notifier Notifier) *Handler {
	return &Handler{
		store:    s,
		webpush:  webpushOptions,
		notifier: notifier,
	}
}

// dispatchAlert forwards a dispenser to the notifier when one is configured.
func (h *Handler) dispatchAlert(dispenserID string) {
	if h.notifier != nil {
		h.notifier.Dispatch(dispenserID)
	}
}
