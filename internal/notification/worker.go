package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"water-dispenser-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends notifications through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans low-water alerts out to push subscribers. Handlers dispatch
// a dispenser ID whenever its status drops into the low/offline band.
type WorkerPool struct {
	size    int
	jobs    chan string
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case dispenserID := <-wp.jobs:
			wp.alertSubscribers(ctx, dispenserID)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert for the given dispenser.
func (wp *WorkerPool) Dispatch(dispenserID string) {
	wp.jobs <- dispenserID
}

// alertSubscribers notifies every subscription watching the dispenser.
func (wp *WorkerPool) alertSubscribers(ctx context.Context, dispenserID string) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_dispenser_mapping sdm ON sdm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sdm.dispenser_id = ?", dispenserID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for dispenser %s: %v", dispenserID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := dispenserID
	var dispenser model.Dispenser
	if err := wp.db.WithContext(ctx).
		Select("name").
		First(&dispenser, "id = ?", dispenserID).Error; err != nil {
		log.Printf("Error fetching dispenser %s: %v", dispenserID, err)
	} else if dispenser.Name != "" {
		label = dispenser.Name
	}

	log.Printf("Sending %d low-water alerts for dispenser %s", len(subscriptions), dispenserID)
	payload := []byte(fmt.Sprintf("Dispenser %s is running low and needs a refill", label))
	for _, sub := range subscriptions {
		wp.push(ctx, sub, payload)
	}
}

// push sends a single web push notification, pruning expired subscriptions.
func (wp *WorkerPool) push(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription %s is expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
