package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"outpass-backend/internal/model"
	"outpass-backend/internal/obs"
	"outpass-backend/internal/store"
)

// queueFactor sizes the job buffer relative to the number of workers.
const queueFactor = 64

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body the service worker receives.
type Payload struct {
	Title  string           `json:"title"`
	Body   string           `json:"body"`
	Kind   model.NoticeKind `json:"kind"`
	PassID string           `json:"passId"`
}

// WorkerPool delivers notices to every subscription of the requester.
type WorkerPool struct {
	size    int
	jobs    chan model.Notice
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Notice, size*queueFactor),
		store:   s,
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
	log.Printf("Worker %d started", id)
	for {
		select {
		case n := <-wp.jobs:
			wp.deliver(ctx, n)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a notice. It never blocks the caller; when the queue is
// full the notice is dropped.
func (wp *WorkerPool) Dispatch(n model.Notice) {
	if wp == nil {
		return
	}
	select {
	case wp.jobs <- n:
	default:
		obs.NotificationsSent.WithLabelValues("dropped").Inc()
		log.Printf("Notification queue full, dropping %s notice for pass %s", n.Kind, n.PassID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.Notice {
	return wp.jobs
}

func messageFor(n model.Notice) Payload {
	p := Payload{Kind: n.Kind, PassID: n.PassID}
	switch n.Kind {
	case model.NoticeApproved:
		p.Title, p.Body = "Outpass approved", "Your outpass has been fully approved. Show the QR code at the gate."
	case model.NoticeRejected:
		p.Title, p.Body = "Outpass rejected", "Your outpass request was rejected."
	case model.NoticeOverdue:
		p.Title, p.Body = "Outpass overdue", "Your outpass window has ended. Please return and check in at the gate."
	default:
		p.Title, p.Body = "Outpass update", "There is an update on your outpass."
	}
	return p
}

func (wp *WorkerPool) deliver(ctx context.Context, n model.Notice) {
	subscriptions, err := wp.store.SubscriptionsFor(ctx, n.RequesterID)
	if err != nil {
		log.Printf("Error fetching subscriptions for %s: %v", n.RequesterID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(messageFor(n))
	if err != nil {
		log.Printf("Error encoding %s notice for pass %s: %v", n.Kind, n.PassID, err)
		return
	}

	log.Printf("Sending %d %s notifications for pass %s", len(subscriptions), n.Kind, n.PassID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		obs.NotificationsSent.WithLabelValues("failed").Inc()
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		obs.NotificationsSent.WithLabelValues("expired").Inc()
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return
	}
	obs.NotificationsSent.WithLabelValues("sent").Inc()
}
