package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"inventory-bot-backend/internal/model"
)

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real PushSender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (WebPushSender) Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotificationWithContext(ctx, payload, sub, options)
}

// SubscriptionStore is the subset of the store the webpush transport needs.
type SubscriptionStore interface {
	ListPushSubscriptions(ctx context.Context, recipient string) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// WebPushTransport delivers to every browser endpoint registered for the recipient.
type WebPushTransport struct {
	subs    SubscriptionStore
	options *webpush.Options
	sender  PushSender
	log     logrus.FieldLogger
}

// NewWebPushTransport creates a webpush transport using the real sender.
func NewWebPushTransport(subs SubscriptionStore, options *webpush.Options, log logrus.FieldLogger) *WebPushTransport {
	return &WebPushTransport{subs: subs, options: options, sender: WebPushSender{}, log: log}
}

func (*WebPushTransport) Name() string { return "webpush" }

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Deliver succeeds when at least one endpoint accepted the message.
func (w *WebPushTransport) Deliver(ctx context.Context, msg Message) error {
	subs, err := w.subs.ListPushSubscriptions(ctx, msg.Recipient)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return ErrNoSubscribers
	}

	payload, err := json.Marshal(pushPayload{Title: msg.Subject, Body: msg.Body})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	var lastErr error
	accepted := 0
	for _, sub := range subs {
		if err := w.sendOne(ctx, sub, payload); err != nil {
			lastErr = err
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return lastErr
	}
	return nil
}

func (w *WebPushTransport) sendOne(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := w.sender.Send(ctx, payload, wpSub, w.options)
	if err != nil {
		return fmt.Errorf("push to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	// Expired subscriptions are removed so they are not retried next cycle.
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		w.log.WithField("endpoint", sub.Endpoint).Info("push subscription expired, deleting")
		if err := w.subs.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			w.log.WithField("endpoint", sub.Endpoint).Warnf("failed to delete expired subscription: %v", err)
		}
		return fmt.Errorf("push to %s: subscription gone", sub.Endpoint)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push to %s: unexpected status %d", sub.Endpoint, resp.StatusCode)
	}
	return nil
}
