package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoTransport is returned when no transport is configured.
	ErrNoTransport = errors.New("no notification transport configured")
	// ErrNoSubscribers is returned by the webpush transport when the recipient has no endpoints.
	ErrNoSubscribers = errors.New("recipient has no push subscriptions")
)

// Gateway sends a notification and reports whether it was delivered. It never panics or returns errors.
type Gateway interface {
	Send(ctx context.Context, subject, body, recipient string) bool
}

// Message is one outbound notification.
type Message struct {
	Subject   string
	Body      string
	Recipient string
}

// Transport delivers messages over one channel.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

// Notifier fans a message out to every configured transport with a bounded timeout per call.
type Notifier struct {
	transports []Transport
	timeout    time.Duration
	log        logrus.FieldLogger
}

// NewNotifier creates a Notifier. A non-positive timeout defaults to ten seconds.
func NewNotifier(log logrus.FieldLogger, timeout time.Duration, transports ...Transport) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{transports: transports, timeout: timeout, log: log}
}

// Send reports true when at least one transport delivered the message.
func (n *Notifier) Send(ctx context.Context, subject, body, recipient string) bool {
	msg := Message{Subject: subject, Body: body, Recipient: recipient}
	entry := n.log.WithFields(logrus.Fields{"recipient": recipient, "subject": subject})

	if recipient == "" {
		entry.Warn("notification skipped: empty recipient")
		return false
	}
	if len(n.transports) == 0 {
		entry.Warn(ErrNoTransport.Error())
		return false
	}

	delivered := false
	for _, t := range n.transports {
		if err := n.deliver(ctx, t, msg); err != nil {
			entry.WithField("transport", t.Name()).Warnf("notification delivery failed: %v", err)
			continue
		}
		entry.WithField("transport", t.Name()).Debug("notification delivered")
		delivered = true
	}
	return delivered
}

// deliver runs the transport in its own goroutine so a call that ignores ctx cannot stall the caller.
func (n *Notifier) deliver(ctx context.Context, t Transport, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("transport %s panicked: %v", t.Name(), r)
			}
		}()
		done <- t.Deliver(ctx, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("transport %s: %w", t.Name(), ctx.Err())
	}
}

// LogTransport writes notifications to the log instead of sending them.
type LogTransport struct {
	Log logrus.FieldLogger
}

func (LogTransport) Name() string { return "log" }

func (l LogTransport) Deliver(_ context.Context, msg Message) error {
	l.Log.WithFields(logrus.Fields{
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
	}).Info(msg.Body)
	return nil
}
