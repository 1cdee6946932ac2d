// Package notificationtest provides a recording Gateway for tests.
package notificationtest

import (
	"context"
	"sync"
)

// Sent is one recorded notification.
type Sent struct {
	Subject   string
	Body      string
	Recipient string
}

// Recorder records every Send call. Fail makes Send report failure for matching recipients.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent

	Fail func(recipient string) bool
}

// Send records the message and reports success unless Fail says otherwise.
func (r *Recorder) Send(_ context.Context, subject, body, recipient string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Subject: subject, Body: body, Recipient: recipient})
	if r.Fail != nil && r.Fail(recipient) {
		return false
	}
	return true
}

// Sent returns a copy of every recorded message.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// To returns the messages sent to recipient.
func (r *Recorder) To(recipient string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Recipient == recipient {
			out = append(out, s)
		}
	}
	return out
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
