package notification

import (
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"inventory-bot-backend/config"
)

// FromConfig assembles a Notifier from the notifier and push sections.
func FromConfig(cfg *config.Config, subs SubscriptionStore, log logrus.FieldLogger) (*Notifier, error) {
	var transports []Transport
	for _, name := range cfg.Notifier.Transports {
		switch name {
		case "smtp":
			t, err := NewSMTPTransport(cfg.Notifier.SMTP, cfg.Notifier.Timeout)
			if err != nil {
				return nil, err
			}
			transports = append(transports, t)
		case "webpush":
			if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
				return nil, fmt.Errorf("webpush transport requires VAPID keys")
			}
			transports = append(transports, NewWebPushTransport(subs, WebPushOptions(cfg.Push), log))
		case "log":
			transports = append(transports, LogTransport{Log: log})
		default:
			return nil, fmt.Errorf("unknown notification transport %q", name)
		}
	}
	return NewNotifier(log, cfg.Notifier.Timeout, transports...), nil
}

// WebPushOptions maps the push section onto webpush options.
func WebPushOptions(cfg config.PushConfig) *webpush.Options {
	return &webpush.Options{
		VAPIDPublicKey:  cfg.PublicKey,
		VAPIDPrivateKey: cfg.PrivateKey,
		Subscriber:      cfg.Subject,
		TTL:             cfg.TTL,
	}
}
