package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"inventory-bot-backend/internal/bot"
	"inventory-bot-backend/internal/cycle"
	"inventory-bot-backend/internal/store"
)

// StatusSource exposes the latest bot results.
type StatusSource interface {
	Reports() []cycle.Report
	Health() (bot.HealthReport, bool)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	status  StatusSource
	webpush *webpush.Options
	log     logrus.FieldLogger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, status StatusSource, webpushOptions *webpush.Options, log logrus.FieldLogger) *Handler {
	return &Handler{
		store:   s,
		status:  status,
		webpush: webpushOptions,
		log:     log,
	}
}
