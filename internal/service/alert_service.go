package service

import (
	"context"
	"net/http"
	"time"

	"github.com/serverwatch/notifier/internal/events"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/monitoring"
	"github.com/serverwatch/notifier/pkg/logger"
)

// Alerter raises operational alerts. Raising never fails the caller.
type Alerter interface {
	Raise(ctx context.Context, message string, fields map[string]interface{})
}

// AlertService posts alerts to a debug webhook. Without a webhook URL alerts
// are only logged and published.
type AlertService struct {
	webhookURL string
	httpClient *http.Client
	publisher  events.Publisher
}

// NewAlertService creates an alert service
func NewAlertService(webhookURL string, publisher events.Publisher) *AlertService {
	return &AlertService{
		webhookURL: webhookURL,
		httpClient: newWebhookHTTPClient(),
		publisher:  publisher,
	}
}

// Raise logs the alert and forwards it to the debug webhook
func (s *AlertService) Raise(ctx context.Context, message string, fields map[string]interface{}) {
	logFields := map[string]interface{}{"alert": message}
	for k, v := range fields {
		logFields[k] = v
	}
	logger.Warn("Operational alert raised", logFields)

	delivered := false
	if s.webhookURL != "" {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		err := sendWebhook(ctx, s.httpClient, s.webhookURL, models.DiscordWebhookPayload{
			Content:  message,
			Username: discordUsername,
		})
		if err != nil {
			logger.Error("Failed to send alert to debug webhook", err, nil)
		} else {
			delivered = true
			logger.Info("Sent message to debug webhook", nil)
		}
	}

	if delivered {
		monitoring.AlertsTotal.WithLabelValues("true").Inc()
	} else {
		monitoring.AlertsTotal.WithLabelValues("false").Inc()
	}
	events.PublishAlertRaised(s.publisher, message, delivered)
}
