package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/serverwatch/notifier/internal/models"
)

const discordUsername = "Server Notifier"

// DiscordStatusError is returned when a webhook answers with a non-2xx status
type DiscordStatusError struct {
	StatusCode int
}

func (e *DiscordStatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}

func newWebhookHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

// sendWebhook posts a payload to a Discord webhook
func sendWebhook(ctx context.Context, client *http.Client, webhookURL string, payload models.DiscordWebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DiscordStatusError{StatusCode: resp.StatusCode}
	}

	return nil
}
