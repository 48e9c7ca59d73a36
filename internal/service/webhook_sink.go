package service

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/pkg/logger"
)

// DefaultMapIconsURL is the CDN serving one <map>.jpg per map
const DefaultMapIconsURL = "https://cdn.gametools.network/maps/battlebit/"

var urlPattern = regexp.MustCompile(`(https?://\S+)`)

var regionFlags = map[string]string{
	"America_Central":   ":flag_us:",
	"Europe_Central":    ":flag_eu:",
	"Asia_Central":      ":flag_white:",
	"Brazil_Central":    ":flag_br:",
	"Australia_Central": ":flag_au:",
	"Japan_Central":     ":flag_jp:",
}

// WebhookSink posts one message per matched server to a shared channel
// webhook, mentioning every recipient.
type WebhookSink struct {
	webhookURL  string
	mapIconsURL string
	httpClient  *http.Client
	now         func() time.Time
}

// NewWebhookSink creates a sink for the given channel webhook
func NewWebhookSink(webhookURL, mapIconsURL string) *WebhookSink {
	if mapIconsURL == "" {
		mapIconsURL = DefaultMapIconsURL
	}
	if !strings.HasSuffix(mapIconsURL, "/") {
		mapIconsURL += "/"
	}
	return &WebhookSink{
		webhookURL:  webhookURL,
		mapIconsURL: mapIconsURL,
		httpClient:  newWebhookHTTPClient(),
		now:         time.Now,
	}
}

// DeliverBatch sends the event to the channel
func (s *WebhookSink) DeliverBatch(ctx context.Context, event models.MatchEvent) error {
	if err := sendWebhook(ctx, s.httpClient, s.webhookURL, s.buildPayload(event)); err != nil {
		return err
	}

	logger.Debug("Match notification sent", map[string]interface{}{
		"server_name": event.Server.Name,
		"recipients":  len(event.Recipients),
	})
	return nil
}

// buildPayload creates the channel message for a match event
func (s *WebhookSink) buildPayload(event models.MatchEvent) models.DiscordWebhookPayload {
	server := event.Server

	mentions := make([]string, len(event.Recipients))
	for i, recipient := range event.Recipients {
		mentions[i] = fmt.Sprintf("<@%s>", recipient)
	}

	queue := ""
	if server.QueuePlayers > 0 {
		queue = fmt.Sprintf("(+%d)", server.QueuePlayers)
	}

	embed := models.DiscordEmbed{
		Title:       "Server Match Found",
		Description: "A server has been found matching your criterias.",
		Color:       models.ColorYellow,
		Fields: []models.DiscordEmbedField{
			{
				Name: SanitizeServerName(server.Name),
				Value: fmt.Sprintf("**Players**: %d%s/%d\n**Map**: %s\n**Region**: %s\n**Gamemode**: %s",
					server.Players, queue, server.MaxPlayers, server.Map, RegionFlag(server.Region), server.Gamemode),
			},
		},
		Thumbnail: &models.DiscordEmbedThumbnail{
			URL: s.mapIconsURL + server.Map + ".jpg",
		},
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}

	return models.DiscordWebhookPayload{
		Content:  ":loudspeaker: • " + strings.Join(mentions, ", "),
		Username: discordUsername,
		Embeds:   []models.DiscordEmbed{embed},
		AllowedMentions: &models.DiscordAllowedMentions{
			Parse: []string{},
			Users: event.Recipients,
		},
	}
}

// SanitizeServerName wraps links in angle brackets so chat clients do not
// unfurl them
func SanitizeServerName(name string) string {
	return urlPattern.ReplaceAllString(name, "<$1>")
}

// RegionFlag returns the chat emoji for a region
func RegionFlag(region string) string {
	if flag, ok := regionFlags[region]; ok {
		return flag
	}
	return ":question:"
}
