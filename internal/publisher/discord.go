package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"engagement_tracker/internal/domain"
)

const discordColor = 0x2ECC71

type DiscordConfig struct {
	WebhookURL string
	Username   string
	Timeout    time.Duration
}

// Discord posts phase transitions to a Discord channel webhook.
type Discord struct {
	client     *resty.Client
	webhookURL string
	username   string
	logger     *slog.Logger
}

type discordMessage struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	URL       string         `json:"url,omitempty"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Timestamp string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func NewDiscord(cfg DiscordConfig, logger *slog.Logger) *Discord {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Discord{
		client:     resty.New().SetTimeout(timeout),
		webhookURL: cfg.WebhookURL,
		username:   cfg.Username,
		logger:     logger.With("sink", "discord"),
	}
}

func (d *Discord) NotifyPhaseChange(ctx context.Context, t domain.PhaseTransition) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(d.buildMessage(t)).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}

	// Discord answers 204 unless ?wait=true is set.
	if resp.IsError() {
		return fmt.Errorf("discord webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	d.logger.Debug("sent phase change", "post_id", t.PostID, "to", t.To)
	return nil
}

func (d *Discord) buildMessage(t domain.PhaseTransition) *discordMessage {
	return &discordMessage{
		Username: d.username,
		Embeds: []discordEmbed{{
			Title: fmt.Sprintf("%s post moved %s → %s", t.Platform, t.From, t.To),
			URL:   t.URL,
			Color: discordColor,
			Fields: []discordField{
				{Name: "Post", Value: fmt.Sprintf("#%d", t.PostID), Inline: true},
				{Name: "Views", Value: fmt.Sprintf("%d", t.Views), Inline: true},
				{Name: "Comments", Value: fmt.Sprintf("%d", t.Comments), Inline: true},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	}
}
