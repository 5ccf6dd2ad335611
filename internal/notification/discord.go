package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bellaciao/heistops/internal/httpclient"
)

// Discord embeds allow at most 25 fields
const maxDiscordFields = 25

const discordUsername = "Heistops"

// DiscordProvider sends notifications as Discord webhook embeds
type DiscordProvider struct {
	url    string
	client *http.Client
}

// NewDiscordProvider creates a Discord provider for the given webhook URL
func NewDiscordProvider(webhookURL string, timeout time.Duration) (*DiscordProvider, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("discord webhook URL not configured")
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &DiscordProvider{
		url:    webhookURL,
		client: httpclient.NewTraceClient("discord", timeout),
	}, nil
}

// Name returns the provider name
func (d *DiscordProvider) Name() string {
	return "discord"
}

// Send posts event as a single embed
func (d *DiscordProvider) Send(ctx context.Context, event Event) error {
	payload := discordPayload{
		Username: discordUsername,
		Embeds:   []discordEmbed{buildEmbed(event)},
	}
	return sendJSON(ctx, d.client, http.MethodPost, d.url, payload)
}

func buildEmbed(event Event) discordEmbed {
	embed := discordEmbed{
		Title:       event.Title,
		Description: event.Message,
		Color:       colorFor(event.Type),
		Timestamp:   event.Timestamp.Format(time.RFC3339),
		Footer:      &discordFooter{Text: discordUsername},
	}
	for _, name := range sortedKeys(event.Fields) {
		if len(embed.Fields) == maxDiscordFields {
			break
		}
		embed.Fields = append(embed.Fields, discordField{Name: name, Value: event.Fields[name], Inline: true})
	}
	return embed
}

func colorFor(eventType EventType) int {
	switch eventType {
	case EventResourceCritical:
		return 0xFF0000 // Red
	case EventResourceRecovered:
		return 0x00FF00 // Green
	default:
		return 0x808080 // Gray
	}
}

type discordPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordFooter struct {
	Text string `json:"text,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}
