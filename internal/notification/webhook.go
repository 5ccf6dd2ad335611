package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/bellaciao/heistops/internal/httpclient"
)

// DefaultWebhookBody is the request body template used when none is configured
const DefaultWebhookBody = `{"event": {{json .Type}}, "title": {{json .Title}}, "message": {{json .Message}}, "timestamp": {{json .Timestamp}}, "fields": {{json .Fields}}}`

// WebhookConfig holds generic webhook configuration
type WebhookConfig struct {
	URL         string
	Method      string
	Body        string // text/template over webhookData
	Headers     map[string]string
	ContentType string
	Timeout     time.Duration
}

// WebhookProvider posts a templated body to an arbitrary HTTP endpoint
type WebhookProvider struct {
	config WebhookConfig
	body   *template.Template
	client *http.Client
}

type webhookData struct {
	Type      string
	Title     string
	Message   string
	Timestamp string
	Fields    map[string]string
}

var webhookFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// NewWebhookProvider validates the body template and creates the provider
func NewWebhookProvider(config WebhookConfig) (*WebhookProvider, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("webhook URL not configured")
	}
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.ContentType == "" {
		config.ContentType = "application/json"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultSendTimeout
	}
	if config.Body == "" {
		config.Body = DefaultWebhookBody
	}

	tmpl, err := template.New("webhook").Funcs(webhookFuncs).Option("missingkey=zero").Parse(config.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook body template: %w", err)
	}

	return &WebhookProvider{
		config: config,
		body:   tmpl,
		client: httpclient.NewTraceClient("webhook", config.Timeout),
	}, nil
}

// Name returns the provider name
func (w *WebhookProvider) Name() string {
	return "webhook"
}

// Send renders the body for event and delivers it
func (w *WebhookProvider) Send(ctx context.Context, event Event) error {
	body, err := w.render(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, w.config.Method, w.config.URL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.config.ContentType)
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}
	return do(w.client, req)
}

func (w *WebhookProvider) render(event Event) (string, error) {
	fields := event.Fields
	if fields == nil {
		fields = map[string]string{}
	}

	var buf bytes.Buffer
	err := w.body.Execute(&buf, webhookData{
		Type:      string(event.Type),
		Title:     event.Title,
		Message:   event.Message,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Fields:    fields,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render webhook body: %w", err)
	}
	return buf.String(), nil
}

// ParseHeaders parses "Key: Value" pairs separated by commas or newlines.
// Entries without a colon or with an empty key are skipped.
func ParseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for entry := range strings.FieldsFuncSeq(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		key, value, ok := strings.Cut(entry, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}

// sortedKeys returns the field names in a stable order
func sortedKeys(fields map[string]string) []string {
	return slices.Sorted(maps.Keys(fields))
}
