package main

import (
	"testing"

	"github.com/bellaciao/heistops/internal/config"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := []struct {
		v    int
		want string
	}{
		{0, "info"},
		{1, "debug"},
		{2, "trace"},
		{5, "trace"},
	}
	for _, tt := range tests {
		if got := levelForVerbosity(tt.v); got != tt.want {
			t.Errorf("levelForVerbosity(%d) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestNewAlertManager(t *testing.T) {
	m, err := newAlertManager(config.AlertConfig{})
	if err != nil {
		t.Fatalf("newAlertManager: %v", err)
	}
	if m.Enabled() {
		t.Error("no destinations configured but manager is enabled")
	}

	m, err = newAlertManager(config.AlertConfig{
		DiscordWebhookURL: "https://discord.com/api/webhooks/1/token",
		WebhookURL:        "https://hooks.example.com/ops",
		WebhookHeaders:    "X-Team: ops",
	})
	if err != nil {
		t.Fatalf("newAlertManager: %v", err)
	}
	if !m.Enabled() {
		t.Error("expected manager with providers to be enabled")
	}

	if _, err := newAlertManager(config.AlertConfig{WebhookURL: "https://hooks.example.com", WebhookBody: "{{"}); err == nil {
		t.Error("expected error for invalid webhook body template")
	}
}
