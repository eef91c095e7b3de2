package discord

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendLogMessage(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "goroute")
	err := c.SendLogMessage("ERROR", "seat map fetch failed", map[string]interface{}{
		"bus_id":  7,
		"attempt": 1,
	})
	if err != nil {
		t.Fatalf("SendLogMessage: %v", err)
	}

	if got.Username != "goroute" {
		t.Errorf("Expected username goroute, got %q", got.Username)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("Expected 1 embed, got %d", len(got.Embeds))
	}
	embed := got.Embeds[0]
	if embed.Color != 0xFF0000 {
		t.Errorf("Expected red for ERROR, got %#x", embed.Color)
	}
	if len(embed.Fields) != 2 || embed.Fields[0].Name != "attempt" {
		t.Errorf("Expected sorted fields, got %+v", embed.Fields)
	}
}

func TestDisabledClientDropsMessages(t *testing.T) {
	c := NewClient("", "goroute")
	if c.Enabled() {
		t.Error("Expected client without URL to be disabled")
	}
	if err := c.SendLogMessage("ERROR", "ignored", nil); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestSendMessageReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "goroute")
	if err := c.SendLogMessage("WARN", "slow down", nil); err == nil {
		t.Error("Expected error for 429 response")
	}
}
