package discord

import (
	"strings"
	"testing"
	"time"

	"lol-monitor/pkg/lol"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantID    string
		wantToken string
		wantErr   bool
	}{
		{"discord.com", "https://discord.com/api/webhooks/123456/abc-DEF_ghi", "123456", "abc-DEF_ghi", false},
		{"versioned api", "https://discord.com/api/v10/webhooks/42/tok", "42", "tok", false},
		{"trailing slash", "https://discordapp.com/api/webhooks/42/tok/", "42", "tok", false},
		{"missing token", "https://discord.com/api/webhooks/42", "", "", true},
		{"not a webhook", "https://example.com/hooks/42/tok", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, token, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if id != tt.wantID || token != tt.wantToken {
				t.Errorf("ParseURL() = %q, %q, want %q, %q", id, token, tt.wantID, tt.wantToken)
			}
		})
	}
}

func TestEmbed(t *testing.T) {
	r := lol.Report{
		At:      time.Date(2025, 10, 1, 21, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
		Subject: "LoL user Faker#KR1 match summary",
		Heading: "LoL user Faker#KR1 last match summary",
		Fields: []lol.Field{
			{Name: "Champion", Value: "Ahri"},
			{Name: "Blue team", Value: strings.Repeat("x", 2000)},
			{Name: "Timestamp", Value: "Wed 01 Oct 2025, 21:00"},
		},
	}
	emb := Embed(r)

	if emb.Title != r.Subject || emb.Description != r.Heading {
		t.Errorf("title/description = %q/%q", emb.Title, emb.Description)
	}
	if len(emb.Fields) != 2 {
		t.Fatalf("got %d fields, want 2 (timestamp becomes the embed timestamp)", len(emb.Fields))
	}
	if !emb.Fields[0].Inline || emb.Fields[1].Inline {
		t.Error("stat fields should be inline and team fields full width")
	}
	if n := len([]rune(emb.Fields[1].Value)); n != maxValue {
		t.Errorf("long value has %d runes, want truncation to %d", n, maxValue)
	}
	if emb.Timestamp != "2025-10-01T19:00:00Z" {
		t.Errorf("embed timestamp = %q, want the report time in UTC", emb.Timestamp)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("not a url", nil); err == nil {
		t.Error("New() should fail for an invalid webhook URL")
	}
}
