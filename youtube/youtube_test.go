package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexpopa-work/partnered-youtube-reddit/ytlink"
)

const channelJSON = `{
  "items": [
    {
      "snippet": {"description": "Gaming videos. Reddit: u/alice"},
      "statistics": {"subscriberCount": "150000", "viewCount": "2000000"}
    }
  ]
}`

func TestLookupChannelByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/youtube/v3/channels" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("id") != "UCabc" {
			t.Errorf("id = %q, want UCabc", q.Get("id"))
		}
		if q.Get("part") != "snippet,statistics" {
			t.Errorf("part = %q, want snippet,statistics", q.Get("part"))
		}
		if q.Get("key") != "test-key" {
			t.Errorf("key = %q, want test-key", q.Get("key"))
		}
		w.Write([]byte(channelJSON))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))

	channel, err := c.LookupChannel(context.Background(), ytlink.ChannelKey{Kind: ytlink.ByID, Value: "UCabc"})
	if err != nil {
		t.Fatalf("LookupChannel failed: %v", err)
	}
	if channel == nil {
		t.Fatal("channel = nil, want a channel")
	}
	if channel.Description != "Gaming videos. Reddit: u/alice" {
		t.Errorf("Description = %q", channel.Description)
	}
	if channel.SubscriberCount != "150000" {
		t.Errorf("SubscriberCount = %q, want 150000", channel.SubscriberCount)
	}
	if channel.ViewCount != "2000000" {
		t.Errorf("ViewCount = %q, want 2000000", channel.ViewCount)
	}
}

func TestLookupChannelParamPerKind(t *testing.T) {
	tests := []struct {
		name  string
		key   ytlink.ChannelKey
		param string
	}{
		{"by id", ytlink.ChannelKey{Kind: ytlink.ByID, Value: "UCabc"}, "id"},
		{"by legacy username", ytlink.ChannelKey{Kind: ytlink.ByLegacyUsername, Value: "alice"}, "forUsername"},
		{"by handle", ytlink.ChannelKey{Kind: ytlink.ByHandle, Value: "alice"}, "forHandle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotParam string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for _, p := range []string{"id", "forUsername", "forHandle"} {
					if r.URL.Query().Get(p) != "" {
						gotParam = p
					}
				}
				w.Write([]byte(channelJSON))
			}))
			defer server.Close()

			c := NewClient("test-key", WithBaseURL(server.URL))
			if _, err := c.LookupChannel(context.Background(), tt.key); err != nil {
				t.Fatalf("LookupChannel failed: %v", err)
			}
			if gotParam != tt.param {
				t.Errorf("lookup param = %q, want %q", gotParam, tt.param)
			}
		})
	}
}

func TestLookupChannelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))

	channel, err := c.LookupChannel(context.Background(), ytlink.ChannelKey{Kind: ytlink.ByHandle, Value: "nobody"})
	if err != nil {
		t.Fatalf("LookupChannel failed: %v", err)
	}
	if channel != nil {
		t.Errorf("channel = %+v, want nil for no match", channel)
	}
}

func TestLookupChannelMissingStatistics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [{"snippet": {"description": "u/bob"}}]}`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))

	channel, err := c.LookupChannel(context.Background(), ytlink.ChannelKey{Kind: ytlink.ByID, Value: "UCx"})
	if err != nil {
		t.Fatalf("LookupChannel failed: %v", err)
	}
	if channel.SubscriberCount != "" || channel.ViewCount != "" {
		t.Errorf("counts = %q/%q, want empty wire strings", channel.SubscriberCount, channel.ViewCount)
	}
}

func TestLookupChannelFirstItemWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [
  {"snippet": {"description": "first"}, "statistics": {"subscriberCount": "1", "viewCount": "1"}},
  {"snippet": {"description": "second"}, "statistics": {"subscriberCount": "2", "viewCount": "2"}}
]}`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))

	channel, err := c.LookupChannel(context.Background(), ytlink.ChannelKey{Kind: ytlink.ByID, Value: "UCx"})
	if err != nil {
		t.Fatalf("LookupChannel failed: %v", err)
	}
	if channel.Description != "first" {
		t.Errorf("Description = %q, want first", channel.Description)
	}
}

func TestLookupChannelServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))

	if _, err := c.LookupChannel(context.Background(), ytlink.ChannelKey{Kind: ytlink.ByID, Value: "UCx"}); err == nil {
		t.Fatal("expected error for server error")
	}
}
