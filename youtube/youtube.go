// Package youtube is a thin client for the YouTube Data API channel lookup
// the bot needs.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alexpopa-work/partnered-youtube-reddit/ytlink"
)

const defaultBaseURL = "https://www.googleapis.com"

// Channel holds the channel fields the bot inspects. The counts stay as the
// API's wire strings: they may be absent (hidden subscriber counts) and the
// tier classifier owns parsing them.
type Channel struct {
	Description     string
	SubscriberCount string
	ViewCount       string
}

// Client provides access to the YouTube Data API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a YouTube Data API client using an API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupChannel fetches the channel a key points at, requesting its snippet
// and statistics. A key that matches no channel returns (nil, nil); only
// transport and decode failures are errors.
func (c *Client) LookupChannel(ctx context.Context, key ytlink.ChannelKey) (*Channel, error) {
	params := url.Values{
		"part": {"snippet,statistics"},
		"key":  {c.apiKey},
	}
	switch key.Kind {
	case ytlink.ByID:
		params.Set("id", key.Value)
	case ytlink.ByHandle:
		params.Set("forHandle", key.Value)
	default:
		params.Set("forUsername", key.Value)
	}

	reqURL := c.baseURL + "/youtube/v3/channels?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var list channelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(list.Items) == 0 {
		return nil, nil
	}

	item := list.Items[0]
	return &Channel{
		Description:     item.Snippet.Description,
		SubscriberCount: item.Statistics.SubscriberCount,
		ViewCount:       item.Statistics.ViewCount,
	}, nil
}

// YouTube Data API types

type channelListResponse struct {
	Items []channelResource `json:"items"`
}

type channelResource struct {
	Snippet struct {
		Description string `json:"description"`
	} `json:"snippet"`
	Statistics struct {
		SubscriberCount string `json:"subscriberCount"`
		ViewCount       string `json:"viewCount"`
	} `json:"statistics"`
}
