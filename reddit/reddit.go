// Package reddit is a thin client for the parts of the Reddit API the bot
// touches: one thread's reply listing, morechildren expansion, and user
// flair assignment.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL  = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	kindComment = "t1"
	kindMore    = "more"
)

// DeletedAuthor is the author sentinel Reddit substitutes for removed
// accounts.
const DeletedAuthor = "[deleted]"

// Comment is a raw thread reply as the listing returns it. Creation times
// are the wire's fractional unix seconds.
type Comment struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Created    float64 `json:"created"`
	CreatedUTC float64 `json:"created_utc"`
}

// More marks replies beyond the initially returned set; Children holds the
// comment IDs a morechildren call expands.
type More struct {
	Count    int      `json:"count"`
	Children []string `json:"children"`
}

// Credentials identify a Reddit script app and the account it acts as.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// Client provides access to the Reddit API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokenURL   string
	creds      Credentials
	tokens     oauth2.TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTokenURL sets a custom token endpoint (for testing).
func WithTokenURL(url string) Option {
	return func(c *Client) {
		c.tokenURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a Reddit API client authenticating with the script-app
// password grant. The token is fetched lazily on first use and reused until
// it expires.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		tokenURL:   defaultTokenURL,
		creds:      creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = oauth2.ReuseTokenSource(nil, &passwordTokenSource{client: c})
	return c
}

// passwordTokenSource obtains fresh tokens with the password grant; Reddit
// script apps get no refresh token, so renewal is a full re-grant.
type passwordTokenSource struct {
	client *Client
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	c := s.client
	conf := &oauth2.Config{
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	tok, err := conf.PasswordCredentialsToken(ctx, c.creds.Username, c.creds.Password)
	if err != nil {
		return nil, fmt.Errorf("reddit token: %w", err)
	}
	return tok, nil
}

// Thread fetches the reply listing of a thread root: its direct replies in
// source order, plus the trailing overflow marker when one is present.
func (c *Client) Thread(ctx context.Context, postID string) ([]Comment, *More, error) {
	var listings []listing
	if err := c.get(ctx, "/comments/"+postID, url.Values{"raw_json": {"1"}}, &listings); err != nil {
		return nil, nil, fmt.Errorf("fetch thread %s: %w", postID, err)
	}
	if len(listings) < 2 {
		return nil, nil, fmt.Errorf("fetch thread %s: unexpected listing shape", postID)
	}

	var comments []Comment
	var more *More
	for _, th := range listings[1].Data.Children {
		switch th.Kind {
		case kindComment:
			var cm Comment
			if err := json.Unmarshal(th.Data, &cm); err != nil {
				return nil, nil, fmt.Errorf("decode comment: %w", err)
			}
			comments = append(comments, cm)
		case kindMore:
			if more == nil {
				m := More{}
				if err := json.Unmarshal(th.Data, &m); err != nil {
					return nil, nil, fmt.Errorf("decode more marker: %w", err)
				}
				more = &m
			}
		}
	}
	return comments, more, nil
}

// MoreChildren expands an overflow marker's comment IDs into full comments,
// preserving the order the API returns.
func (c *Client) MoreChildren(ctx context.Context, postID string, children []string) ([]Comment, error) {
	params := url.Values{
		"api_type": {"json"},
		"link_id":  {"t3_" + postID},
		"children": {strings.Join(children, ",")},
		"raw_json": {"1"},
	}

	var resp moreChildrenResponse
	if err := c.get(ctx, "/api/morechildren", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch morechildren: %w", err)
	}

	var comments []Comment
	for _, th := range resp.JSON.Data.Things {
		if th.Kind != kindComment {
			continue
		}
		var cm Comment
		if err := json.Unmarshal(th.Data, &cm); err != nil {
			return nil, fmt.Errorf("decode overflow comment: %w", err)
		}
		comments = append(comments, cm)
	}
	return comments, nil
}

// SetFlair assigns flair text to a user from a flair template. Assigning the
// same flair twice leaves the same end state, so callers may repeat it
// freely.
func (c *Client) SetFlair(ctx context.Context, subreddit, username, text, templateID string) error {
	form := url.Values{
		"api_type":          {"json"},
		"name":              {username},
		"text":              {text},
		"flair_template_id": {templateID},
	}
	if err := c.postForm(ctx, "/r/"+subreddit+"/api/selectflair", form); err != nil {
		return fmt.Errorf("set flair for %s: %w", username, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if len(resp.JSON.Errors) > 0 {
		return fmt.Errorf("api error: %v", resp.JSON.Errors[0])
	}
	return nil
}

func (c *Client) do(req *http.Request, v any) error {
	tok, err := c.tokens.Token()
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Listing envelope types. Thing data stays raw until the kind is known.

type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type moreChildrenResponse struct {
	JSON struct {
		Data struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

type apiResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
	} `json:"json"`
}
