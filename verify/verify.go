// Package verify checks that a commenting redditor owns the YouTube channel
// they linked.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexpopa-work/partnered-youtube-reddit/thread"
	"github.com/alexpopa-work/partnered-youtube-reddit/youtube"
	"github.com/alexpopa-work/partnered-youtube-reddit/ytlink"
)

// Expected verification outcomes. Everything else coming out of Verify is a
// platform failure and fatal to the run.
var (
	ErrNoLink          = errors.New("comment has no channel link")
	ErrMalformedLink   = errors.New("channel link is malformed")
	ErrChannelNotFound = errors.New("channel not found")
	ErrProofMissing    = errors.New("ownership proof missing from channel description")
)

// IsRejection reports whether err is an expected verification outcome rather
// than a platform failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNoLink) ||
		errors.Is(err, ErrMalformedLink) ||
		errors.Is(err, ErrChannelNotFound) ||
		errors.Is(err, ErrProofMissing)
}

// ChannelLookup fetches channels from the video platform.
type ChannelLookup interface {
	LookupChannel(ctx context.Context, key ytlink.ChannelKey) (*youtube.Channel, error)
}

// Verification is the successful outcome of an ownership check: the author,
// their normalized channel link, and the channel as fetched this run.
type Verification struct {
	Author  string
	Link    string
	Channel youtube.Channel
}

// Verifier runs the ownership check against the video platform.
type Verifier struct {
	lookup ChannelLookup
}

// NewVerifier creates a verifier backed by the given channel lookup.
func NewVerifier(lookup ChannelLookup) *Verifier {
	return &Verifier{lookup: lookup}
}

// Verify normalizes the comment's link, resolves its channel, and checks the
// channel description names the author as u/<author>, case-insensitively.
// skipProofCheck drops the description check; it is used only when
// re-affirming links already approved in a prior run. Rejections are
// sentinel errors; lookup failures propagate as-is.
func (v *Verifier) Verify(ctx context.Context, c thread.Comment, skipProofCheck bool) (*Verification, error) {
	if c.Link == "" {
		return nil, ErrNoLink
	}

	link := ytlink.Normalize(c.Link)
	key, err := ytlink.Resolve(link)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedLink, c.Link)
	}

	channel, err := v.lookup.LookupChannel(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup channel: %w", err)
	}
	if channel == nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, link)
	}
	if channel.Description == "" && channel.SubscriberCount == "" && channel.ViewCount == "" {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, link)
	}

	if !skipProofCheck && !ownsChannel(c.Author, channel.Description) {
		return nil, fmt.Errorf("%w: u/%s not named by %s", ErrProofMissing, c.Author, link)
	}

	return &Verification{Author: c.Author, Link: link, Channel: *channel}, nil
}

func ownsChannel(author, description string) bool {
	proof := strings.ToLower("u/" + author)
	return strings.Contains(strings.ToLower(description), proof)
}
