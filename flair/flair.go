// Package flair classifies channels into popularity tiers and applies the
// matching badge flair.
package flair

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/alexpopa-work/partnered-youtube-reddit/youtube"
)

// Tier is a channel popularity tier.
type Tier int

const (
	// TierSecond is the entry tier for verified channels.
	TierSecond Tier = iota
	// TierTop is for channels clearing either popularity threshold.
	TierTop
)

// String returns the tier's display name.
func (t Tier) String() string {
	if t == TierTop {
		return "top"
	}
	return "second"
}

// Classification is the result of classifying a channel's statistics.
type Classification struct {
	Tier        Tier
	Subscribers int64
	Views       int64
}

// Classifier assigns tiers based on subscriber and view thresholds.
type Classifier struct {
	minSubscribers int64
	minViews       int64
}

// NewClassifier creates a classifier with the given tier thresholds.
func NewClassifier(minSubscribers, minViews int64) *Classifier {
	return &Classifier{
		minSubscribers: minSubscribers,
		minViews:       minViews,
	}
}

// Classify parses the wire-string counts and assigns a tier. Channels with a
// count missing or unparseable (hidden subscriber counts) report ok=false
// and get no badge. Either threshold alone is enough for the top tier.
func (c *Classifier) Classify(subscriberCount, viewCount string) (Classification, bool) {
	subs, err := strconv.ParseInt(subscriberCount, 10, 64)
	if err != nil {
		return Classification{}, false
	}
	views, err := strconv.ParseInt(viewCount, 10, 64)
	if err != nil {
		return Classification{}, false
	}

	tier := TierSecond
	if subs >= c.minSubscribers || views >= c.minViews {
		tier = TierTop
	}
	return Classification{Tier: tier, Subscribers: subs, Views: views}, true
}

// Template pairs a subreddit flair template with the emoji its badges show.
type Template struct {
	ID    string
	Emoji string
}

// FlairSetter assigns user flair on the discussion platform.
type FlairSetter interface {
	SetFlair(ctx context.Context, subreddit, username, text, templateID string) error
}

// Applier formats and applies tier badges. Applying the same badge twice
// leaves the same end state, so callers repeat it every run to keep counts
// fresh.
type Applier struct {
	setter     FlairSetter
	classifier *Classifier
	subreddit  string
	top        Template
	second     Template
}

// NewApplier creates an applier for one subreddit's tier templates.
func NewApplier(setter FlairSetter, classifier *Classifier, subreddit string, top, second Template) *Applier {
	return &Applier{
		setter:     setter,
		classifier: classifier,
		subreddit:  subreddit,
		top:        top,
		second:     second,
	}
}

// Apply classifies the channel, sets the user's badge flair, and returns the
// classification it applied. A channel with incomplete statistics is skipped
// without error or flair change and reports a nil classification.
func (a *Applier) Apply(ctx context.Context, username string, channel youtube.Channel) (*Classification, error) {
	cl, ok := a.classifier.Classify(channel.SubscriberCount, channel.ViewCount)
	if !ok {
		return nil, nil
	}

	tmpl := a.second
	if cl.Tier == TierTop {
		tmpl = a.top
	}

	text := badgeText(tmpl.Emoji, cl.Subscribers, cl.Views)
	if err := a.setter.SetFlair(ctx, a.subreddit, username, text, tmpl.ID); err != nil {
		return nil, fmt.Errorf("apply flair: %w", err)
	}
	return &cl, nil
}

func badgeText(emoji string, subscribers, views int64) string {
	return fmt.Sprintf(":%s: %s subs | %s views", emoji, humanize.Comma(subscribers), humanize.Comma(views))
}
