// Package partner orchestrates a verification run: re-affirm previously
// approved links, fetch and filter new thread comments, verify channel
// ownership, apply tier badges, and persist the result.
package partner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alexpopa-work/partnered-youtube-reddit/flair"
	"github.com/alexpopa-work/partnered-youtube-reddit/reddit"
	"github.com/alexpopa-work/partnered-youtube-reddit/state"
	"github.com/alexpopa-work/partnered-youtube-reddit/thread"
	"github.com/alexpopa-work/partnered-youtube-reddit/verify"
	"github.com/alexpopa-work/partnered-youtube-reddit/youtube"
)

const defaultLookback = 7 * 24 * time.Hour

// Outcome labels recorded per verification.
const (
	OutcomeVerified   = "verified"
	OutcomeReapproved = "reapproved"
	OutcomeRejected   = "rejected"
)

// Summary totals one finished run.
type Summary struct {
	Reapproved int
	Verified   int
	Rejected   int
	Duration   time.Duration
}

// VerificationRecord describes one comment's outcome for the audit trail.
type VerificationRecord struct {
	Author      string
	ChannelLink string
	Outcome     string
	Tier        string
	Subscribers string
	Views       string
}

// ThreadFetcher fetches a thread's reply listing and expands overflow
// markers.
type ThreadFetcher interface {
	Thread(ctx context.Context, postID string) ([]reddit.Comment, *reddit.More, error)
	MoreChildren(ctx context.Context, postID string, children []string) ([]reddit.Comment, error)
}

// OwnershipVerifier checks that a comment's author owns the linked channel.
type OwnershipVerifier interface {
	Verify(ctx context.Context, c thread.Comment, skipProofCheck bool) (*verify.Verification, error)
}

// BadgeApplier classifies a channel and applies its tier badge.
type BadgeApplier interface {
	Apply(ctx context.Context, username string, channel youtube.Channel) (*flair.Classification, error)
}

// StateStore loads and saves the approved-link state.
type StateStore interface {
	Load() (state.State, error)
	Save(st state.State) error
}

// RunRecorder archives runs and their verification outcomes.
type RunRecorder interface {
	BeginRun(ctx context.Context) (string, error)
	RecordVerification(ctx context.Context, runID string, rec *VerificationRecord) error
	FinishRun(ctx context.Context, runID string, reapproved, verified, rejected int) error
}

// RunNotifier delivers a run summary to the operator.
type RunNotifier interface {
	NotifyRun(s Summary) error
}

// Runner orchestrates the partner check workflow.
type Runner struct {
	fetcher      ThreadFetcher
	verifier     OwnershipVerifier
	applier      BadgeApplier
	store        StateStore
	recorder     RunRecorder
	notifier     RunNotifier
	postID       string
	lookback     time.Duration
	persistState bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLookback sets how far back a first run (no saved checkpoint) reaches.
func WithLookback(d time.Duration) Option {
	return func(r *Runner) {
		r.lookback = d
	}
}

// WithPersistState controls whether the run saves its state file at the end.
func WithPersistState(persist bool) Option {
	return func(r *Runner) {
		r.persistState = persist
	}
}

// WithRecorder adds an audit trail recorder. Recorder failures are logged
// and never abort the run.
func WithRecorder(rec RunRecorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithNotifier adds a run-summary notifier. Send failures are logged and
// never abort the run.
func WithNotifier(n RunNotifier) Option {
	return func(r *Runner) {
		r.notifier = n
	}
}

// NewRunner creates a partner check runner for one thread.
func NewRunner(
	fetcher ThreadFetcher,
	verifier OwnershipVerifier,
	applier BadgeApplier,
	store StateStore,
	postID string,
	opts ...Option,
) *Runner {
	r := &Runner{
		fetcher:      fetcher,
		verifier:     verifier,
		applier:      applier,
		store:        store,
		postID:       postID,
		lookback:     defaultLookback,
		persistState: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one partner check pass. Expected rejections (missing proof,
// deleted channels, malformed links) are logged and skipped; platform
// failures abort the run before anything is persisted.
func (r *Runner) Run(ctx context.Context) error {
	if r.postID == "" {
		return fmt.Errorf("post_id not set")
	}

	started := time.Now()
	slog.Info("starting partner check", "post_id", r.postID)

	// Step 1: Rehydrate prior approvals
	st, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	runID := r.beginAudit(ctx)

	var approved []state.ApprovedLink
	var totals Summary

	// Step 2: Reapprove. Approvals are permanent: every prior entry is
	// carried into the rebuilt list whether or not its channel still
	// resolves; only the badge refresh is skipped on rejection.
	for _, prior := range st.ApprovedLinks {
		approved = append(approved, prior)

		v, err := r.verifier.Verify(ctx, reapprovalComment(prior), true)
		if err != nil {
			if verify.IsRejection(err) {
				slog.Warn("reapproval rejected, keeping approval", "user", prior.UserID, "link", prior.ChannelLink, "error", err)
				totals.Rejected++
				r.record(ctx, runID, &VerificationRecord{
					Author:      prior.UserID,
					ChannelLink: prior.ChannelLink,
					Outcome:     OutcomeRejected,
				})
				continue
			}
			return fmt.Errorf("reapprove %s: %w", prior.UserID, err)
		}

		cl, err := r.applier.Apply(ctx, v.Author, v.Channel)
		if err != nil {
			return fmt.Errorf("refresh badge for %s: %w", v.Author, err)
		}
		totals.Reapproved++
		r.record(ctx, runID, recordFor(v, cl, OutcomeReapproved))
	}
	slog.Info("reapproved prior links", "refreshed", totals.Reapproved, "kept", len(approved))

	// Step 3: Fetch the window of new comments. The window is exclusive on
	// both ends: strictly after the saved checkpoint (or the lookback on a
	// first run), strictly before this run's start.
	windowStart := started.Add(-r.lookback)
	if st.LastChecked != nil {
		windowStart = *st.LastChecked
	}

	raw, more, err := r.fetcher.Thread(ctx, r.postID)
	if err != nil {
		return fmt.Errorf("fetch thread: %w", err)
	}

	var overflow []reddit.Comment
	if more != nil && len(more.Children) > 0 {
		overflow, err = r.fetcher.MoreChildren(ctx, r.postID, more.Children)
		if err != nil {
			return fmt.Errorf("expand thread overflow: %w", err)
		}
	}

	comments := thread.Filter(raw, overflow, windowStart, started)
	slog.Info("fetched thread", "reply_count", len(raw), "overflow_count", len(overflow), "candidate_count", len(comments))

	// Step 4: Verify each candidate in source order
	for _, c := range comments {
		v, err := r.verifier.Verify(ctx, c, false)
		if err != nil {
			if verify.IsRejection(err) {
				logRejection(c, err)
				totals.Rejected++
				r.record(ctx, runID, &VerificationRecord{
					Author:      c.Author,
					ChannelLink: c.Link,
					Outcome:     OutcomeRejected,
				})
				continue
			}
			return fmt.Errorf("verify comment by %s: %w", c.Author, err)
		}

		approved = append(approved, state.ApprovedLink{
			UserID:      v.Author,
			CommentID:   strconv.FormatInt(c.CreatedUTC, 10),
			ChannelLink: v.Link,
		})

		cl, err := r.applier.Apply(ctx, v.Author, v.Channel)
		if err != nil {
			return fmt.Errorf("apply badge for %s: %w", v.Author, err)
		}
		totals.Verified++
		r.record(ctx, runID, recordFor(v, cl, OutcomeVerified))
		slog.Info("verified channel", "user", v.Author, "channel", v.Link)
	}

	// Step 5: Persist the rebuilt state
	if r.persistState {
		if err := r.store.Save(state.State{LastChecked: &started, ApprovedLinks: approved}); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	totals.Duration = time.Since(started)
	r.finishAudit(ctx, runID, totals)
	r.notify(totals)

	slog.Info("partner check complete",
		"reapproved", totals.Reapproved,
		"verified", totals.Verified,
		"rejected", totals.Rejected,
		"approved_total", len(approved),
	)
	return nil
}

// reapprovalComment rebuilds the minimal comment a prior approval came from;
// the stored comment ID is the original comment's UTC timestamp.
func reapprovalComment(link state.ApprovedLink) thread.Comment {
	createdUTC, _ := strconv.ParseInt(link.CommentID, 10, 64)
	return thread.Comment{
		Author:     link.UserID,
		Link:       link.ChannelLink,
		CreatedUTC: createdUTC,
	}
}

func recordFor(v *verify.Verification, cl *flair.Classification, outcome string) *VerificationRecord {
	rec := &VerificationRecord{
		Author:      v.Author,
		ChannelLink: v.Link,
		Outcome:     outcome,
		Subscribers: v.Channel.SubscriberCount,
		Views:       v.Channel.ViewCount,
	}
	if cl != nil {
		rec.Tier = cl.Tier.String()
	}
	return rec
}

func logRejection(c thread.Comment, err error) {
	if errors.Is(err, verify.ErrChannelNotFound) {
		slog.Error("channel not found", "user", c.Author, "link", c.Link)
		return
	}
	slog.Warn("comment rejected", "user", c.Author, "link", c.Link, "error", err)
}

func (r *Runner) beginAudit(ctx context.Context) string {
	if r.recorder == nil {
		return ""
	}
	runID, err := r.recorder.BeginRun(ctx)
	if err != nil {
		slog.Warn("failed to begin audit run", "error", err)
		return ""
	}
	return runID
}

func (r *Runner) record(ctx context.Context, runID string, rec *VerificationRecord) {
	if r.recorder == nil || runID == "" {
		return
	}
	if err := r.recorder.RecordVerification(ctx, runID, rec); err != nil {
		slog.Warn("failed to record verification", "user", rec.Author, "error", err)
	}
}

func (r *Runner) finishAudit(ctx context.Context, runID string, totals Summary) {
	if r.recorder == nil || runID == "" {
		return
	}
	if err := r.recorder.FinishRun(ctx, runID, totals.Reapproved, totals.Verified, totals.Rejected); err != nil {
		slog.Warn("failed to finish audit run", "error", err)
	}
}

func (r *Runner) notify(totals Summary) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyRun(totals); err != nil {
		slog.Warn("failed to send run summary", "error", err)
	}
}
