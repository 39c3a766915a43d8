// Package batch validates finished wizard or transcript work and submits it as one
// all-or-nothing request to the session logging endpoint.
package batch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/transcript"
	"github.com/pavelanni/caseload/internal/wizard"
)

// Submitter sends a batch of session log entries in a single request.
type Submitter interface {
	LogSessions(ctx context.Context, entries []model.SessionLogEntry) error
}

// Result describes a successful submission.
type Result struct {
	Path    Path
	Entries []model.SessionLogEntry
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// OnComplete registers a callback run after every successful submission, once the
// source workflow has been reset.
func OnComplete(fn func(Result)) Option {
	return func(c *Coordinator) { c.onComplete = fn }
}

// Coordinator submits batches. At most one submission runs at a time.
type Coordinator struct {
	submitter  Submitter
	now        func() time.Time
	log        *slog.Logger
	onComplete func(Result)
	inFlight   atomic.Bool
}

// New creates a coordinator that sends batches through s.
func New(s Submitter, opts ...Option) *Coordinator {
	c := &Coordinator{
		submitter: s,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Pending reports whether a submission is in flight.
func (c *Coordinator) Pending() bool { return c.inFlight.Load() }

// SubmitManual validates the controller's current selection and submits it. On success
// the wizard is reset; on any failure its state is left untouched.
func (c *Coordinator) SubmitManual(ctx context.Context, w *wizard.Controller) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	s := w.State()
	entries, err := ManualEntries(s, c.stamp(s.Timestamp()))
	if err != nil {
		c.log.Info("batch refused", "path", PathManual, "error", err)
		return Result{}, err
	}
	if err := c.send(ctx, PathManual, entries); err != nil {
		return Result{}, err
	}
	w.Reset()
	return c.complete(PathManual, entries), nil
}

// SubmitTranscript validates every parsed session held by r and submits one entry per
// session. On success the resolver is reset; on any failure it is left untouched.
func (c *Coordinator) SubmitTranscript(ctx context.Context, r *transcript.Resolver) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	entries, err := TranscriptEntries(r, c.stamp(r.Timestamp()))
	if err != nil {
		c.log.Info("batch refused", "path", PathTranscript, "error", err)
		return Result{}, err
	}
	if err := c.send(ctx, PathTranscript, entries); err != nil {
		return Result{}, err
	}
	r.Reset()
	return c.complete(PathTranscript, entries), nil
}

func (c *Coordinator) stamp(explicit *time.Time) time.Time {
	if explicit != nil {
		return *explicit
	}
	return c.now().UTC()
}

func (c *Coordinator) send(ctx context.Context, path Path, entries []model.SessionLogEntry) error {
	if err := c.submitter.LogSessions(ctx, entries); err != nil {
		c.log.Error("batch submission failed", "path", path, "entries", len(entries), "error", err)
		return &SubmissionError{Path: path, Entries: len(entries), Err: err}
	}
	c.log.Info("batch submitted", "path", path, "entries", len(entries))
	return nil
}

func (c *Coordinator) complete(path Path, entries []model.SessionLogEntry) Result {
	res := Result{Path: path, Entries: entries}
	if c.onComplete != nil {
		c.onComplete(res)
	}
	return res
}
