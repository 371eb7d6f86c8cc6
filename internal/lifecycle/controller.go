// Package lifecycle owns the state machine of a single report session:
// idle → loading → success | error, with stale results discarded by token.
package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jnst/lifetime-analyzer/internal/generation"
	"github.com/jnst/lifetime-analyzer/internal/model"
	"github.com/jnst/lifetime-analyzer/internal/prompt"
)

var (
	// ErrBusy is returned by Submit and Retry while a generation is in flight.
	ErrBusy = errors.New("a report is already being generated")
	// ErrNothingToRetry is returned by Retry outside the error state.
	ErrNothingToRetry = errors.New("nothing to retry")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

const (
	subscriberBuffer = 8
	recordTimeout    = 5 * time.Second
)

// Generator turns a prompt into report text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder receives metadata about every settled generation call.
type Recorder interface {
	Record(ctx context.Context, event *model.GenerationEvent) error
}

// Controller serializes all transitions of one session under mu.
// The only work done outside the lock is the generation call itself.
type Controller struct {
	id        string
	generator Generator
	recorder  Recorder
	model     string
	now       func() time.Time
	logger    *slog.Logger
	baseCtx   context.Context

	mu      sync.Mutex
	state   model.SessionState
	input   *model.UserInput
	token   uint64
	cancel  context.CancelFunc
	subs    map[int]chan model.SessionState
	nextSub int
	closed  bool
}

// New creates a controller in the idle state.
func New(generator Generator, opts ...Option) *Controller {
	c := &Controller{
		generator: generator,
		now:       time.Now,
		logger:    slog.Default(),
		baseCtx:   context.Background(),
		state:     model.IdleState(0),
		subs:      make(map[int]chan model.SessionState),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ID returns the session identifier the controller was created with.
func (c *Controller) ID() string {
	return c.id
}

// State returns the current snapshot.
func (c *Controller) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Input returns the last submitted input, if any.
func (c *Controller) Input() (model.UserInput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.input == nil {
		return model.UserInput{}, false
	}

	return *c.input, true
}

// Submit validates input and, if it is valid, starts one generation call.
// While loading it returns ErrBusy and changes nothing.
// A validation failure moves the session to error without calling the generator.
func (c *Controller) Submit(input model.UserInput) (*Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.submitLocked(input)
}

// Retry re-submits the last input. It is only allowed from the error state.
func (c *Controller) Retry() (*Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if c.state.Phase == model.PhaseLoading {
		return nil, ErrBusy
	}

	if c.state.Phase != model.PhaseError || c.input == nil {
		return nil, ErrNothingToRetry
	}

	return c.submitLocked(*c.input)
}

// Reset returns the session to idle. An in-flight call is canceled and its
// result, if it still arrives, is discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.supersedeLocked()
	c.setLocked(model.IdleState(c.token))
}

// Close cancels any in-flight call and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.supersedeLocked()
	c.closed = true

	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// Subscribe streams state snapshots, starting with the current one.
// A slow reader misses intermediate snapshots but always sees the latest.
func (c *Controller) Subscribe() (<-chan model.SessionState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan model.SessionState, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			if sub, ok := c.subs[id]; ok {
				close(sub)
				delete(c.subs, id)
			}
		})
	}
}

// Subscribers returns the number of open subscriptions.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.subs)
}

func (c *Controller) submitLocked(input model.UserInput) (*Ticket, error) {
	if c.closed {
		return nil, ErrClosed
	}

	if c.state.Phase == model.PhaseLoading {
		return nil, ErrBusy
	}

	normalized := input.Normalize()
	c.input = &normalized

	c.supersedeLocked()
	token := c.token
	now := c.now()

	if err := normalized.Validate(now); err != nil {
		c.logger.Debug("submission rejected", slog.Uint64("token", token), slog.String("reason", err.Error()))
		c.setLocked(model.ErrorState(token, model.ValidationKind(err), model.ValidationMessage(err)))

		return settledTicket(token), nil
	}

	c.setLocked(model.LoadingState(token))

	facts, err := model.DeriveFacts(normalized, now)
	if err != nil {
		c.setLocked(model.ErrorState(token, model.ValidationKind(err), model.ValidationMessage(err)))
		return settledTicket(token), nil
	}

	text, err := prompt.Synthesize(normalized, facts)
	if err != nil {
		c.logger.Error("prompt synthesis failed", slog.String("error", err.Error()))
		c.setLocked(model.ErrorState(token, model.ErrorKindUnreachable, generation.UnknownErrorMessage))

		return settledTicket(token), nil
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel

	done := make(chan struct{})
	go c.generate(ctx, cancel, token, text, done)

	return &Ticket{Token: token, done: done}, nil
}

func (c *Controller) generate(ctx context.Context, cancel context.CancelFunc, token uint64, text string, done chan struct{}) {
	defer close(done)
	defer cancel()

	started := time.Now()
	report, err := c.generator.Generate(ctx, text)
	elapsed := time.Since(started)

	if err == nil && strings.TrimSpace(report) == "" {
		err = generation.NewServiceError("empty response")
	}

	applied := c.complete(token, report, err)
	c.record(ctx, token, text, report, err, elapsed, !applied)
}

// complete applies a generation result if its token is still current.
func (c *Controller) complete(token uint64, report string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || token != c.token {
		c.logger.Debug("discarding stale generation result",
			slog.Uint64("token", token),
			slog.Uint64("current_token", c.token),
		)

		return false
	}

	c.cancel = nil

	if err != nil {
		kind := generation.KindOf(err)
		c.logger.Warn("generation failed",
			slog.Uint64("token", token),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		c.setLocked(model.ErrorState(token, model.ErrorKind(kind), generation.Message(err)))

		return true
	}

	c.logger.Info("generation succeeded", slog.Uint64("token", token), slog.Int("report_bytes", len(report)))
	c.setLocked(model.SuccessState(token, report))

	return true
}

func (c *Controller) record(ctx context.Context, token uint64, text, report string, err error, elapsed time.Duration, stale bool) {
	if c.recorder == nil {
		return
	}

	sum := sha256.Sum256([]byte(text))
	event := &model.GenerationEvent{
		SessionID:    c.id,
		Token:        token,
		Action:       model.EventActionGenerationSucceeded,
		Model:        c.model,
		PromptSHA256: hex.EncodeToString(sum[:]),
		PromptBytes:  len(text),
		ReportBytes:  len(report),
		Stale:        stale,
		Duration:     elapsed,
		OccurredAt:   c.now(),
	}

	if err != nil {
		event.Action = model.EventActionGenerationFailed
		event.FailureKind = model.ErrorKind(generation.KindOf(err))
		event.ReportBytes = 0
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := c.recorder.Record(recordCtx, event); err != nil {
		c.logger.Error("failed to record generation", slog.Uint64("token", token), slog.String("error", err.Error()))
	}
}

// supersedeLocked starts a new token and cancels the call tied to the old one.
func (c *Controller) supersedeLocked() {
	c.token++

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) setLocked(state model.SessionState) {
	c.state = state

	for _, ch := range c.subs {
		select {
		case ch <- state:
		default:
			// Drop the oldest snapshot to make room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}
