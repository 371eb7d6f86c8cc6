package lifecycle

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Controller.
type Option func(*Controller)

// WithID tags the controller and its audit events with a session ID.
func WithID(id string) Option {
	return func(c *Controller) {
		c.id = id
	}
}

// WithClock injects the source of the current date.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRecorder sets the audit recorder. A nil recorder disables auditing.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithModel names the model in audit events.
func WithModel(model string) Option {
	return func(c *Controller) {
		c.model = model
	}
}

// WithLogger sets the logger used for transition and failure logs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBaseContext sets the parent of every generation call's context.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}
