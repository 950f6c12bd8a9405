package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Observer receives one observation per completed call. The metrics
// package's Recorder satisfies it.
type Observer interface {
	ObserveLLMCall(provider, operation, status string, elapsed time.Duration)
}

// Call outcome labels passed to Observer.
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusCanceled    = "canceled"
	StatusTimeout     = "timeout"
	StatusUnavailable = "unavailable"
)

// Instrumented decorates a Completer with a per-call timeout, structured
// logging and call observations.
type Instrumented struct {
	next     Completer
	provider string
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

// Option configures an Instrumented completer.
type Option func(*Instrumented)

// WithTimeout bounds each call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Instrumented) { c.timeout = d }
}

// WithObserver sets the call observer.
func WithObserver(o Observer) Option {
	return func(c *Instrumented) { c.observer = o }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Instrumented) { c.logger = l }
}

// Instrument wraps next, labelling observations with provider.
func Instrument(next Completer, provider string, opts ...Option) *Instrumented {
	c := &Instrumented{next: next, provider: provider, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements Completer.
func (c *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	requestID := uuid.NewString()
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("llm call started",
		"request_id", requestID,
		"provider", c.provider,
		"operation", req.Operation,
		"prompt_chars", len(req.Prompt))

	start := time.Now()
	out, err := c.next.Complete(callCtx, req)
	elapsed := time.Since(start)

	status := StatusOK
	switch {
	case err == nil:
	case ctx.Err() != nil:
		status = StatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		status = StatusTimeout
	case IsUnavailable(err):
		status = StatusUnavailable
	default:
		status = StatusError
	}
	if c.observer != nil {
		c.observer.ObserveLLMCall(c.provider, req.Operation, status, elapsed)
	}

	if err != nil {
		c.logger.Warn("llm call failed",
			"request_id", requestID,
			"provider", c.provider,
			"operation", req.Operation,
			"status", status,
			"elapsed", elapsed,
			"error", err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsUnavailable(err) {
			err = Unavailable(c.provider, err)
		}
		return "", err
	}

	c.logger.Debug("llm call finished",
		"request_id", requestID,
		"provider", c.provider,
		"operation", req.Operation,
		"elapsed", elapsed,
		"response_chars", len(out))
	return out, nil
}
