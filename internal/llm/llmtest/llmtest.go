// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/HendryAvila/prdkb/internal/llm"
)

// ErrScriptExhausted is returned when a Scripted completer receives more
// calls than it has replies.
var ErrScriptExhausted = errors.New("llmtest: no scripted reply left")

// Reply is one scripted answer.
type Reply struct {
	Text string
	Err  error
	// Block makes the call wait for ctx cancellation before returning.
	Block bool
}

// Scripted answers calls in order from its replies and records every
// request it receives.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.Request
	// Repeat, when set, answers every call after the script runs out.
	Repeat *Reply
}

// New returns a Scripted completer answering with texts in order.
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Failing returns a Scripted completer whose every call fails with err.
func Failing(err error) *Scripted {
	return &Scripted{Repeat: &Reply{Err: err}}
}

// Always returns a Scripted completer answering every call with text.
func Always(text string) *Scripted {
	return &Scripted{Repeat: &Reply{Text: text}}
}

// Push appends replies to the script.
func (s *Scripted) Push(replies ...Reply) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
	return s
}

// Complete implements llm.Completer.
func (s *Scripted) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	var r Reply
	switch {
	case len(s.replies) > 0:
		r = s.replies[0]
		s.replies = s.replies[1:]
	case s.Repeat != nil:
		r = *s.Repeat
	default:
		s.mu.Unlock()
		return "", ErrScriptExhausted
	}
	s.mu.Unlock()

	if r.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.Text, r.Err
}

// Requests returns a copy of the requests received so far.
func (s *Scripted) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.requests...)
}

// Calls returns the number of requests received so far.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
