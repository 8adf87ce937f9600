// Package handshake provides the one-shot signals that order the content
// server and the render task.
//
// A Signal fires exactly once and is observed exactly once. The producer
// either Sends (success) or Fails (it cannot produce the event); the consumer
// Waits. Misuse on either side is reported as an assertion failure.
package handshake

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	// ErrAlreadySent is returned when a producer fires a Signal twice.
	ErrAlreadySent = errors.New("signal already sent")
	// ErrAlreadyConsumed is returned when a Signal is waited on twice.
	ErrAlreadyConsumed = errors.New("signal already consumed")
	// ErrAbandoned is returned to the waiter when the producer gave up.
	ErrAbandoned = errors.New("signal abandoned by producer")
)

// Signal is a single-producer, single-consumer, one-shot notification.
type Signal struct {
	name string

	mu       sync.Mutex
	fired    bool
	consumed bool
	cause    error
	ch       chan struct{}
}

// New returns an unfired Signal. The name appears in error messages.
func New(name string) *Signal {
	return &Signal{name: name, ch: make(chan struct{})}
}

// Name reports the signal's name.
func (s *Signal) Name() string {
	return s.name
}

// Send fires the signal.
func (s *Signal) Send() error {
	return s.fire(nil)
}

// Fail fires the signal with a cause; the waiter receives ErrAbandoned
// wrapping it.
func (s *Signal) Fail(cause error) error {
	if cause == nil {
		cause = errors.New("no cause given")
	}
	return s.fire(cause)
}

func (s *Signal) fire(cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return errors.Mark(
			errors.AssertionFailedf("handshake %q fired twice", s.name),
			ErrAlreadySent,
		)
	}
	s.fired = true
	s.cause = cause
	close(s.ch)
	return nil
}

// Fired reports whether Send or Fail has been called.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Wait blocks until the signal fires or ctx is done. It may be called once.
func (s *Signal) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		return errors.Mark(
			errors.AssertionFailedf("handshake %q consumed twice", s.name),
			ErrAlreadyConsumed,
		)
	}
	s.consumed = true
	s.mu.Unlock()

	select {
	case <-s.ch:
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "wait for %s", s.name)
	}

	s.mu.Lock()
	cause := s.cause
	s.mu.Unlock()
	if cause != nil {
		return errors.Mark(errors.Wrapf(cause, "%s abandoned", s.name), ErrAbandoned)
	}
	return nil
}

// Done returns a channel closed once the signal has fired. It does not
// consume the signal and is meant for select loops that also call Wait.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}
