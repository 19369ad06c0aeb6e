package capability

import (
	"context"
	"errors"
	"sync"
)

// ErrInterrupted is returned when a newer request or a stop took the slot
// away from a running one.
var ErrInterrupted = errors.New("interrupted by a newer request")

// Slot grants exclusive ownership of a device such as the speaker. Acquiring
// it cancels the previous owner.
type Slot struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Acquire cancels the current owner and returns a context owned by the
// caller. The release func must be called when the caller is done.
func (s *Slot) Acquire(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// Stop cancels the current owner, if any.
func (s *Slot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Busy reports whether the slot has an owner.
func (s *Slot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// interruption maps the outcome of work done under an owned context. Losing
// the slot wins over whatever the work itself returned, unless the caller's
// own context ended first.
func interruption(owned, parent context.Context, err error) error {
	switch {
	case owned.Err() == nil:
		return err
	case parent.Err() != nil:
		return parent.Err()
	default:
		return ErrInterrupted
	}
}
