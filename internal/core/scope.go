package core

import (
	"context"
	"slices"
	"sync"
)

// Scope registers teardown functions. *testing.T satisfies it, as does
// LifetimeScope.
type Scope interface {
	Cleanup(func())
}

// LifetimeScope runs its cleanups, last registered first, when Close is
// called or its parent context is done, whichever happens first.
type LifetimeScope struct {
	mu       sync.Mutex
	cleanups []func()
	closed   bool
	done     chan struct{}
}

// NewScope returns a scope bound to ctx.
func NewScope(ctx context.Context) *LifetimeScope {
	s := &LifetimeScope{done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s
}

// Cleanup registers fn. On a closed scope fn runs immediately.
func (s *LifetimeScope) Cleanup(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
	s.mu.Unlock()
}

// Close runs the registered cleanups in reverse order. It is idempotent.
func (s *LifetimeScope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	fns := slices.Clone(s.cleanups)
	s.cleanups = nil
	s.mu.Unlock()

	slices.Reverse(fns)
	for _, fn := range fns {
		fn()
	}
	close(s.done)
}

// Done is closed after Close has run every cleanup.
func (s *LifetimeScope) Done() <-chan struct{} {
	return s.done
}
