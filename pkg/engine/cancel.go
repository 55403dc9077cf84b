package engine

import "sync/atomic"

// Token is a shared, idempotent cancellation signal. Workers check it
// before pulling a new task; the engine clears it at the start and end of
// every run so state never leaks into the next run.
type Token struct {
	cancelled atomic.Bool
}

// NewToken creates a cleared cancellation token.
func NewToken() *Token {
	return &Token{}
}

// Cancel sets the token. Repeated calls are no-ops.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Reset clears the token. Repeated calls are no-ops.
func (t *Token) Reset() {
	t.cancelled.Store(false)
}
