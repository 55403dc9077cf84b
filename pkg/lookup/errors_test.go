package lookup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransientDriverError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransientDriverError("session disconnected", cause)

	assert.Equal(t, "transient driver error: session disconnected: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsTransient(err))

	bare := NewTransientDriverError("chrome not reachable", nil)
	assert.Equal(t, "transient driver error: chrome not reachable", bare.Error())
}

func TestIsTransient_Wrapped(t *testing.T) {
	err := fmt.Errorf("attempt 2: %w", NewTransientDriverError("no such window", nil))
	assert.True(t, IsTransient(err))
	assert.False(t, IsTransient(errors.New("no such window")))
	assert.False(t, IsTransient(nil))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled))
	assert.True(t, IsCancelled(fmt.Errorf("lookup: %w", ErrCancelled)))
	assert.False(t, IsCancelled(context.Canceled))
	assert.False(t, IsCancelled(nil))
}
