package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandshakeDeadlineSucceedsBeforeTimeout(t *testing.T) {
	d := NewHandshakeDeadline(time.Second, nil)

	calls := 0
	err := d.Guard(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestHandshakeDeadlinePropagatesStepError(t *testing.T) {
	d := NewHandshakeDeadline(time.Second, nil)
	boom := context.Canceled

	err := d.Guard(context.Background(), func(ctx context.Context) (bool, error) {
		return false, boom
	})

	require.ErrorIs(t, err, boom)
}

func TestHandshakeDeadlineExpiresWhenStepNeverFinishes(t *testing.T) {
	d := NewHandshakeDeadline(20*time.Millisecond, nil)

	err := d.Guard(context.Background(), func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, nil
	})

	require.ErrorIs(t, err, ErrHandshakeTimedOut)
}
