package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeepAlive_Reconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	done := make(chan struct{})

	go func() {
		KeepAlive(ctx, "eth", ReconnectPolicy{
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			StableAfter:     time.Second,
		}, func(ctx context.Context) error {
			attempts++
			if attempts == 3 {
				cancel()
				return nil
			}
			return errors.New("connection reset")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("KeepAlive did not return after cancel")
	}

	require.Equal(t, 3, attempts)
}
