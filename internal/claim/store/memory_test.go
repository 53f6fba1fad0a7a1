package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgate/pkg/platform/sentinel"
)

func TestInMemoryConsumedStore_MarkAndCheck(t *testing.T) {
	s := NewInMemoryConsumedStore()
	ctx := context.Background()

	consumed, err := s.IsConsumed(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, consumed)

	require.NoError(t, s.MarkConsumed(ctx, "tok-1", time.Minute))

	consumed, err = s.IsConsumed(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, consumed)

	// Second mark reports the fact.
	assert.ErrorIs(t, s.MarkConsumed(ctx, "tok-1", time.Minute), sentinel.ErrAlreadyUsed)
}

func TestInMemoryConsumedStore_ExpiryFreesTheKey(t *testing.T) {
	s := NewInMemoryConsumedStore()
	ctx := context.Background()

	require.NoError(t, s.MarkConsumed(ctx, "tok-1", -time.Second))

	consumed, err := s.IsConsumed(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, consumed, "expired markers do not count as consumed")
}

func TestInMemoryConsumedStore_EmptyTokenIDIsNoop(t *testing.T) {
	s := NewInMemoryConsumedStore()
	ctx := context.Background()

	require.NoError(t, s.MarkConsumed(ctx, "", time.Minute))
	consumed, err := s.IsConsumed(ctx, "")
	require.NoError(t, err)
	assert.False(t, consumed)
}

// TestInMemoryConsumedStore_SingleWinner races concurrent marks for one token
// and verifies exactly one caller gets the nil return.
func TestInMemoryConsumedStore_SingleWinner(t *testing.T) {
	s := NewInMemoryConsumedStore()
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.MarkConsumed(ctx, "contested", time.Minute)
			if err == nil {
				winners.Add(1)
			} else if !errors.Is(err, sentinel.ErrAlreadyUsed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
