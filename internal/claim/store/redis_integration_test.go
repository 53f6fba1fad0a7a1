//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"claimgate/pkg/platform/sentinel"
	"claimgate/pkg/testutil/containers"
)

type RedisConsumedStoreSuite struct {
	suite.Suite

	redis *containers.RedisContainer
	store *RedisConsumedStore
	ctx   context.Context
}

func TestRedisConsumedStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisConsumedStoreSuite))
}

func (s *RedisConsumedStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisConsumedStore(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisConsumedStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisConsumedStoreSuite) TestMarkAndCheck() {
	consumed, err := s.store.IsConsumed(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.False(consumed)

	s.Require().NoError(s.store.MarkConsumed(s.ctx, "tok-1", time.Minute))

	consumed, err = s.store.IsConsumed(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.True(consumed)

	s.ErrorIs(s.store.MarkConsumed(s.ctx, "tok-1", time.Minute), sentinel.ErrAlreadyUsed)
}

func (s *RedisConsumedStoreSuite) TestKeyExpires() {
	s.Require().NoError(s.store.MarkConsumed(s.ctx, "tok-short", 100*time.Millisecond))

	s.Require().Eventually(func() bool {
		consumed, err := s.store.IsConsumed(s.ctx, "tok-short")
		return err == nil && !consumed
	}, 2*time.Second, 50*time.Millisecond)
}

// TestSingleWinner races concurrent marks against real Redis: SET NX must
// admit exactly one.
func (s *RedisConsumedStoreSuite) TestSingleWinner() {
	const goroutines = 30

	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.MarkConsumed(s.ctx, "contested", time.Minute)
			if err == nil {
				winners.Add(1)
			} else if !errors.Is(err, sentinel.ErrAlreadyUsed) {
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
}
