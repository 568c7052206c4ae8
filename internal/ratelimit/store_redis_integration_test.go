//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vetting/internal/ratelimit"
	"vetting/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = ratelimit.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestLimitsPerKey() {
	ctx := context.Background()
	for i := range 3 {
		res, err := s.store.Allow(ctx, "198.51.100.7", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(ctx, "198.51.100.7", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)

	res, err = s.store.Allow(ctx, "198.51.100.8", 3, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	res, err := s.store.Allow(ctx, "198.51.100.9", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = s.store.Allow(ctx, "198.51.100.9", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.False(res.Allowed)

	time.Sleep(300 * time.Millisecond)
	res, err = s.store.Allow(ctx, "198.51.100.9", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
