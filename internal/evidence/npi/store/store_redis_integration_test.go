//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vetting/internal/evidence/npi"
	"vetting/internal/evidence/npi/store"
	"vetting/pkg/platform/sentinel"
	"vetting/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *store.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = store.NewRedisCache(s.redis.Client)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	fetched := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	result := &npi.VerificationResult{
		Candidate: "1003000126",
		Valid:     true,
		Record: &npi.RegistryRecord{
			Number:    "1003000126",
			Name:      "JANE ROE",
			Specialty: "Counselor",
			Status:    npi.StatusActive,
			City:      "AUSTIN",
			State:     "TX",
		},
		FetchedAt: fetched,
	}
	s.Require().NoError(s.cache.Save(ctx, result))

	found, err := s.cache.Find(ctx, "1003000126")
	s.Require().NoError(err)
	s.True(found.Valid)
	s.Equal("Counselor", found.Record.Specialty)
	s.True(fetched.Equal(found.FetchedAt))
}

func (s *RedisCacheSuite) TestMissIsNotFound() {
	_, err := s.cache.Find(context.Background(), "1234567893")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *RedisCacheSuite) TestTTLExpiresEntries() {
	ctx := context.Background()
	short := store.NewRedisCache(s.redis.Client, store.WithTTL(time.Second))
	s.Require().NoError(short.Save(ctx, &npi.VerificationResult{Candidate: "1245319599", Valid: true}))

	s.Eventually(func() bool {
		_, err := short.Find(ctx, "1245319599")
		return errors.Is(err, sentinel.ErrNotFound)
	}, 5*time.Second, 100*time.Millisecond)
}
