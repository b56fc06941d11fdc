//go:build integration

package sequence_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rtscore/internal/sequence"
	"rtscore/pkg/domain"
	"rtscore/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *sequence.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = sequence.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "sequence_counters"))
}

func (s *PostgresStoreSuite) TestIncrementStartsAtOne() {
	ctx := context.Background()
	key := sequence.Key{
		Tenant: domain.TenantID(uuid.New()),
		Family: sequence.FamilyEnrollment,
		Month:  12,
		Year:   2025,
	}

	v, err := s.store.Increment(ctx, key)
	s.Require().NoError(err)
	s.Equal(1, v)

	v, err = s.store.Increment(ctx, key)
	s.Require().NoError(err)
	s.Equal(2, v)
}

func (s *PostgresStoreSuite) TestCountersAreIndependentPerKey() {
	ctx := context.Background()
	tenant := domain.TenantID(uuid.New())

	december := sequence.Key{Tenant: tenant, Family: sequence.FamilyEnrollment, Month: 12, Year: 2025}
	january := sequence.Key{Tenant: tenant, Family: sequence.FamilyEnrollment, Month: 1, Year: 2026}
	receipts := sequence.Key{Tenant: tenant, Family: sequence.FamilyReceipt, Year: 2025}

	for i := 1; i <= 3; i++ {
		v, err := s.store.Increment(ctx, december)
		s.Require().NoError(err)
		s.Equal(i, v)
	}

	v, err := s.store.Increment(ctx, january)
	s.Require().NoError(err)
	s.Equal(1, v)

	v, err = s.store.Increment(ctx, receipts)
	s.Require().NoError(err)
	s.Equal(1, v)
}

// TestConcurrentIncrements verifies that concurrent allocations on one key
// never observe the same value.
func (s *PostgresStoreSuite) TestConcurrentIncrements() {
	ctx := context.Background()
	key := sequence.Key{
		Tenant: domain.TenantID(uuid.New()),
		Family: sequence.FamilyReceipt,
		Year:   2026,
	}
	const goroutines = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int]bool)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.store.Increment(ctx, key)
			if err != nil {
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Len(seen, goroutines, "every allocation must yield a distinct value")
	for i := 1; i <= goroutines; i++ {
		s.True(seen[i], "value %d missing from allocation set", i)
	}
}
