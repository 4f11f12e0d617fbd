package db

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/otpgate/otpgate/internal/auth/entity"
	"github.com/otpgate/otpgate/internal/pkg/goerror"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"github.com/stretchr/testify/require"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const testSchema = `
CREATE TABLE auth_principals (
	id BIGINT PRIMARY KEY,
	identity TEXT NOT NULL UNIQUE,
	role SMALLINT NOT NULL DEFAULT 1,
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE auth_challenges (
	principal_id BIGINT PRIMARY KEY REFERENCES auth_principals (id),
	code_hash TEXT NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	attempts SMALLINT NOT NULL DEFAULT 0
);

CREATE TABLE auth_principal_details (
	principal_id BIGINT PRIMARY KEY REFERENCES auth_principals (id),
	name TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	date_of_birth DATE,
	occupation TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	pincode TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// newTestDB spins up a throwaway postgres container. Guarded by an env flag
// so the default test run stays hermetic.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	if os.Getenv("OTPGATE_DB_TESTS") == "" {
		t.Skip("set OTPGATE_DB_TESTS=1 to run postgres integration tests")
	}

	ctx := context.Background()

	ctr, err := pgcontainer.Run(ctx, "postgres:16-alpine",
		pgcontainer.WithDatabase("otpgate"),
		pgcontainer.WithUsername("otpgate"),
		pgcontainer.WithPassword("otpgate"),
		pgcontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	return NewDB(pool, instrument.NewNoop())
}

func TestChallengeRowLockSerializesAttempts(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	principal, err := store.EnsurePrincipal(ctx, entity.NewPrincipal{
		ID:       1,
		Identity: "alice@example.com",
		Role:     entity.RoleUser,
	})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.ReplaceChallenge(ctx, entity.Challenge{
		PrincipalID: principal.ID,
		CodeHash:    "hash",
		IssuedAt:    now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}))

	// Concurrent wrong-code verifications must each count exactly once.
	const attempts = 8
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.VerifyChallenge(ctx, "alice@example.com",
				func(entity.VerifiedPrincipal) entity.VerifyDecision {
					return entity.DecisionRejected
				})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	ch, err := store.GetChallenge(ctx, principal.ID)
	require.NoError(t, err)
	require.EqualValues(t, attempts, ch.Attempts)
}

func TestChallengeConsumedExactlyOnce(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	principal, err := store.EnsurePrincipal(ctx, entity.NewPrincipal{
		ID:       2,
		Identity: "bob@example.com",
		Role:     entity.RoleUser,
	})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.ReplaceChallenge(ctx, entity.Challenge{
		PrincipalID: principal.ID,
		CodeHash:    "hash",
		IssuedAt:    now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}))

	var verified, notRequested int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.VerifyChallenge(ctx, "bob@example.com",
				func(entity.VerifiedPrincipal) entity.VerifyDecision {
					return entity.DecisionVerified
				})
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, goerror.ErrNotFound) {
				notRequested++
				return
			}
			require.NoError(t, err)
			require.Equal(t, entity.DecisionVerified, res.Decision)
			verified++
		}()
	}
	wg.Wait()

	require.Equal(t, 1, verified)
	require.Equal(t, 3, notRequested)

	p, err := store.GetPrincipalByID(ctx, principal.ID)
	require.NoError(t, err)
	require.True(t, p.Verified)
}

func TestEnsurePrincipalKeepsExistingRow(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	first, err := store.EnsurePrincipal(ctx, entity.NewPrincipal{
		ID: 3, Identity: "root@example.com", Role: entity.RoleAdmin, Verified: true,
	})
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, first.Role)

	// A later ensure with different fields returns the original row untouched.
	again, err := store.EnsurePrincipal(ctx, entity.NewPrincipal{
		ID: 4, Identity: "root@example.com", Role: entity.RoleUser,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, entity.RoleAdmin, again.Role)
	require.True(t, again.Verified)
}

func TestEnsurePrincipalConcurrentSameIdentity(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	// Every racer must get the row back, whichever insert wins.
	const racers = 8
	ids := make([]int64, racers)
	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := store.EnsurePrincipal(ctx, entity.NewPrincipal{
				ID: int64(100 + i), Identity: "dave@example.com", Role: entity.RoleUser,
			})
			require.NoError(t, err)
			require.NotNil(t, p)
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		require.Equal(t, ids[0], id)
	}

	list, total, err := store.GetPrincipalList(ctx, entity.PrincipalListFilter{Size: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, list, 1)
}

func TestReplaceChallengeResetsAttempts(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	principal, err := store.EnsurePrincipal(ctx, entity.NewPrincipal{
		ID: 5, Identity: "carol@example.com", Role: entity.RoleUser,
	})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.ReplaceChallenge(ctx, entity.Challenge{
		PrincipalID: principal.ID, CodeHash: "old",
		IssuedAt: now, ExpiresAt: now.Add(10 * time.Minute),
	}))

	_, err = store.VerifyChallenge(ctx, "carol@example.com",
		func(entity.VerifiedPrincipal) entity.VerifyDecision { return entity.DecisionRejected })
	require.NoError(t, err)

	require.NoError(t, store.ReplaceChallenge(ctx, entity.Challenge{
		PrincipalID: principal.ID, CodeHash: "new",
		IssuedAt: now, ExpiresAt: now.Add(10 * time.Minute),
	}))

	ch, err := store.GetChallenge(ctx, principal.ID)
	require.NoError(t, err)
	require.Equal(t, "new", ch.CodeHash)
	require.EqualValues(t, 0, ch.Attempts)
}
