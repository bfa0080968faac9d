//go:build integration

package slot_models

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/utils/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLoggers()
	os.Exit(m.Run())
}

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return pool
}

func createSlot(t *testing.T, pool *pgxpool.Pool, doctorID uuid.UUID, date, start, end time.Time) Slot {
	t.Helper()
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	created, err := CreateSlotsTx(ctx, tx, doctorID, []SlotSpec{{SlotDate: date, StartTime: start, EndTime: end}})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.Len(t, created, 1)
	return created[0]
}

// Of any number of concurrent claims on one slot, exactly one update
// matches the conditional WHERE clause and the rest observe a conflict.
func TestClaimSlotMutualExclusion(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	doctorID := uuid.New()
	date := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2027, 3, 1, 10, 0, 0, 0, time.UTC)
	slot := createSlot(t, pool, doctorID, date, start, start.Add(30*time.Minute))

	const contenders = 8
	winners := make([]uuid.UUID, 0, contenders)
	conflicts := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			holderID := uuid.New()

			tx, err := pool.Begin(ctx)
			if err != nil {
				t.Errorf("begin failed: %v", err)
				return
			}

			slotID, err := ClaimSlotTx(ctx, tx, doctorID, date, start, holderID)
			if err != nil {
				tx.Rollback(ctx)
				mu.Lock()
				if apperrors.KindOf(err) == apperrors.Conflict {
					conflicts++
				} else {
					t.Errorf("unexpected claim error: %v", err)
				}
				mu.Unlock()
				return
			}

			if err := tx.Commit(ctx); err != nil {
				t.Errorf("commit failed: %v", err)
				return
			}
			mu.Lock()
			winners = append(winners, holderID)
			mu.Unlock()
			assert.Equal(t, slot.ID, slotID)
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one claim must win")
	assert.Equal(t, contenders-1, conflicts)

	stored, err := GetSlotByID(ctx, pool, slot.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAvailable)
	require.NotNil(t, stored.HeldBy)
	assert.Equal(t, winners[0], *stored.HeldBy)
}

// Releasing a slot makes it claimable again, and releasing twice is a
// no-op rather than an error.
func TestReleaseThenReclaim(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	doctorID := uuid.New()
	date := time.Date(2027, 3, 2, 0, 0, 0, 0, time.UTC)
	start := time.Date(2027, 3, 2, 9, 0, 0, 0, time.UTC)
	slot := createSlot(t, pool, doctorID, date, start, start.Add(30*time.Minute))

	claim := func(holderID uuid.UUID) error {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)
		if _, err := ClaimSlotTx(ctx, tx, doctorID, date, start, holderID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
	release := func() error {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)
		if err := ReleaseSlotTx(ctx, tx, slot.ID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	require.NoError(t, claim(uuid.New()))
	require.NoError(t, release())
	require.NoError(t, release())

	require.NoError(t, claim(uuid.New()), "released slot must be claimable again")
}
