package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db := openTestDB(t)

	require.NoError(t, NewMigrationRunner(db).Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

// openFileStore opens a store backed by a file so state survives reopening.
func openFileStore(t *testing.T, path string) (*SQLiteStore, func()) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, NewMigrationRunner(db).Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return store, func() {
		store.Close()
		db.Close()
	}
}

func identity(_, size int) []int {
	order := make([]int, size)
	for i := range order {
		order[i] = size - 1 - i
	}
	return order
}

// --- OrderForYear ---

func TestOrderForYear_GeneratesOnceAndPersists(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	calls := 0
	gen := func(year, size int) []int {
		calls++
		return identity(year, size)
	}

	first, err := store.OrderForYear(ctx, 2025, 5, gen)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2, 1, 0}, first)

	second, err := store.OrderForYear(ctx, 2025, 5, gen)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "stored order should be reused")
}

func TestOrderForYear_SizeMismatchRegenerates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.OrderForYear(ctx, 2025, 3, identity)
	require.NoError(t, err)

	calls := 0
	order, err := store.OrderForYear(ctx, 2025, 4, func(year, size int) []int {
		calls++
		return identity(year, size)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, order, 4)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []YearOrderInfo{{Year: 2025, Size: 4}}, stats.OrderYears)
}

func TestOrderForYear_CorruptRowRegenerates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.db.Exec("INSERT INTO year_orders (year, size, indices) VALUES (2024, 3, '0,x,2')")
	require.NoError(t, err)

	order, err := store.OrderForYear(ctx, 2024, 3, identity)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, order)
}

func TestOrderForYear_YearsAreIndependent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a, err := store.OrderForYear(ctx, 2025, 3, func(int, int) []int { return []int{0, 1, 2} })
	require.NoError(t, err)
	b, err := store.OrderForYear(ctx, 2026, 3, func(int, int) []int { return []int{2, 0, 1} })
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, a)
	assert.Equal(t, []int{2, 0, 1}, b)
}

func TestOrderForYear_RejectsWrongLength(t *testing.T) {
	store := openTestStore(t)

	_, err := store.OrderForYear(context.Background(), 2025, 3, func(int, int) []int { return []int{0} })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 3")
}

func TestOrderForYear_EmptySize(t *testing.T) {
	store := openTestStore(t)

	order, err := store.OrderForYear(context.Background(), 2025, 0, func(int, int) []int {
		t.Fatal("generator must not be called for an empty dataset")
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, order)
}

// --- Session offsets ---

func TestConsumeNext_Rotates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var got []int
	for i := 0; i < 5; i++ {
		offset, err := store.ConsumeNext(ctx, "2025-04-01", 3)
		require.NoError(t, err)
		got = append(got, offset)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1}, got)
}

func TestConsumeNext_DateKeysAreIndependent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.ConsumeNext(ctx, "2025-04-01", 5)
	require.NoError(t, err)
	_, err = store.ConsumeNext(ctx, "2025-04-01", 5)
	require.NoError(t, err)

	offset, err := store.ConsumeNext(ctx, "2025-04-02", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
}

func TestConsumeNext_NormalizesAfterShrink(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.db.Exec("INSERT INTO session_offsets (date_key, next_offset) VALUES ('2025-04-01', 7)")
	require.NoError(t, err)

	offset, err := store.ConsumeNext(ctx, "2025-04-01", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, offset)

	offset, err = store.ConsumeNext(ctx, "2025-04-01", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, offset)
}

func TestConsumeNext_NonPositiveSize(t *testing.T) {
	store := openTestStore(t)
	offset, err := store.ConsumeNext(context.Background(), "2025-04-01", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
}

func TestCurrent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	offset, err := store.Current(ctx, "2025-04-01", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, offset, "no session yet")

	for i := 0; i < 2; i++ {
		_, err := store.ConsumeNext(ctx, "2025-04-01", 3)
		require.NoError(t, err)
	}
	offset, err = store.Current(ctx, "2025-04-01", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, offset, "current is the last consumed offset")

	offset, err = store.Current(ctx, "2025-04-01", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, offset, "reading does not advance")

	offset, err = store.Current(ctx, "2025-04-01", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
}

func TestCurrent_FallsBackToNext(t *testing.T) {
	store := openTestStore(t)

	_, err := store.db.Exec("INSERT INTO session_offsets (date_key, next_offset) VALUES ('2025-04-01', -1)")
	require.NoError(t, err)

	offset, err := store.Current(context.Background(), "2025-04-01", 4)
	require.NoError(t, err)
	assert.Equal(t, 3, offset)
}

func TestConsumeNext_Concurrent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const n = 20
	results := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			offset, err := store.ConsumeNext(ctx, "2025-04-01", 100)
			assert.NoError(t, err)
			results <- offset
		}()
	}
	wg.Wait()
	close(results)

	var got []int
	for v := range results {
		got = append(got, v)
	}
	sort.Ints(got)
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got, "every session gets a distinct offset")
}

func TestSessionOffsets_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, closeFn := openFileStore(t, path)
	_, err := store.ConsumeNext(ctx, "2025-04-01", 10)
	require.NoError(t, err)
	_, err = store.OrderForYear(ctx, 2025, 3, identity)
	require.NoError(t, err)
	closeFn()

	store, closeFn = openFileStore(t, path)
	defer closeFn()

	offset, err := store.ConsumeNext(ctx, "2025-04-01", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, offset)

	order, err := store.OrderForYear(ctx, 2025, 3, func(int, int) []int {
		t.Fatal("order should have been persisted")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, order)
}

// --- Used verses ---

func TestUsedVerses_OrderedByRecency(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, idx := range []int{4, 1, 3} {
		require.NoError(t, store.AddUsed(ctx, 2025, idx))
	}
	used, err := store.UsedForYear(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1, 3}, used)

	// Re-using an index moves it to the end.
	require.NoError(t, store.AddUsed(ctx, 2025, 4))
	used, err = store.UsedForYear(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, used)
}

func TestUsedVerses_ResetIsPerYear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddUsed(ctx, 2024, 0))
	require.NoError(t, store.AddUsed(ctx, 2025, 1))
	require.NoError(t, store.ResetUsed(ctx, 2024))

	used, err := store.UsedForYear(ctx, 2024)
	require.NoError(t, err)
	assert.Empty(t, used)

	used, err = store.UsedForYear(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, used)
}

func TestPickUsed_PassesUsedAndRecordsPick(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddUsed(ctx, 2025, 2))
	require.NoError(t, store.AddUsed(ctx, 2025, 0))

	var seen []int
	idx, err := store.PickUsed(ctx, 2025, 4, func(used []int) (int, bool) {
		seen = used
		return 3, false
	})
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	assert.Equal(t, []int{2, 0}, seen)

	used, err := store.UsedForYear(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 3}, used)
}

func TestPickUsed_ResetClearsBeforeRecording(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, idx := range []int{0, 1, 2} {
		require.NoError(t, store.AddUsed(ctx, 2025, idx))
	}
	_, err := store.PickUsed(ctx, 2025, 3, func(used []int) (int, bool) {
		return 1, true
	})
	require.NoError(t, err)

	used, err := store.UsedForYear(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, used)
}

func TestPickUsed_DropsIndicesBeyondSize(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, idx := range []int{6, 1, 7, 4} {
		require.NoError(t, store.AddUsed(ctx, 2025, idx))
	}

	var seen []int
	_, err := store.PickUsed(ctx, 2025, 5, func(used []int) (int, bool) {
		seen = used
		return 0, false
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, seen)

	used, err := store.UsedForYear(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 0}, used)
}

func TestPickUsed_Concurrent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const n = 12
	results := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := store.PickUsed(ctx, 2025, n, func(used []int) (int, bool) {
				time.Sleep(2 * time.Millisecond)
				return len(used), false
			})
			assert.NoError(t, err)
			results <- idx
		}()
	}
	wg.Wait()
	close(results)

	var got []int
	for v := range results {
		got = append(got, v)
	}
	sort.Ints(got)
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got, "every draw sees the picks made before it")
}

// --- Preferences ---

func TestPreferences_Defaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	assert.True(t, store.IsRandomModeEnabled(ctx))
	assert.False(t, store.FallbackActive(ctx))
	assert.False(t, store.NotificationsEnabled(ctx))
	assert.Equal(t, "Luther1912.xml", store.ActiveDataset(ctx, "Luther1912.xml"))
	assert.Equal(t, "08:00", store.NotificationTime(ctx, "08:00"))

	_, ok, err := store.GetPreference(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreferences_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetRandomMode(ctx, false))
	require.NoError(t, store.SetActiveDataset(ctx, "Elberfelder1905.xml"))
	require.NoError(t, store.SetNotificationsEnabled(ctx, true))
	require.NoError(t, store.SetNotificationTime(ctx, "07:30"))

	assert.False(t, store.IsRandomModeEnabled(ctx))
	assert.Equal(t, "Elberfelder1905.xml", store.ActiveDataset(ctx, "Luther1912.xml"))
	assert.True(t, store.NotificationsEnabled(ctx))
	assert.Equal(t, "07:30", store.NotificationTime(ctx, "08:00"))
}

func TestPreferences_GarbageBoolUsesDefault(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetPreference(ctx, PrefRandomMode, "maybe"))
	assert.True(t, store.IsRandomModeEnabled(ctx))
}

// --- Prune / Purge / Stats ---

func TestPruneBefore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, year := range []int{2023, 2024, 2025} {
		_, err := store.OrderForYear(ctx, year, 2, identity)
		require.NoError(t, err)
		require.NoError(t, store.AddUsed(ctx, year, 0))
	}
	_, err := store.ConsumeNext(ctx, "2024-12-31", 2)
	require.NoError(t, err)
	_, err = store.ConsumeNext(ctx, "2025-01-01", 2)
	require.NoError(t, err)

	n, err := store.PruneBefore(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []YearOrderInfo{{Year: 2025, Size: 2}}, stats.OrderYears)
	assert.Equal(t, []YearCount{{Year: 2025, Count: 1}}, stats.UsedByYear)
	assert.Equal(t, int64(1), stats.SessionDays)
}

func TestPurgeAll(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.OrderForYear(ctx, 2025, 2, identity)
	require.NoError(t, err)
	require.NoError(t, store.AddUsed(ctx, 2025, 1))
	_, err = store.ConsumeNext(ctx, "2025-01-01", 2)
	require.NoError(t, err)
	require.NoError(t, store.SetRandomMode(ctx, false))

	require.NoError(t, store.PurgeAll(ctx))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.OrderYears)
	assert.Empty(t, stats.UsedByYear)
	assert.Equal(t, int64(0), stats.SessionDays)
	assert.Empty(t, stats.Preferences)
	assert.True(t, store.IsRandomModeEnabled(ctx), "defaults apply again after purge")
}

func TestPurgeAll_RollsBackOnFailure(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.OrderForYear(ctx, 2025, 2, identity)
	require.NoError(t, err)
	require.NoError(t, store.AddUsed(ctx, 2025, 1))

	// The last DELETE fails once its table is gone.
	_, err = store.db.ExecContext(ctx, "DROP TABLE preferences")
	require.NoError(t, err)

	require.Error(t, store.PurgeAll(ctx))

	var orders, used int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM year_orders").Scan(&orders))
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM used_verses").Scan(&used))
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, used)
}

func TestGetStats_Empty(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats.OrderYears)
	assert.Empty(t, stats.UsedByYear)
	assert.Equal(t, "true", stats.Preferences[PrefRandomMode])
}
