package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/runnerr0/dailyverse/internal/common"
)

// Store defines the persistence operations of the verse selector.
type Store interface {
	OrderForYear(ctx context.Context, year, size int, generate func(year, size int) []int) ([]int, error)
	ConsumeNext(ctx context.Context, dateKey string, size int) (int, error)
	Current(ctx context.Context, dateKey string, size int) (int, error)
	UsedForYear(ctx context.Context, year int) ([]int, error)
	AddUsed(ctx context.Context, year, index int) error
	ResetUsed(ctx context.Context, year int) error
	PickUsed(ctx context.Context, year, size int, pick func(used []int) (int, bool)) (int, error)
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	PruneBefore(ctx context.Context, year int) (int64, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database. Every
// read-modify-write runs under mu and inside a transaction, so concurrent
// callers never lose updates to an order, a session offset or a used set.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex

	// Prepared statements
	getOrder      *sql.Stmt
	getSession    *sql.Stmt
	getUsed       *sql.Stmt
	getPreference *sql.Stmt
	setPreference *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	// SQLite has a single writer, and ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getOrder, err = s.db.Prepare(`SELECT size, indices FROM year_orders WHERE year = ?`)
	if err != nil {
		return err
	}

	s.getSession, err = s.db.Prepare(`
		SELECT current_offset, next_offset FROM session_offsets WHERE date_key = ?
	`)
	if err != nil {
		return err
	}

	s.getUsed, err = s.db.Prepare(`
		SELECT verse_index FROM used_verses WHERE year = ? ORDER BY seq ASC
	`)
	if err != nil {
		return err
	}

	s.getPreference, err = s.db.Prepare(`SELECT value FROM preferences WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setPreference, err = s.db.Prepare(`
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	return nil
}

// encodeOrder stores an order as a comma-separated list of indices.
func encodeOrder(order []int) string {
	parts := make([]string, len(order))
	for i, v := range order {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// decodeOrder parses a stored order. Unparsable entries make the whole order
// invalid so the caller regenerates it.
func decodeOrder(s string) ([]int, bool) {
	if s == "" {
		return []int{}, true
	}
	parts := strings.Split(s, ",")
	order := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		order = append(order, v)
	}
	return order, true
}

// OrderForYear returns the stored order for year when its length equals size.
// Otherwise generate is called and its result persisted, replacing any stale
// order, before it is returned.
func (s *SQLiteStore) OrderForYear(ctx context.Context, year, size int, generate func(year, size int) []int) ([]int, error) {
	if size <= 0 {
		return []int{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var storedSize int
	var indices string
	err := s.getOrder.QueryRowContext(ctx, year).Scan(&storedSize, &indices)
	switch {
	case err == nil:
		if order, ok := decodeOrder(indices); ok && len(order) == size {
			return order, nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("get order for %d: %w", year, err)
	}

	order := generate(year, size)
	if len(order) != size {
		return nil, fmt.Errorf("generated order for %d has %d entries, want %d", year, len(order), size)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO year_orders (year, size, indices) VALUES (?, ?, ?)
		ON CONFLICT(year) DO UPDATE SET size = excluded.size, indices = excluded.indices,
			created_at = CURRENT_TIMESTAMP
	`, year, size, encodeOrder(order))
	if err != nil {
		return nil, fmt.Errorf("store order for %d: %w", year, err)
	}

	return order, nil
}

// ConsumeNext starts a new session for dateKey: it returns the stored "next"
// offset normalized into [0, size), records it as current and advances next.
func (s *SQLiteStore) ConsumeNext(ctx context.Context, dateKey string, size int) (int, error) {
	if size <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current sql.NullInt64
	var next int
	err = tx.StmtContext(ctx, s.getSession).QueryRowContext(ctx, dateKey).Scan(&current, &next)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get session %s: %w", dateKey, err)
	}

	offset := common.PositiveModulo(next, size)
	newNext := (offset + 1) % size

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_offsets (date_key, current_offset, next_offset) VALUES (?, ?, ?)
		ON CONFLICT(date_key) DO UPDATE SET current_offset = excluded.current_offset,
			next_offset = excluded.next_offset, updated_at = CURRENT_TIMESTAMP
	`, dateKey, offset, newNext)
	if err != nil {
		return 0, fmt.Errorf("store session %s: %w", dateKey, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit session %s: %w", dateKey, err)
	}
	return offset, nil
}

// Current returns the offset of the last session begun for dateKey, falling
// back to the pending "next" value when no session has started yet.
func (s *SQLiteStore) Current(ctx context.Context, dateKey string, size int) (int, error) {
	if size <= 0 {
		return 0, nil
	}

	var current sql.NullInt64
	var next int
	err := s.getSession.QueryRowContext(ctx, dateKey).Scan(&current, &next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get session %s: %w", dateKey, err)
	}

	raw := next
	if current.Valid {
		raw = int(current.Int64)
	}
	return common.PositiveModulo(raw, size), nil
}

// UsedForYear returns the indices shown in random mode during year, oldest
// first.
func (s *SQLiteStore) UsedForYear(ctx context.Context, year int) ([]int, error) {
	rows, err := s.getUsed.QueryContext(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("query used verses for %d: %w", year, err)
	}
	return scanUsed(rows)
}

func scanUsed(rows *sql.Rows) ([]int, error) {
	defer rows.Close()

	used := []int{}
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan used verse: %w", err)
		}
		used = append(used, idx)
	}
	return used, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func addUsed(ctx context.Context, db execer, year, index int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO used_verses (year, verse_index, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM used_verses WHERE year = ?))
		ON CONFLICT(year, verse_index) DO UPDATE SET seq = excluded.seq, used_at = CURRENT_TIMESTAMP
	`, year, index, year)
	if err != nil {
		return fmt.Errorf("add used verse %d for %d: %w", index, year, err)
	}
	return nil
}

func resetUsed(ctx context.Context, db execer, year int) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM used_verses WHERE year = ?", year); err != nil {
		return fmt.Errorf("reset used verses for %d: %w", year, err)
	}
	return nil
}

// AddUsed records index as the most recently used verse of year.
func (s *SQLiteStore) AddUsed(ctx context.Context, year, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addUsed(ctx, s.db, year, index)
}

// ResetUsed forgets every used verse of year.
func (s *SQLiteStore) ResetUsed(ctx context.Context, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return resetUsed(ctx, s.db, year)
}

// PickUsed runs one random-mode draw for year as a single critical section.
// Indices at or above size, left over from a larger dataset, are dropped
// first. pick receives the remaining used set, oldest first, and returns the
// chosen index and whether the year's set must be cleared before recording
// it.
func (s *SQLiteStore) PickUsed(ctx context.Context, year, size int, pick func(used []int) (index int, reset bool)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		"DELETE FROM used_verses WHERE year = ? AND (verse_index < 0 OR verse_index >= ?)", year, size)
	if err != nil {
		return 0, fmt.Errorf("drop stale used verses for %d: %w", year, err)
	}

	rows, err := tx.StmtContext(ctx, s.getUsed).QueryContext(ctx, year)
	if err != nil {
		return 0, fmt.Errorf("query used verses for %d: %w", year, err)
	}
	used, err := scanUsed(rows)
	if err != nil {
		return 0, err
	}

	index, reset := pick(used)
	if reset {
		if err := resetUsed(ctx, tx, year); err != nil {
			return 0, err
		}
	}
	if err := addUsed(ctx, tx, year, index); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit used verse for %d: %w", year, err)
	}
	return index, nil
}

// GetPreference returns the stored value for key and whether it exists.
func (s *SQLiteStore) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.getPreference.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference stores value under key.
func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.setPreference.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

// PruneBefore deletes orders, used sets and session offsets of every year
// before year. It returns the number of rows removed.
func (s *SQLiteStore) PruneBefore(ctx context.Context, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cutoff := fmt.Sprintf("%04d-01-01", year)
	stmts := []struct {
		query string
		arg   any
	}{
		{"DELETE FROM year_orders WHERE year < ?", year},
		{"DELETE FROM used_verses WHERE year < ?", year},
		{"DELETE FROM session_offsets WHERE date_key < ?", cutoff},
	}

	var total int64
	for _, st := range stmts {
		res, err := tx.ExecContext(ctx, st.query, st.arg)
		if err != nil {
			return 0, fmt.Errorf("prune (%s): %w", st.query, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return total, nil
}

// PurgeAll deletes all selection state and preferences.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmts := []string{
		"DELETE FROM year_orders",
		"DELETE FROM session_offsets",
		"DELETE FROM used_verses",
		"DELETE FROM preferences",
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge: %w", err)
	}
	return nil
}

// GetStats returns aggregate statistics about the stored state.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Preferences: map[string]string{}}

	rows, err := s.db.QueryContext(ctx, "SELECT year, size FROM year_orders ORDER BY year")
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for rows.Next() {
		var info YearOrderInfo
		if err := rows.Scan(&info.Year, &info.Size); err != nil {
			rows.Close()
			return nil, err
		}
		stats.OrderYears = append(stats.OrderYears, info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT year, COUNT(*) FROM used_verses GROUP BY year ORDER BY year",
	)
	if err != nil {
		return nil, fmt.Errorf("count used verses: %w", err)
	}
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.UsedByYear = append(stats.UsedByYear, yc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM session_offsets").Scan(&stats.SessionDays)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT key, value FROM preferences")
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		stats.Preferences[k] = v
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.getOrder, s.getSession, s.getUsed,
		s.getPreference, s.setPreference,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
