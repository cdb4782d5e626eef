// Package selector decides which bundled record is shown on a given day,
// either by walking a per-year order or by a weighted random draw that avoids
// repeats within the year.
package selector

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/runnerr0/dailyverse/internal/common"
	"github.com/runnerr0/dailyverse/internal/dataset"
	"github.com/runnerr0/dailyverse/internal/logging"
)

// DateLayout is the day key used for entries and session offsets.
const DateLayout = "2006-01-02"

// Store is the persistent state the selector consults.
type Store interface {
	OrderForYear(ctx context.Context, year, size int, generate func(year, size int) []int) ([]int, error)
	ConsumeNext(ctx context.Context, dateKey string, size int) (int, error)
	Current(ctx context.Context, dateKey string, size int) (int, error)
	PickUsed(ctx context.Context, year, size int, pick func(used []int) (int, bool)) (int, error)
	IsRandomModeEnabled(ctx context.Context) bool
}

// Options tunes a Selector. The zero value uses the wall clock, an unseeded
// PRNG, shuffled yearly orders and no session rotation.
type Options struct {
	// BalanceOrder builds yearly orders by interleaving quality buckets
	// instead of a plain shuffle.
	BalanceOrder bool
	// SessionRotation shifts today's sequential pick by the session offset.
	SessionRotation bool
	Now             func() time.Time
	Rand            *rand.Rand
	Logger          *slog.Logger
}

// Selector picks one record per request.
type Selector struct {
	store           Store
	balanceOrder    bool
	sessionRotation bool
	now             func() time.Time
	log             *slog.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	sessions map[string]int
}

// New creates a Selector backed by store.
func New(store Store, opts Options) *Selector {
	s := &Selector{
		store:           store,
		balanceOrder:    opts.BalanceOrder,
		sessionRotation: opts.SessionRotation,
		now:             opts.Now,
		rng:             opts.Rand,
		log:             logging.OrDiscard(opts.Logger).With("component", "selector"),
		sessions:        map[string]int{},
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Select returns the entry for date. It returns nil without error only when
// records is empty.
func (s *Selector) Select(ctx context.Context, date time.Time, records []dataset.Record) (*dataset.Entry, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var (
		idx int
		err error
	)
	if s.store.IsRandomModeEnabled(ctx) {
		idx, err = s.randomIndex(ctx, date.Year(), records)
	} else {
		idx, err = s.sequentialIndex(ctx, date, records)
	}
	if err != nil {
		return nil, err
	}
	return records[idx].Entry(date.Format(DateLayout)), nil
}

func (s *Selector) generator(records []dataset.Record) func(year, size int) []int {
	return func(year, size int) []int {
		if s.balanceOrder && size == len(records) {
			order := BalancedOrder(records, year)
			s.log.Debug("generated balanced order", "year", year, "size", size)
			return order
		}
		return SeededShuffle(year, size)
	}
}

func (s *Selector) sequentialIndex(ctx context.Context, date time.Time, records []dataset.Record) (int, error) {
	n := len(records)
	year := date.Year()

	order, err := s.store.OrderForYear(ctx, year, n, s.generator(records))
	if err != nil {
		return 0, fmt.Errorf("order for %d: %w", year, err)
	}

	day := date.YearDay() - 1
	if s.sessionRotation {
		offset, err := s.sessionOffset(ctx, date, n)
		if err != nil {
			return 0, err
		}
		day += offset
	}
	return order[common.PositiveModulo(day, n)], nil
}

// sessionOffset is the rotation applied to today's pick: the offset of the
// session begun in this process, else the persisted current offset. Other
// days are never rotated.
func (s *Selector) sessionOffset(ctx context.Context, date time.Time, size int) (int, error) {
	key := date.Format(DateLayout)
	if key != s.now().Format(DateLayout) {
		return 0, nil
	}

	s.mu.Lock()
	offset, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		return common.PositiveModulo(offset, size), nil
	}

	offset, err := s.store.Current(ctx, key, size)
	if err != nil {
		return 0, fmt.Errorf("session offset %s: %w", key, err)
	}
	return offset, nil
}

// randomIndex draws an unused index for year. The used set is read, reset
// and extended in one store critical section so concurrent draws never
// share an index while fresh ones remain.
func (s *Selector) randomIndex(ctx context.Context, year int, records []dataset.Record) (int, error) {
	all := lo.Range(len(records))

	idx, err := s.store.PickUsed(ctx, year, len(records), func(used []int) (int, bool) {
		used = lo.Filter(used, func(i, _ int) bool { return i >= 0 && i < len(records) })

		reset := false
		candidates := lo.Without(all, used...)
		if len(candidates) == 0 {
			if s.now().Year() > year {
				s.log.Debug("reset used verses", "year", year)
				reset = true
				candidates = all
			} else {
				// Exhausted within the year: only avoid an immediate repeat.
				candidates = lo.Without(all, used[len(used)-1])
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		return BalancedPick(records, candidates, s.rng), reset
	})
	if err != nil {
		return 0, fmt.Errorf("pick used verse for %d: %w", year, err)
	}
	return idx, nil
}

// BeginSession starts a new viewing session for today. In sequential mode
// it advances the persisted rotation and remembers the offset for the rest
// of the process; in random mode it does nothing.
func (s *Selector) BeginSession(ctx context.Context, size int) error {
	if size <= 0 {
		return nil
	}
	if s.store.IsRandomModeEnabled(ctx) {
		s.log.Debug("random mode active, session not rotated")
		return nil
	}

	key := s.now().Format(DateLayout)
	offset, err := s.store.ConsumeNext(ctx, key, size)
	if err != nil {
		return fmt.Errorf("begin session %s: %w", key, err)
	}

	s.mu.Lock()
	clear(s.sessions)
	s.sessions[key] = offset
	s.mu.Unlock()

	s.log.Debug("session started", "date", key, "offset", offset)
	return nil
}

// ActiveSession returns the offset of the session begun today, if any.
func (s *Selector) ActiveSession() (string, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.now().Format(DateLayout)
	offset, ok := s.sessions[key]
	return key, offset, ok
}
