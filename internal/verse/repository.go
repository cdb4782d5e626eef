// Package verse is the entry point used by callers: it resolves the entry for
// a date from the downloaded yearly archive when possible and from the bundled
// collections otherwise.
package verse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/samber/lo"

	"github.com/runnerr0/dailyverse/internal/dataset"
	"github.com/runnerr0/dailyverse/internal/logging"
	"github.com/runnerr0/dailyverse/internal/selector"
)

// DefaultDataset is the bundled collection used until another is selected.
const DefaultDataset = "Luther1912.xml"

// Fetcher provides the cached yearly archive documents.
type Fetcher interface {
	EnsureYear(ctx context.Context, year int) bool
	Path(year int) string
	Remove(year int) error
}

// Store is the preference state the repository reads and writes.
type Store interface {
	ActiveDataset(ctx context.Context, def string) string
	SetActiveDataset(ctx context.Context, name string) error
	SetRandomMode(ctx context.Context, enabled bool) error
	FallbackActive(ctx context.Context) bool
}

// Options configures a Repository.
type Options struct {
	DefaultDataset string
	// Datasets limits which bundled collections may be selected. Empty
	// allows every embedded one.
	Datasets []string
	// Load reads a bundled collection; defaults to dataset.LoadBundled.
	Load   func(name string) ([]dataset.Record, error)
	Logger *slog.Logger
}

// Repository answers "which entry is shown on this day".
type Repository struct {
	fetcher        Fetcher
	store          Store
	selector       *selector.Selector
	cache          *dataset.Cache
	defaultDataset string
	datasets       []string
	load           func(name string) ([]dataset.Record, error)
	log            *slog.Logger
}

// New creates a Repository.
func New(fetcher Fetcher, store Store, sel *selector.Selector, opts Options) *Repository {
	r := &Repository{
		fetcher:        fetcher,
		store:          store,
		selector:       sel,
		cache:          dataset.NewCache(),
		defaultDataset: opts.DefaultDataset,
		datasets:       opts.Datasets,
		load:           opts.Load,
		log:            logging.OrDiscard(opts.Logger).With("component", "verse"),
	}
	if r.defaultDataset == "" {
		r.defaultDataset = DefaultDataset
	}
	if r.load == nil {
		r.load = dataset.LoadBundled
	}
	return r
}

// FormatDate renders t as the day key used by entries.
func FormatDate(t time.Time) string {
	return t.Format(selector.DateLayout)
}

// EnsureYear downloads the archive for year unless it is already cached. It
// reports whether a download happened.
func (r *Repository) EnsureYear(ctx context.Context, year int) bool {
	return r.fetcher.EnsureYear(ctx, year)
}

// GetEntry returns the entry for date, or nil when none can be produced.
// The downloaded archive wins when it has the date. With preferLocal set the
// lookup stops there; otherwise the active bundled collection is consulted.
func (r *Repository) GetEntry(ctx context.Context, date time.Time, preferLocal bool) *dataset.Entry {
	if entry := r.fromArchive(date); entry != nil {
		return entry
	}
	if preferLocal {
		return nil
	}

	records := r.Records(ctx)
	if len(records) == 0 {
		r.log.Debug("no bundled records available")
		return nil
	}

	entry, err := r.selector.Select(ctx, date, records)
	if err != nil {
		r.log.Error("selecting entry failed", "date", FormatDate(date), "error", err)
		return nil
	}
	return entry
}

// fromArchive looks date up in the cached archive of its year. A document
// that cannot be parsed is deleted so the next EnsureYear fetches it again.
func (r *Repository) fromArchive(date time.Time) *dataset.Entry {
	year := date.Year()
	key := FormatDate(date)

	f, err := os.Open(r.fetcher.Path(year))
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn("opening cached archive failed", "year", year, "error", err)
		}
		return nil
	}

	entry, err := dataset.ParseDay(f, key)
	f.Close()

	switch {
	case err == nil:
		return entry
	case errors.Is(err, dataset.ErrDateNotFound):
		r.log.Debug("date not in cached archive", "date", key)
		return nil
	default:
		r.log.Warn("cached archive unreadable, deleting", "year", year, "error", err)
		if rmErr := r.fetcher.Remove(year); rmErr != nil {
			r.log.Error("deleting cached archive failed", "year", year, "error", rmErr)
		}
		return nil
	}
}

// Records returns the active bundled collection, loading it on first use.
// A collection that fails to load counts as empty.
func (r *Repository) Records(ctx context.Context) []dataset.Record {
	name := r.ActiveDataset(ctx)
	records, err := r.cache.GetOrLoad(name, func() ([]dataset.Record, error) {
		return r.load(name)
	})
	if err != nil {
		r.log.Warn("loading bundled dataset failed", "dataset", name, "error", err)
		return nil
	}
	return records
}

// ActiveDataset is the name of the selected bundled collection.
func (r *Repository) ActiveDataset(ctx context.Context) string {
	return r.store.ActiveDataset(ctx, r.defaultDataset)
}

// BeginTodaySession starts a new viewing session for today.
func (r *Repository) BeginTodaySession(ctx context.Context) {
	records := r.Records(ctx)
	if len(records) == 0 {
		return
	}
	if err := r.selector.BeginSession(ctx, len(records)); err != nil {
		r.log.Error("begin session failed", "error", err)
	}
}

// InvalidateCache drops the loaded bundled collection.
func (r *Repository) InvalidateCache() {
	r.cache.Invalidate()
}

// Available lists the bundled collections that may be selected.
func (r *Repository) Available() []string {
	names := dataset.BundledNames()
	if len(r.datasets) == 0 {
		return names
	}
	return lo.Intersect(names, r.datasets)
}

// SelectDataset switches the active bundled collection.
func (r *Repository) SelectDataset(ctx context.Context, name string) error {
	available := r.Available()
	if !lo.Contains(available, name) {
		return fmt.Errorf("unknown dataset %q (available: %v)", name, available)
	}
	if err := r.store.SetActiveDataset(ctx, name); err != nil {
		return err
	}
	r.InvalidateCache()
	r.log.Info("dataset selected", "dataset", name)
	return nil
}

// SetRandomMode switches between random and sequential selection.
func (r *Repository) SetRandomMode(ctx context.Context, enabled bool) error {
	return r.store.SetRandomMode(ctx, enabled)
}

// IsFallbackActive reports the alternate-source flag shown by the UI.
func (r *Repository) IsFallbackActive(ctx context.Context) bool {
	return r.store.FallbackActive(ctx)
}
