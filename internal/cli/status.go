package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/runnerr0/dailyverse/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	CachedYears       []int             `json:"cached_years"`
	ActiveDataset     string            `json:"active_dataset"`
	DatasetSize       int               `json:"dataset_size"`
	Mode              string            `json:"mode"`
	OrderYears        []int             `json:"order_years"`
	UsedByYear        map[int]int64     `json:"used_by_year"`
	SessionDays       int64             `json:"session_days"`
	Preferences       map[string]string `json:"preferences"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withApp(c.app, c.globals, c.executeWithApp)
}

// executeWithApp runs status against a provided app (for testing).
func (c *StatusCommand) executeWithApp(a *app) error {
	ctx := context.Background()

	stats, err := a.store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	years, err := a.fetcher.Years()
	if err != nil {
		return fmt.Errorf("list cached archives: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      a.dbPath,
		DatabaseSizeBytes: getDatabaseSize(a.db, a.dbPath),
		CachedYears:       years,
		ActiveDataset:     a.repo.ActiveDataset(ctx),
		DatasetSize:       len(a.repo.Records(ctx)),
		Mode:              "sequential",
		OrderYears:        []int{},
		UsedByYear:        map[int]int64{},
		SessionDays:       stats.SessionDays,
		Preferences:       stats.Preferences,
	}
	if a.store.IsRandomModeEnabled(ctx) {
		out.Mode = "random"
	}
	for _, o := range stats.OrderYears {
		out.OrderYears = append(out.OrderYears, o.Year)
	}
	for _, u := range stats.UsedByYear {
		out.UsedByYear[u.Year] = u.Count
	}

	if wantJSON(c.globals) {
		return printJSON(out)
	}
	return c.printStatusHuman(out, stats)
}

func (c *StatusCommand) printStatusHuman(out statusJSON, stats *storage.Stats) error {
	fmt.Println("dailyverse Status")
	fmt.Println("=================")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes))
	fmt.Printf("Dataset:       %s (%d verses)\n", out.ActiveDataset, out.DatasetSize)
	fmt.Printf("Mode:          %s\n", out.Mode)

	if len(out.CachedYears) > 0 {
		fmt.Printf("Archives:      %s\n", joinInts(out.CachedYears))
	} else {
		fmt.Println("Archives:      none")
	}

	if len(stats.OrderYears) > 0 {
		fmt.Println()
		fmt.Println("Yearly Orders:")
		for _, o := range stats.OrderYears {
			fmt.Printf("  %-6d %d entries\n", o.Year, o.Size)
		}
	}
	if len(stats.UsedByYear) > 0 {
		fmt.Println()
		fmt.Println("Used Verses:")
		for _, u := range stats.UsedByYear {
			fmt.Printf("  %-6d %d\n", u.Year, u.Count)
		}
	}

	fmt.Println()
	fmt.Printf("Sessions:      %d days\n", out.SessionDays)
	if len(out.Preferences) > 0 {
		keys := make([]string, 0, len(out.Preferences))
		for k := range out.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("Preferences:")
		for _, k := range keys {
			fmt.Printf("  %-20s %s\n", k, out.Preferences[k])
		}
	}
	return nil
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	// Try file stat first
	if dbPath != "" {
		if info, err := os.Stat(dbPath); err == nil {
			return info.Size()
		}
	}

	// Fallback: query SQLite for in-memory or unavailable file
	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
