package cli

import (
	"context"
	"fmt"
)

type pruneJSON struct {
	BeforeYear     int   `json:"before_year"`
	DryRun         bool  `json:"dry_run"`
	RemovedYears   []int `json:"removed_archives"`
	StateRowsFound int64 `json:"state_rows"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	if c.BeforeYear <= 0 {
		return fmt.Errorf("--before-year is required for prune")
	}
	return withApp(c.app, c.globals, c.executeWithApp)
}

func (c *PruneCommand) executeWithApp(a *app) error {
	ctx := context.Background()

	years, err := a.fetcher.Years()
	if err != nil {
		return fmt.Errorf("list cached archives: %w", err)
	}
	out := pruneJSON{BeforeYear: c.BeforeYear, DryRun: c.DryRun, RemovedYears: []int{}}
	for _, y := range years {
		if y < c.BeforeYear {
			out.RemovedYears = append(out.RemovedYears, y)
		}
	}

	if c.DryRun {
		stats, err := a.store.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		for _, o := range stats.OrderYears {
			if o.Year < c.BeforeYear {
				out.StateRowsFound++
			}
		}
		for _, u := range stats.UsedByYear {
			if u.Year < c.BeforeYear {
				out.StateRowsFound += u.Count
			}
		}
	} else {
		for _, y := range out.RemovedYears {
			if err := a.fetcher.Remove(y); err != nil {
				return err
			}
		}
		n, err := a.store.PruneBefore(ctx, c.BeforeYear)
		if err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
		out.StateRowsFound = n
	}

	if wantJSON(c.globals) {
		return printJSON(out)
	}

	verb := "Removed"
	if c.DryRun {
		verb = "Would remove"
	}
	fmt.Printf("%s %d cached archive(s) and %d state row(s) before %d\n",
		verb, len(out.RemovedYears), out.StateRowsFound, c.BeforeYear)
	return nil
}
