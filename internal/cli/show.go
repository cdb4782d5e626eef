package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/dailyverse/internal/dataset"
	"github.com/runnerr0/dailyverse/internal/selector"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	if _, err := resolveDate(c.Date, time.Now); err != nil {
		return err
	}
	return withApp(c.app, c.globals, c.executeWithApp)
}

func (c *ShowCommand) executeWithApp(a *app) error {
	ctx := context.Background()

	date, err := resolveDate(c.Date, a.now)
	if err != nil {
		return err
	}

	if c.Fetch {
		a.repo.EnsureYear(ctx, date.Year())
	}

	entry := a.repo.GetEntry(ctx, date, c.PreferLocal)
	if entry == nil {
		return fmt.Errorf("no verse available for %s", date.Format(selector.DateLayout))
	}

	if wantJSON(c.globals) {
		return printJSON(entry)
	}
	printEntry(entry)
	return nil
}

// resolveDate parses a YYYY-MM-DD flag value; empty means today.
func resolveDate(value string, now func() time.Time) (time.Time, error) {
	if value == "" {
		return now(), nil
	}
	d, err := time.ParseInLocation(selector.DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD)", value)
	}
	return d, nil
}

func printEntry(e *dataset.Entry) {
	fmt.Println(e.Date)
	fmt.Println()
	fmt.Println(e.PrimaryText)
	if e.PrimaryRef != "" {
		fmt.Printf("  %s\n", e.PrimaryRef)
	}
	if e.SecondaryText != "" {
		fmt.Println()
		fmt.Println(e.SecondaryText)
		if e.SecondaryRef != "" {
			fmt.Printf("  %s\n", e.SecondaryRef)
		}
	}
}
