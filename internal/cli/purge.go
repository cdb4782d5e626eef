package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	// Confirmation prompt unless --force
	if !c.Force {
		fmt.Println("⚠ WARNING: This will permanently delete ALL dailyverse data.")
		fmt.Println("  - Yearly orders and session offsets")
		fmt.Println("  - Used verse history and preferences")
		fmt.Println("  - Downloaded archives")
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Print(`Type "PURGE" to confirm: `)

		var in io.Reader = os.Stdin
		if c.stdin != nil {
			in = c.stdin
		}
		scanner := bufio.NewScanner(in)
		if !scanner.Scan() {
			return fmt.Errorf("aborted: no input received")
		}
		input := strings.TrimSpace(scanner.Text())
		if input != "PURGE" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	return withApp(c.app, c.globals, c.executeWithApp)
}

func (c *PurgeCommand) executeWithApp(a *app) error {
	ctx := context.Background()

	if err := a.store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	years, err := a.fetcher.Years()
	if err != nil {
		return fmt.Errorf("list cached archives: %w", err)
	}
	for _, y := range years {
		if err := a.fetcher.Remove(y); err != nil {
			return err
		}
	}
	a.repo.InvalidateCache()

	// Output
	if wantJSON(c.globals) {
		return printJSON(map[string]interface{}{
			"purged":           true,
			"removed_archives": len(years),
			"message":          "all data deleted",
		})
	}

	fmt.Println("Purged all data. dailyverse is empty.")
	return nil
}
