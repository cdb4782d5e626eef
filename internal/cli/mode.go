package cli

import (
	"context"
	"fmt"
)

// Execute implements the go-flags Commander interface for ModeCommand.
func (c *ModeCommand) Execute(args []string) error {
	if c.Random && c.Sequential {
		return fmt.Errorf("--random and --sequential are mutually exclusive")
	}
	return withApp(c.app, c.globals, c.executeWithApp)
}

func (c *ModeCommand) executeWithApp(a *app) error {
	ctx := context.Background()

	if c.Random || c.Sequential {
		if err := a.repo.SetRandomMode(ctx, c.Random); err != nil {
			return fmt.Errorf("set mode: %w", err)
		}
	}

	mode := "sequential"
	if a.store.IsRandomModeEnabled(ctx) {
		mode = "random"
	}

	if wantJSON(c.globals) {
		return printJSON(map[string]string{"mode": mode})
	}
	fmt.Printf("Mode: %s\n", mode)
	return nil
}
