package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/dailyverse/internal/notify"
)

// Execute implements the go-flags Commander interface for NotifyCommand.
func (c *NotifyCommand) Execute(args []string) error {
	if c.Enable && c.Disable {
		return fmt.Errorf("--enable and --disable are mutually exclusive")
	}
	return withApp(c.app, c.globals, c.executeWithApp)
}

func (c *NotifyCommand) executeWithApp(a *app) error {
	ctx := context.Background()

	if c.Time != "" {
		hour, minute := notify.ParseTime(c.Time)
		if err := a.store.SetNotificationTime(ctx, notify.FormatTime(hour, minute)); err != nil {
			return fmt.Errorf("set reminder time: %w", err)
		}
	}
	if c.Enable || c.Disable {
		if err := a.store.SetNotificationsEnabled(ctx, c.Enable); err != nil {
			return fmt.Errorf("set reminder: %w", err)
		}
	}

	now := a.now()
	plan := notify.NewPlan(
		now,
		a.store.NotificationsEnabled(ctx),
		a.store.NotificationTime(ctx, a.cfg.Notification.Time),
		a.repo.GetEntry(ctx, now, true),
	)

	if wantJSON(c.globals) {
		return printJSON(plan)
	}

	state := "off"
	if plan.Enabled {
		state = "on"
	}
	fmt.Printf("Reminder:  %s at %s\n", state, plan.Time)
	fmt.Printf("Next:      %s\n", plan.Next.Format("2006-01-02 15:04"))
	fmt.Printf("Message:   %s\n", plan.Text)
	return nil
}
