package cli

import (
	"context"
	"fmt"
)

type sessionJSON struct {
	Date    string `json:"date"`
	Random  bool   `json:"random"`
	Started bool   `json:"started"`
	Offset  int    `json:"offset"`
}

// Execute implements the go-flags Commander interface for SessionCommand.
func (c *SessionCommand) Execute(args []string) error {
	return withApp(c.app, c.globals, c.executeWithApp)
}

func (c *SessionCommand) executeWithApp(a *app) error {
	ctx := context.Background()

	a.repo.BeginTodaySession(ctx)
	date, offset, started := a.selector.ActiveSession()
	out := sessionJSON{
		Date:    date,
		Random:  a.store.IsRandomModeEnabled(ctx),
		Started: started,
		Offset:  offset,
	}

	if wantJSON(c.globals) {
		return printJSON(out)
	}
	if !out.Started {
		fmt.Println("Random mode is active; sessions do not rotate the verse.")
		return nil
	}
	fmt.Printf("Session started for %s (offset %d)\n", out.Date, out.Offset)
	if !a.cfg.Selector.SessionRotation {
		fmt.Println("Note: selector.session_rotation is off, so the shown verse does not change.")
	}
	return nil
}
