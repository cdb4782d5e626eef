package cli

import (
	"context"
	"fmt"
)

type datasetJSON struct {
	Name    string `json:"name"`
	Active  bool   `json:"active"`
	Records int    `json:"records,omitempty"`
}

// Execute implements the go-flags Commander interface for DatasetCommand.
func (c *DatasetCommand) Execute(args []string) error {
	return withApp(c.app, c.globals, c.executeWithApp)
}

func (c *DatasetCommand) executeWithApp(a *app) error {
	ctx := context.Background()

	if c.Select != "" {
		if err := a.repo.SelectDataset(ctx, c.Select); err != nil {
			return err
		}
	}

	active := a.repo.ActiveDataset(ctx)
	var out []datasetJSON
	for _, name := range a.repo.Available() {
		d := datasetJSON{Name: name, Active: name == active}
		if d.Active {
			d.Records = len(a.repo.Records(ctx))
		}
		out = append(out, d)
	}

	if wantJSON(c.globals) {
		return printJSON(out)
	}
	for _, d := range out {
		if d.Active {
			fmt.Printf("* %s (%d verses)\n", d.Name, d.Records)
		} else {
			fmt.Printf("  %s\n", d.Name)
		}
	}
	return nil
}
