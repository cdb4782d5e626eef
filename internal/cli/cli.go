package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Show    *ShowCommand
	Fetch   *FetchCommand
	Session *SessionCommand
	Mode    *ModeCommand
	Dataset *DatasetCommand
	Notify  *NotifyCommand
	Status  *StatusCommand
	Prune   *PruneCommand
	Purge   *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "dailyverse"
	parser.LongDescription = "A verse for every day, from the yearly archive or the bundled collections."

	cmds := &commands{
		Show:    &ShowCommand{globals: &globals, version: version},
		Fetch:   &FetchCommand{globals: &globals, version: version},
		Session: &SessionCommand{globals: &globals, version: version},
		Mode:    &ModeCommand{globals: &globals, version: version},
		Dataset: &DatasetCommand{globals: &globals, version: version},
		Notify:  &NotifyCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
		Prune:   &PruneCommand{globals: &globals, version: version},
		Purge:   &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("show", "Show the verse of a day", "Show the verse of a day, from the downloaded archive when available and the bundled collection otherwise.", cmds.Show)
	parser.AddCommand("fetch", "Download the yearly archive", "Download and cache the yearly archive. Does nothing when it is already cached.", cmds.Fetch)
	parser.AddCommand("session", "Begin a new session for today", "Begin a new viewing session for today, rotating the sequential pick.", cmds.Session)
	parser.AddCommand("mode", "Show or switch the selection mode", "Show or switch between random and sequential selection.", cmds.Mode)
	parser.AddCommand("dataset", "List or switch bundled collections", "List the bundled collections or switch the active one.", cmds.Dataset)
	parser.AddCommand("notify", "Show or configure the daily reminder", "Show when the daily reminder fires next and what it says, or configure it.", cmds.Notify)
	parser.AddCommand("status", "Show cache and state statistics", "Show cached archives, the active collection and stored selection state.", cmds.Status)
	parser.AddCommand("prune", "Remove data of past years", "Remove cached archives and selection state of years before --before-year.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL dailyverse data", "Delete ALL dailyverse data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the dailyverse CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("dailyverse %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
