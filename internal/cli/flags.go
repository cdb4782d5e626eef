package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ShowCommand prints the entry for a day.
type ShowCommand struct {
	Date        string `long:"date" description:"Day to show as YYYY-MM-DD (default: today)"`
	PreferLocal bool   `long:"prefer-local" description:"Only consult the downloaded archive"`
	Fetch       bool   `long:"fetch" description:"Download the archive for the day's year first"`

	globals *GlobalFlags
	version string
	app     *app // injectable for testing; nil means open from config
}

// FetchCommand downloads the yearly archive.
type FetchCommand struct {
	Year int `long:"year" description:"Year to download (default: current year)"`

	globals *GlobalFlags
	version string
	app     *app
}

// SessionCommand begins a new viewing session for today.
type SessionCommand struct {
	globals *GlobalFlags
	version string
	app     *app
}

// ModeCommand shows or switches the selection mode.
type ModeCommand struct {
	Random     bool `long:"random" description:"Pick a weighted random verse, avoiding repeats within the year"`
	Sequential bool `long:"sequential" description:"Walk a fixed per-year order"`

	globals *GlobalFlags
	version string
	app     *app
}

// DatasetCommand lists or switches the bundled collection.
type DatasetCommand struct {
	Select string `long:"select" description:"Bundled collection to activate"`

	globals *GlobalFlags
	version string
	app     *app
}

// NotifyCommand shows or configures the daily reminder.
type NotifyCommand struct {
	Time    string `long:"time" description:"Reminder time as HH:MM"`
	Enable  bool   `long:"enable" description:"Switch the reminder on"`
	Disable bool   `long:"disable" description:"Switch the reminder off"`

	globals *GlobalFlags
	version string
	app     *app
}

// StatusCommand shows cached archives, dataset and store statistics.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	app     *app
}

// PruneCommand drops cached archives and selection state of old years.
type PruneCommand struct {
	BeforeYear int  `long:"before-year" description:"Remove everything for years before this one (required)"`
	DryRun     bool `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
	app     *app
}

// PurgeCommand deletes ALL state and cached archives with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	app     *app
	stdin   io.Reader // injectable for testing; nil means os.Stdin
}
