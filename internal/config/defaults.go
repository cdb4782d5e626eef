package config

import "time"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			URLTemplate:    "https://www.losungen.de/fileadmin/media-losungen/download/Losung_%d_XML.zip",
			Dataset:        "losungen",
			ConnectTimeout: 15 * time.Second,
			ReadTimeout:    15 * time.Second,
		},
		Storage: StorageConfig{
			Path:              "~/.config/dailyverse",
			SQLiteFile:        "dailyverse.db",
			CacheDir:          "archives",
			SQLiteJournalMode: "wal",
		},
		Selector: SelectorConfig{
			BalanceOrder:    true,
			SessionRotation: false,
		},
		Bundled: BundledConfig{
			DefaultDataset: "Luther1912.xml",
			Datasets:       DefaultBundledDatasets(),
		},
		Notification: NotificationConfig{
			Time: "08:00",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// DefaultBundledDatasets returns the bundled collections a user may switch
// between. Each name is a file embedded in the binary.
func DefaultBundledDatasets() []string {
	return []string{
		"Luther1912.xml",
		"Elberfelder1905.xml",
	}
}
