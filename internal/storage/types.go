package storage

// Preference keys.
const (
	PrefRandomMode           = "random_verse_mode"
	PrefFallbackActive       = "fallback_active"
	PrefActiveDataset        = "active_dataset"
	PrefNotificationsEnabled = "push_notifications"
	PrefNotificationTime     = "push_time"
)

// Stats holds aggregate statistics about the selection state.
type Stats struct {
	OrderYears  []YearOrderInfo
	UsedByYear  []YearCount
	SessionDays int64
	Preferences map[string]string
}

// YearOrderInfo describes one stored year order.
type YearOrderInfo struct {
	Year int
	Size int
}

// YearCount pairs a year with the number of verses used in it.
type YearCount struct {
	Year  int
	Count int64
}
