package storage

import (
	"context"
	"strconv"
)

// IsRandomModeEnabled reports the random-mode preference. Missing or
// unreadable values count as enabled.
func (s *SQLiteStore) IsRandomModeEnabled(ctx context.Context) bool {
	return s.boolPreference(ctx, PrefRandomMode, true)
}

// SetRandomMode stores the random-mode preference.
func (s *SQLiteStore) SetRandomMode(ctx context.Context, enabled bool) error {
	return s.SetPreference(ctx, PrefRandomMode, strconv.FormatBool(enabled))
}

// FallbackActive reports the alternate-source accent flag.
func (s *SQLiteStore) FallbackActive(ctx context.Context) bool {
	return s.boolPreference(ctx, PrefFallbackActive, false)
}

// ActiveDataset returns the selected bundled collection, or def when none
// has been chosen.
func (s *SQLiteStore) ActiveDataset(ctx context.Context, def string) string {
	return s.stringPreference(ctx, PrefActiveDataset, def)
}

// SetActiveDataset stores the selected bundled collection.
func (s *SQLiteStore) SetActiveDataset(ctx context.Context, name string) error {
	return s.SetPreference(ctx, PrefActiveDataset, name)
}

// NotificationsEnabled reports whether the daily notification is switched on.
func (s *SQLiteStore) NotificationsEnabled(ctx context.Context) bool {
	return s.boolPreference(ctx, PrefNotificationsEnabled, false)
}

// SetNotificationsEnabled switches the daily notification on or off.
func (s *SQLiteStore) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return s.SetPreference(ctx, PrefNotificationsEnabled, strconv.FormatBool(enabled))
}

// NotificationTime returns the stored HH:MM notification time, or def.
func (s *SQLiteStore) NotificationTime(ctx context.Context, def string) string {
	return s.stringPreference(ctx, PrefNotificationTime, def)
}

// SetNotificationTime stores the HH:MM notification time.
func (s *SQLiteStore) SetNotificationTime(ctx context.Context, hhmm string) error {
	return s.SetPreference(ctx, PrefNotificationTime, hhmm)
}

func (s *SQLiteStore) boolPreference(ctx context.Context, key string, def bool) bool {
	raw, ok, err := s.GetPreference(ctx, key)
	if err != nil || !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func (s *SQLiteStore) stringPreference(ctx context.Context, key, def string) string {
	raw, ok, err := s.GetPreference(ctx, key)
	if err != nil || !ok || raw == "" {
		return def
	}
	return raw
}
