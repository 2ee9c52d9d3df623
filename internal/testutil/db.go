// Package testutil provides shared helpers for tests that need a
// migrated database or canned domain fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxatron/internal/model"
	"github.com/Veraticus/taxatron/internal/storage"
)

// SetupTestDB creates a migrated in-memory database and registers
// cleanup.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Date builds a UTC midnight time from a date string, failing the
// test on a typo.
func Date(t *testing.T, value string) time.Time {
	t.Helper()

	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed.UTC()
}

// DatePtr is Date for optional interval ends.
func DatePtr(t *testing.T, value string) *time.Time {
	t.Helper()

	parsed := Date(t, value)
	return &parsed
}

// StandardSituation returns an Austrian standard-regime situation
// covering 2024 onwards, for tests that don't care about the
// timeline.
func StandardSituation(t *testing.T) model.Situation {
	t.Helper()

	return model.Situation{
		ID:                     "sit-standard",
		Jurisdiction:           "AT",
		From:                   Date(t, "2024-01-01"),
		VATStatus:              model.VATStatusStandard,
		TelecomBusinessPercent: 60,
	}
}

// IntPtr and BoolPtr build pointer literals for suggestion fixtures.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
