package enums

import "fmt"

// SyncStatus tracks whether a row's local state is confirmed upstream.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

var validSyncStatuses = []SyncStatus{
	SyncPending,
	SyncSyncing,
	SyncSynced,
	SyncFailed,
}

// IsValid reports whether the value is a known sync status.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncStatus converts raw input into SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, error) {
	for _, candidate := range validSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync status %q", value)
}
