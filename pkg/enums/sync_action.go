package enums

import "fmt"

// SyncAction is the mutation a pending action replays upstream.
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionDelete SyncAction = "delete"
)

var validSyncActions = []SyncAction{
	ActionCreate,
	ActionUpdate,
	ActionDelete,
}

// IsValid reports whether the value is a known sync action.
func (a SyncAction) IsValid() bool {
	for _, candidate := range validSyncActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseSyncAction converts raw input into SyncAction.
func ParseSyncAction(value string) (SyncAction, error) {
	for _, candidate := range validSyncActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync action %q", value)
}
