package models

// All lists every model backing the local store, in migration order.
func All() []any {
	return []any{
		&Property{},
		&Event{},
		&Lead{},
		&PendingAction{},
		&ValueSet{},
		&SyncDeadLetter{},
	}
}
