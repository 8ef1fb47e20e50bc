package controllers

import (
	"net/http"

	"github.com/knockerapp/fieldsync/api/responses"
	"github.com/knockerapp/fieldsync/internal/store"
	"github.com/knockerapp/fieldsync/internal/syncer"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

// SyncTrigger kicks off a sync cycle immediately. The response reports
// what the cycle did; a cycle that found the remote unreachable or
// another cycle running reports ran=false.
func SyncTrigger(coord *syncer.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome := coord.SyncNow(r.Context())
		responses.WriteSuccess(w, map[string]any{
			"ran":          outcome.Ran,
			"synced":       outcome.Synced,
			"failed":       outcome.Failed,
			"deadLettered": outcome.DeadLettered,
			"skipped":      outcome.Skipped,
		})
	}
}

// SyncStatus reports the backlog of pending actions.
func SyncStatus(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := st.CountPendingActions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"pending": count})
	}
}
