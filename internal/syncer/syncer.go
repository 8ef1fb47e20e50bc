// Package syncer drains the pending-action outbox against the remote API.
// A single coordinator owns the drain loop: actions replay strictly in
// enqueue order, one failure never blocks the rest of the queue, and a
// cycle never starts while another is running.
package syncer

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/knockerapp/fieldsync/internal/remote"
	"github.com/knockerapp/fieldsync/pkg/config"
	"github.com/knockerapp/fieldsync/pkg/db/models"
	"github.com/knockerapp/fieldsync/pkg/enums"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/logger"
	"github.com/knockerapp/fieldsync/pkg/metrics"
)

// Storage is the slice of the local store the coordinator needs.
type Storage interface {
	ListPendingActions(ctx context.Context) ([]models.PendingAction, error)
	RemovePendingAction(ctx context.Context, id uint) error
	MarkActionAttempt(ctx context.Context, id uint, cause error) error
	DeadLetterAction(ctx context.Context, action models.PendingAction, cause error) error
	ReconcileID(ctx context.Context, kind enums.EntityKind, localID, serverID string) error
}

// Pusher replays one action against the remote API.
type Pusher interface {
	PushAction(ctx context.Context, req remote.PushRequest) (remote.PushResult, error)
}

// Prober reports whether the remote is reachable.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// Params carries the dependencies for New.
type Params struct {
	Storage Storage
	Pusher  Pusher
	Prober  Prober
	Config  config.SyncConfig
	Log     *logger.Logger
	Metrics *metrics.SyncMetrics
}

// Coordinator drains the outbox on a schedule and on demand.
type Coordinator struct {
	storage Storage
	pusher  Pusher
	prober  Prober
	cfg     config.SyncConfig
	log     *logger.Logger
	metrics *metrics.SyncMetrics

	syncing atomic.Bool
	now     func() time.Time
}

// New validates params and builds a Coordinator.
func New(params Params) (*Coordinator, error) {
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer: Storage is required")
	}
	if params.Pusher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer: Pusher is required")
	}
	if params.Prober == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer: Prober is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer: Log is required")
	}
	if params.Config.MaxAttempts <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "syncer: MaxAttempts must be positive")
	}
	if params.Metrics == nil {
		params.Metrics = metrics.NewSyncMetrics(nil)
	}
	return &Coordinator{
		storage: params.Storage,
		pusher:  params.Pusher,
		prober:  params.Prober,
		cfg:     params.Config,
		log:     params.Log,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

// Run drives periodic sync cycles until ctx is cancelled. An immediate
// cycle runs at startup so a relaunched app drains its backlog without
// waiting a full interval.
func (c *Coordinator) Run(ctx context.Context) {
	c.log.Info(ctx, "sync coordinator started")
	c.SyncNow(ctx)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info(ctx, "sync coordinator stopping")
			return
		case <-ticker.C:
			c.SyncNow(ctx)
		}
	}
}

// Outcome summarizes one sync cycle.
type Outcome struct {
	Ran          bool
	Synced       int
	Failed       int
	DeadLettered int
	Skipped      int
}

// SyncNow runs one drain cycle. It is a no-op when the remote is
// unreachable or another cycle is already in flight, so callers may
// trigger it freely on connectivity regain or user request.
func (c *Coordinator) SyncNow(ctx context.Context) Outcome {
	if !c.syncing.CompareAndSwap(false, true) {
		c.log.Debug(ctx, "sync already in progress, skipping")
		return Outcome{}
	}
	defer c.syncing.Store(false)

	if !c.prober.Reachable(ctx) {
		c.log.Debug(ctx, "remote unreachable, skipping sync cycle")
		c.metrics.ObserveCycle("offline", 0)
		return Outcome{}
	}

	started := c.now()
	outcome := c.drain(ctx)
	outcomeLabel := "ok"
	if outcome.Failed > 0 {
		outcomeLabel = "partial"
	}
	c.metrics.ObserveCycle(outcomeLabel, c.now().Sub(started))

	cctx := c.log.WithFields(ctx, map[string]any{
		"synced":        outcome.Synced,
		"failed":        outcome.Failed,
		"dead_lettered": outcome.DeadLettered,
		"skipped":       outcome.Skipped,
	})
	c.log.Info(cctx, "sync cycle finished")
	return outcome
}

// drain replays every due pending action in enqueue order. Each action is
// settled independently: a failure marks the attempt and moves on. Renames
// from reconciled creates are applied to later actions in the same cycle,
// since the slice was captured before ReconcileID rewrote their rows.
func (c *Coordinator) drain(ctx context.Context) Outcome {
	outcome := Outcome{Ran: true}

	actions, err := c.storage.ListPendingActions(ctx)
	if err != nil {
		c.log.Error(ctx, "listing pending actions", err)
		return outcome
	}

	renames := make(map[string]string)
	for _, action := range actions {
		if ctx.Err() != nil {
			return outcome
		}
		if !c.due(action) {
			outcome.Skipped++
			continue
		}
		if serverID, ok := renames[action.EntityID]; ok {
			action.EntityID = serverID
		}

		actx := c.log.WithEntity(ctx, string(action.EntityType), action.EntityID)
		serverID, err := c.settle(actx, action)
		if err != nil {
			outcome.Failed++
			c.metrics.IncFailure(string(action.EntityType), string(action.Action))
			if c.handleFailure(actx, action, err) {
				outcome.DeadLettered++
			}
			continue
		}
		if serverID != "" {
			renames[action.EntityID] = serverID
		}
		outcome.Synced++
		c.metrics.IncSuccess(string(action.EntityType), string(action.Action))
	}
	return outcome
}

// settle pushes one action and applies its local consequences. A create
// whose remote copy was minted under a new identifier rewrites the local
// rows before the queue row is removed, so a crash in between replays the
// push rather than losing the rename. The new identifier is returned so
// the caller can redirect later actions for the same entity.
func (c *Coordinator) settle(ctx context.Context, action models.PendingAction) (string, error) {
	result, err := c.pusher.PushAction(ctx, remote.PushRequest{
		EntityType: action.EntityType,
		EntityID:   action.EntityID,
		Action:     action.Action,
		Payload:    action.Payload,
	})
	if err != nil {
		return "", err
	}

	serverID := ""
	if action.Action == enums.ActionCreate && result.ServerID != "" && result.ServerID != action.EntityID {
		if err := c.storage.ReconcileID(ctx, action.EntityType, action.EntityID, result.ServerID); err != nil {
			return "", err
		}
		serverID = result.ServerID
	}
	return serverID, c.storage.RemovePendingAction(ctx, action.ID)
}

// handleFailure records the attempt, dead-lettering when the action is
// spent or the rejection is permanent. Returns true when the action was
// moved to the dead-letter table.
func (c *Coordinator) handleFailure(ctx context.Context, action models.PendingAction, cause error) bool {
	exhausted := action.Attempts+1 >= c.cfg.MaxAttempts
	permanent := !pkgerrors.Retryable(cause)

	if exhausted || permanent {
		if err := c.storage.DeadLetterAction(ctx, action, cause); err != nil {
			c.log.Error(ctx, "dead-lettering action", err)
			return false
		}
		c.metrics.IncDeadLettered(string(action.EntityType), string(action.Action))
		c.log.Warn(ctx, "action dead-lettered")
		return true
	}

	if err := c.storage.MarkActionAttempt(ctx, action.ID, cause); err != nil {
		c.log.Error(ctx, "recording failed attempt", err)
	}
	return false
}

// due reports whether an action's backoff window has elapsed. Fresh
// actions are always due; retried ones wait exponentially longer with
// jitter so a flapping connection does not hammer the API.
func (c *Coordinator) due(action models.PendingAction) bool {
	if action.Attempts == 0 || action.LastAttempt == nil {
		return true
	}
	return c.now().After(action.LastAttempt.Add(c.backoff(action.Attempts)))
}

func (c *Coordinator) backoff(attempts int) time.Duration {
	base := c.cfg.BackoffBase
	if base <= 0 {
		base = 2 * time.Second
	}
	limit := c.cfg.BackoffCap
	if limit <= 0 {
		limit = 5 * time.Minute
	}

	delay := base
	for i := 1; i < attempts && delay < limit; i++ {
		delay *= 2
	}
	if delay > limit {
		delay = limit
	}
	// Up to 25% jitter.
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
