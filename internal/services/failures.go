package services

import (
	"context"
	"log"
	"time"

	"rating-engine/internal/audit"
	"rating-engine/internal/models"
)

// PendingEnqueuer stores a failed update for the retry worker.
type PendingEnqueuer interface {
	Enqueue(ctx context.Context, p *models.PendingRatingUpdate) error
}

// AuditLogger records failures in the audit trail.
type AuditLogger interface {
	LogEvent(eventType, matchID, playerID, details string)
}

// FailureRecorder is the production FailureSink: every failure is audited and
// retryable ones are queued for replay.
type FailureRecorder struct {
	pending PendingEnqueuer
	audit   AuditLogger
	delay   time.Duration
	now     func() time.Time
}

func NewFailureRecorder(pending PendingEnqueuer, auditLog AuditLogger, delay time.Duration) *FailureRecorder {
	return &FailureRecorder{
		pending: pending,
		audit:   auditLog,
		delay:   delay,
		now:     time.Now,
	}
}

func (r *FailureRecorder) RecordFailure(ctx context.Context, f FailedUpdate) {
	if r.audit != nil {
		r.audit.LogEvent(audit.EventRatingUpdateFailed, f.Err.MatchID, f.Err.PlayerID, f.Err.Error())
	}
	if !f.Err.Retryable || r.pending == nil {
		return
	}

	// The caller's context may be a request that is about to end.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	now := r.now()
	err := r.pending.Enqueue(ctx, &models.PendingRatingUpdate{
		MatchID:       f.Err.MatchID,
		PlayerID:      f.Err.PlayerID,
		Outcome:       f.Outcome,
		Opponents:     f.Opponents,
		History:       f.History,
		ErrorKind:     string(f.Err.Kind),
		LastError:     f.Err.Err.Error(),
		Status:        models.PendingStatusQueued,
		NextAttemptAt: now.Add(r.delay),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		log.Printf("[RatingUpdate] Failed to queue retry for player %s in match %s: %v", f.Err.PlayerID, f.Err.MatchID, err)
	}
}
