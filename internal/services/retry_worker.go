package services

import (
	"context"
	"log"
	"math"
	"time"

	"rating-engine/internal/audit"
	"rating-engine/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const retryLockID = "rating_update_retry"

// PendingQueue is the store side of the retry worker.
type PendingQueue interface {
	Due(ctx context.Context, now time.Time, limit int) ([]models.PendingRatingUpdate, error)
	MarkApplied(ctx context.Context, id primitive.ObjectID) error
	Reschedule(ctx context.Context, id primitive.ObjectID, next time.Time, errorKind, lastError string, history *models.RatingHistoryEntry) error
	Abandon(ctx context.Context, id primitive.ObjectID, lastError string) error
}

// Locker keeps a single instance working the queue at a time.
type Locker interface {
	TryLock(ctx context.Context, lockID string, ttl time.Duration) bool
	Unlock(ctx context.Context, lockID string)
}

// RetryOptions controls the replay loop.
type RetryOptions struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Backoff     time.Duration
	LockTTL     time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		Interval:    30 * time.Second,
		BatchSize:   50,
		MaxAttempts: 8,
		Backoff:     30 * time.Second,
		LockTTL:     2 * time.Minute,
	}
}

// RetryWorker periodically replays failed per-player rating updates.
type RetryWorker struct {
	queue   PendingQueue
	locker  Locker
	updater *RatingUpdateService
	audit   AuditLogger
	opts    RetryOptions
	stopCh  chan struct{}
	now     func() time.Time
}

func NewRetryWorker(queue PendingQueue, locker Locker, updater *RatingUpdateService, auditLog AuditLogger, opts RetryOptions) *RetryWorker {
	defaults := DefaultRetryOptions()
	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaults.Backoff
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaults.LockTTL
	}
	return &RetryWorker{
		queue:   queue,
		locker:  locker,
		updater: updater,
		audit:   auditLog,
		opts:    opts,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
}

// Start begins the replay loop in a background goroutine.
func (w *RetryWorker) Start() {
	go w.run()
	log.Printf("[RetryWorker] Started (interval: %s, max attempts: %d)", w.opts.Interval, w.opts.MaxAttempts)
}

// Stop signals the replay loop to exit.
func (w *RetryWorker) Stop() {
	close(w.stopCh)
	log.Println("[RetryWorker] Stopped")
}

func (w *RetryWorker) run() {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.opts.LockTTL)
			w.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce processes one batch of due updates and returns how many were applied.
func (w *RetryWorker) RunOnce(ctx context.Context) int {
	if !w.locker.TryLock(ctx, retryLockID, w.opts.LockTTL) {
		return 0 // another instance holds the queue
	}
	defer w.locker.Unlock(ctx, retryLockID)

	due, err := w.queue.Due(ctx, w.now(), w.opts.BatchSize)
	if err != nil {
		log.Printf("[RetryWorker] Failed to load pending updates: %v", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	log.Printf("[RetryWorker] Replaying %d pending update(s)", len(due))

	applied := 0
	for i := range due {
		if w.replay(ctx, &due[i]) {
			applied++
		}
	}
	return applied
}

func (w *RetryWorker) replay(ctx context.Context, p *models.PendingRatingUpdate) bool {
	report, err := w.updater.ReplayPending(ctx, p)
	if err != nil {
		w.abandon(ctx, p, err.Error())
		return false
	}

	uerr, failed := report.Failures[p.PlayerID]
	if !failed {
		if err := w.queue.MarkApplied(ctx, p.ID); err != nil {
			log.Printf("[RetryWorker] Failed to mark %s/%s applied: %v", p.MatchID, p.PlayerID, err)
		}
		return true
	}

	attempts := p.Attempts + 1
	if !uerr.Retryable || attempts >= w.opts.MaxAttempts {
		w.abandon(ctx, p, uerr.Error())
		return false
	}

	history := report.PendingHistory[p.PlayerID]
	if history == nil {
		history = p.History
	}
	next := w.now().Add(w.backoff(attempts))
	if err := w.queue.Reschedule(ctx, p.ID, next, string(uerr.Kind), uerr.Err.Error(), history); err != nil {
		log.Printf("[RetryWorker] Failed to reschedule %s/%s: %v", p.MatchID, p.PlayerID, err)
	}
	return false
}

func (w *RetryWorker) abandon(ctx context.Context, p *models.PendingRatingUpdate, reason string) {
	log.Printf("[RetryWorker] Giving up on player %s in match %s after %d attempt(s): %s",
		p.PlayerID, p.MatchID, p.Attempts+1, reason)
	if err := w.queue.Abandon(ctx, p.ID, reason); err != nil {
		log.Printf("[RetryWorker] Failed to abandon %s/%s: %v", p.MatchID, p.PlayerID, err)
	}
	if w.audit != nil {
		w.audit.LogEvent(audit.EventRatingUpdateAbandoned, p.MatchID, p.PlayerID, reason)
	}
}

// backoff doubles per attempt, capped at 64x the base delay.
func (w *RetryWorker) backoff(attempts int) time.Duration {
	factor := math.Pow(2, math.Min(float64(attempts-1), 6))
	return time.Duration(float64(w.opts.Backoff) * factor)
}
