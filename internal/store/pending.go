package store

import (
	"context"
	"time"

	"rating-engine/internal/db"
	"rating-engine/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PendingStore queues failed per-player rating updates for asynchronous replay.
type PendingStore struct {
	db *db.MongoDB
}

func NewPendingStore(database *db.MongoDB) *PendingStore {
	return &PendingStore{db: database}
}

// Enqueue records a failed update. A second failure for the same match and
// player refreshes the error but keeps the original outcome and attempt count.
func (s *PendingStore) Enqueue(ctx context.Context, p *models.PendingRatingUpdate) error {
	_, err := s.db.PendingRatingUpdates().UpdateOne(ctx, bson.M{
		"matchId":  p.MatchID,
		"playerId": p.PlayerID,
	}, enqueueUpdate(p, time.Now()), options.Update().SetUpsert(true))
	return translate("enqueue pending update", err)
}

// enqueueUpdate keeps an unwritten history entry even when the row already
// exists, since a later failure may be the first to carry one.
func enqueueUpdate(p *models.PendingRatingUpdate, now time.Time) bson.M {
	set := bson.M{
		"status":        models.PendingStatusQueued,
		"errorKind":     p.ErrorKind,
		"lastError":     p.LastError,
		"nextAttemptAt": p.NextAttemptAt,
		"updatedAt":     now,
	}
	if p.History != nil {
		set["history"] = p.History
	}
	return bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"outcome":   p.Outcome,
			"opponents": p.Opponents,
			"attempts":  0,
			"createdAt": now,
		},
	}
}

// Due returns queued updates whose next attempt time has passed.
func (s *PendingStore) Due(ctx context.Context, now time.Time, limit int) ([]models.PendingRatingUpdate, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "nextAttemptAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.PendingRatingUpdates().Find(ctx, bson.M{
		"status":        models.PendingStatusQueued,
		"nextAttemptAt": bson.M{"$lte": now},
	}, opts)
	if err != nil {
		return nil, translate("find pending updates", err)
	}
	defer cursor.Close(ctx)

	var pending []models.PendingRatingUpdate
	if err := cursor.All(ctx, &pending); err != nil {
		return nil, translate("decode pending updates", err)
	}
	return pending, nil
}

func (s *PendingStore) MarkApplied(ctx context.Context, id primitive.ObjectID) error {
	return s.setStatus(ctx, id, models.PendingStatusApplied, bson.M{})
}

func (s *PendingStore) Abandon(ctx context.Context, id primitive.ObjectID, lastError string) error {
	return s.setStatus(ctx, id, models.PendingStatusAbandoned, bson.M{"lastError": lastError})
}

// Reschedule bumps the attempt counter and pushes the next attempt out. A
// non-nil history entry replaces the stored one.
func (s *PendingStore) Reschedule(ctx context.Context, id primitive.ObjectID, next time.Time, errorKind, lastError string, history *models.RatingHistoryEntry) error {
	_, err := s.db.PendingRatingUpdates().UpdateOne(ctx, bson.M{"_id": id},
		rescheduleUpdate(next, errorKind, lastError, history, time.Now()))
	return translate("reschedule pending update", err)
}

func rescheduleUpdate(next time.Time, errorKind, lastError string, history *models.RatingHistoryEntry, now time.Time) bson.M {
	set := bson.M{
		"nextAttemptAt": next,
		"errorKind":     errorKind,
		"lastError":     lastError,
		"updatedAt":     now,
	}
	if history != nil {
		set["history"] = history
	}
	return bson.M{
		"$set": set,
		"$inc": bson.M{"attempts": 1},
	}
}

func (s *PendingStore) setStatus(ctx context.Context, id primitive.ObjectID, status models.PendingStatus, extra bson.M) error {
	_, err := s.db.PendingRatingUpdates().UpdateOne(ctx, bson.M{"_id": id}, statusUpdate(status, extra, time.Now()))
	return translate("update pending status", err)
}

// statusUpdate moves an entry to a terminal status. Only Reschedule counts attempts.
func statusUpdate(status models.PendingStatus, extra bson.M, now time.Time) bson.M {
	set := bson.M{
		"status":    status,
		"updatedAt": now,
	}
	for k, v := range extra {
		set[k] = v
	}
	return bson.M{"$set": set}
}
