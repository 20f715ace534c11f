package store

import (
	"context"
	"time"

	"rating-engine/internal/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Locker hands out short-lived distributed locks backed by the cleanup_locks collection.
type Locker struct {
	db *db.MongoDB
}

func NewLocker(database *db.MongoDB) *Locker {
	return &Locker{db: database}
}

// TryLock acquires lockID for ttl. It returns false when another instance
// holds an unexpired lock; the upsert then collides on _id.
func (l *Locker) TryLock(ctx context.Context, lockID string, ttl time.Duration) bool {
	now := time.Now()
	_, err := l.db.CleanupLocks().UpdateOne(ctx,
		bson.M{
			"_id":       lockID,
			"expiresAt": bson.M{"$lte": now},
		},
		bson.M{
			"$set": bson.M{
				"expiresAt": now.Add(ttl),
				"lockedAt":  now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err == nil
}

func (l *Locker) Unlock(ctx context.Context, lockID string) {
	l.db.CleanupLocks().DeleteOne(ctx, bson.M{"_id": lockID})
}
