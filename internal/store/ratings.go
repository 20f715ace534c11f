package store

import (
	"context"
	"time"

	"rating-engine/internal/db"
	"rating-engine/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RatingStore persists rating records and the append-only rating history in MongoDB.
type RatingStore struct {
	db *db.MongoDB
}

func NewRatingStore(database *db.MongoDB) *RatingStore {
	return &RatingStore{db: database}
}

// GetRecord returns ErrRecordNotFound for a player who has never been rated.
func (s *RatingStore) GetRecord(ctx context.Context, playerID string) (*models.PlayerRatingRecord, error) {
	var rec models.PlayerRatingRecord
	err := s.db.PlayerRatings().FindOne(ctx, bson.M{"_id": playerID}).Decode(&rec)
	if err != nil {
		return nil, translate("get rating record", err)
	}
	return &rec, nil
}

// SaveRecord writes rec only if the stored version still equals expectedVersion.
// expectedVersion 0 means the record must not exist yet. On success rec.Version
// is advanced.
func (s *RatingStore) SaveRecord(ctx context.Context, rec *models.PlayerRatingRecord, expectedVersion int64) error {
	next := *rec
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now()

	if expectedVersion == 0 {
		_, err := s.db.PlayerRatings().InsertOne(ctx, next)
		if mongo.IsDuplicateKeyError(err) {
			return ErrPersistenceConflict
		}
		if err != nil {
			return translate("insert rating record", err)
		}
		*rec = next
		return nil
	}

	result, err := s.db.PlayerRatings().ReplaceOne(ctx, bson.M{
		"_id":     rec.PlayerID,
		"version": expectedVersion,
	}, next)
	if err != nil {
		return translate("replace rating record", err)
	}
	if result.MatchedCount == 0 {
		return ErrPersistenceConflict
	}

	*rec = next
	return nil
}

// AppendHistory inserts a history row. A row that already exists for the same
// match and player is left untouched.
func (s *RatingStore) AppendHistory(ctx context.Context, entry *models.RatingHistoryEntry) error {
	_, err := s.db.RatingHistory().InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return translate("append rating history", err)
}

// HasHistory reports whether a player's update for a match has been recorded.
func (s *RatingStore) HasHistory(ctx context.Context, matchID, playerID string) (bool, error) {
	count, err := s.db.RatingHistory().CountDocuments(ctx, bson.M{
		"matchId":  matchID,
		"playerId": playerID,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, translate("count rating history", err)
	}
	return count > 0, nil
}

// ListHistory returns a player's most recent history rows, newest first.
func (s *RatingStore) ListHistory(ctx context.Context, playerID string, limit int) ([]models.RatingHistoryEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.RatingHistory().Find(ctx, bson.M{"playerId": playerID}, opts)
	if err != nil {
		return nil, translate("find rating history", err)
	}
	defer cursor.Close(ctx)

	entries := []models.RatingHistoryEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, translate("decode rating history", err)
	}
	return entries, nil
}

// TopRecords returns the highest rated players that have completed a game.
func (s *RatingStore) TopRecords(ctx context.Context, limit int) ([]models.PlayerRatingRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.db.PlayerRatings().Find(ctx, bson.M{"gamesPlayed": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, translate("find top ratings", err)
	}
	defer cursor.Close(ctx)

	var records []models.PlayerRatingRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, translate("decode top ratings", err)
	}
	return records, nil
}
