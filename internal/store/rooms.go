package store

import (
	"context"
	"time"

	"rating-engine/internal/db"
	"rating-engine/internal/models"
	"rating-engine/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomStore reads room snapshots and creates new rooms in the rooms collection,
// which is shared with the room service.
type RoomStore struct {
	db       *db.MongoDB
	capacity int
}

func NewRoomStore(database *db.MongoDB, capacity int) *RoomStore {
	if capacity <= 0 {
		capacity = models.DefaultRoomCapacity
	}
	return &RoomStore{db: database, capacity: capacity}
}

// ListWaitingRanked returns every ranked room still in the waiting state, oldest first.
func (s *RoomStore) ListWaitingRanked(ctx context.Context) ([]models.RoomCandidate, error) {
	cursor, err := s.db.Rooms().Find(ctx, bson.M{
		"isRanked": true,
		"status":   models.RoomStatusWaiting,
	}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, translate("find waiting rooms", err)
	}
	defer cursor.Close(ctx)

	rooms := []models.RoomCandidate{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, translate("decode waiting rooms", err)
	}
	return rooms, nil
}

// CreateRoom opens a ranked waiting room seeded with the requesting player.
func (s *RoomStore) CreateRoom(ctx context.Context, playerID string, rating int) (string, error) {
	name, err := utils.GenerateUniqueRoomName(ctx, s.nameTaken)
	if err != nil {
		return "", err
	}

	room := models.RoomCandidate{
		RoomID:        uuid.New().String(),
		Name:          name,
		IsRanked:      true,
		Status:        models.RoomStatusWaiting,
		PlayerIDs:     []string{playerID},
		PlayerRatings: []int{rating},
		Capacity:      s.capacity,
		CreatedAt:     time.Now(),
	}

	if _, err := s.db.Rooms().InsertOne(ctx, room); err != nil {
		return "", translate("insert room", err)
	}
	return room.RoomID, nil
}

// nameTaken checks the name against rooms that are not finished.
func (s *RoomStore) nameTaken(ctx context.Context, name string) (bool, error) {
	n, err := s.db.Rooms().CountDocuments(ctx, bson.M{
		"name":   name,
		"status": bson.M{"$ne": models.RoomStatusFinished},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, translate("check room name", err)
	}
	return n > 0, nil
}
