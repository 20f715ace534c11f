package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"rating-engine/internal/models"
	"rating-engine/internal/tier"

	"github.com/redis/go-redis/v9"
)

const keyRatings = "leaderboard:rating"

type Entry struct {
	Rank     int64  `json:"rank"`
	PlayerID string `json:"playerId"`
	Rating   int    `json:"rating"`
	Tier     string `json:"tier"`
}

// RecordSource is the durable store the leaderboard is rebuilt from.
type RecordSource interface {
	TopRecords(ctx context.Context, limit int) ([]models.PlayerRatingRecord, error)
}

// Service keeps a sorted set of current ratings in redis. Without a redis
// client it reads straight from the record source.
type Service struct {
	rdb    *redis.Client
	source RecordSource
	tiers  *tier.Table
}

func NewService(rdb *redis.Client, source RecordSource, tiers *tier.Table) *Service {
	return &Service{rdb: rdb, source: source, tiers: tiers}
}

// PublishRating sets a player's current rating.
func (s *Service) PublishRating(ctx context.Context, rec *models.PlayerRatingRecord) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.ZAdd(ctx, keyRatings, redis.Z{
		Score:  float64(rec.Rating),
		Member: rec.PlayerID,
	}).Err()
}

// Top returns the top count players by rating.
func (s *Service) Top(ctx context.Context, count int64) ([]Entry, error) {
	if count <= 0 {
		return []Entry{}, nil
	}
	if s.rdb == nil {
		return s.topFromSource(ctx, count)
	}

	results, err := s.rdb.ZRevRangeWithScores(ctx, keyRatings, 0, count-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries = append(entries, s.entry(int64(i+1), member, int(z.Score)))
	}
	return entries, nil
}

// PlayerRank returns a player's position, or nil when the player is not ranked.
func (s *Service) PlayerRank(ctx context.Context, playerID string) (*Entry, error) {
	if s.rdb == nil {
		return nil, nil
	}

	rank, err := s.rdb.ZRevRank(ctx, keyRatings, playerID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	score, err := s.rdb.ZScore(ctx, keyRatings, playerID).Result()
	if err != nil {
		return nil, err
	}

	e := s.entry(rank+1, playerID, int(score))
	return &e, nil
}

// Rebuild replaces the sorted set with the top limit records from the source.
func (s *Service) Rebuild(ctx context.Context, limit int) (int, error) {
	if s.rdb == nil {
		return 0, nil
	}

	records, err := s.source.TopRecords(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("load ratings: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keyRatings)
	if len(records) > 0 {
		members := make([]redis.Z, len(records))
		for i, rec := range records {
			members[i] = redis.Z{Score: float64(rec.Rating), Member: rec.PlayerID}
		}
		pipe.ZAdd(ctx, keyRatings, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Service) topFromSource(ctx context.Context, count int64) ([]Entry, error) {
	records, err := s.source.TopRecords(ctx, int(count))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(records))
	for i, rec := range records {
		entries[i] = s.entry(int64(i+1), rec.PlayerID, rec.Rating)
	}
	return entries, nil
}

func (s *Service) entry(rank int64, playerID string, rating int) Entry {
	return Entry{
		Rank:     rank,
		PlayerID: playerID,
		Rating:   rating,
		Tier:     s.tiers.Classify(rating).String(),
	}
}
