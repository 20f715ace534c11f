package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"rating-engine/internal/elo"
	"rating-engine/internal/models"
)

const (
	defaultBaseline        = 1200
	defaultBrowseTolerance = 200
)

// ErrNoCandidateRoom means no waiting ranked room can take the player.
var ErrNoCandidateRoom = errors.New("no candidate room")

// RoomStore lists the rooms a player could join.
type RoomStore interface {
	ListWaitingRanked(ctx context.Context) ([]models.RoomCandidate, error)
}

// RoomCreator opens a new ranked room seeded with one player.
type RoomCreator interface {
	CreateRoom(ctx context.Context, playerID string, rating int) (string, error)
}

// RoomChangeNotifier is called after quick join opens a new room.
type RoomChangeNotifier func(roomID string)

type Options struct {
	// Baseline is the mean rating assumed for an empty room.
	Baseline        int
	BrowseTolerance int
}

// RoomMatch is one browseable room and how far its mean sits from the requester.
type RoomMatch struct {
	RoomID     string  `json:"roomId"`
	Name       string  `json:"name,omitempty"`
	MeanRating float64 `json:"meanRating"`
	Distance   float64 `json:"distance"`
	Players    int     `json:"players"`
	Capacity   int     `json:"capacity"`
}

// Selector picks rooms by rating proximity. It only reads room state; the
// room service owns joins and lifecycle.
type Selector struct {
	rooms     RoomStore
	creator   RoomCreator
	baseline  int
	tolerance int
	notifier  RoomChangeNotifier
	now       func() time.Time
}

func NewSelector(rooms RoomStore, creator RoomCreator, opts Options) *Selector {
	if opts.Baseline <= 0 {
		opts.Baseline = defaultBaseline
	}
	if opts.BrowseTolerance <= 0 {
		opts.BrowseTolerance = defaultBrowseTolerance
	}
	return &Selector{
		rooms:     rooms,
		creator:   creator,
		baseline:  opts.Baseline,
		tolerance: opts.BrowseTolerance,
		now:       time.Now,
	}
}

// SetRoomChangeNotifier registers a callback invoked when a room is created.
func (s *Selector) SetRoomChangeNotifier(fn RoomChangeNotifier) {
	s.notifier = fn
}

// FindRoom returns the joinable room whose mean rating is closest to rating.
func (s *Selector) FindRoom(ctx context.Context, rating int) (string, error) {
	if rating < 0 {
		return "", fmt.Errorf("%w: negative rating %d", elo.ErrInvalidInput, rating)
	}

	rooms, err := s.rooms.ListWaitingRanked(ctx)
	if err != nil {
		return "", fmt.Errorf("list rooms: %w", err)
	}

	roomID, ok := SelectRoom(rooms, rating, s.baseline, s.now())
	if !ok {
		return "", ErrNoCandidateRoom
	}
	return roomID, nil
}

// QuickJoin finds a room for the player or opens a new one seeded with them.
func (s *Selector) QuickJoin(ctx context.Context, playerID string, rating int) (string, bool, error) {
	roomID, err := s.FindRoom(ctx, rating)
	if err == nil {
		return roomID, false, nil
	}
	if !errors.Is(err, ErrNoCandidateRoom) {
		return "", false, err
	}

	roomID, err = s.creator.CreateRoom(ctx, playerID, rating)
	if err != nil {
		return "", false, fmt.Errorf("create room: %w", err)
	}
	log.Printf("[Matchmaking] No room near %d for player %s, created %s", rating, playerID, roomID)

	if s.notifier != nil {
		go s.notifier(roomID)
	}
	return roomID, true, nil
}

// Browse lists joinable rooms within the browse tolerance, closest first.
func (s *Selector) Browse(ctx context.Context, rating int) ([]RoomMatch, error) {
	if rating < 0 {
		return nil, fmt.Errorf("%w: negative rating %d", elo.ErrInvalidInput, rating)
	}

	rooms, err := s.rooms.ListWaitingRanked(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	now := s.now()
	matches := []RoomMatch{}
	for i := range rooms {
		room := &rooms[i]
		if !joinable(room, now) {
			continue
		}
		mean := room.MeanRating(s.baseline)
		distance := math.Abs(mean - float64(rating))
		if distance > float64(s.tolerance) {
			continue
		}
		matches = append(matches, RoomMatch{
			RoomID:     room.RoomID,
			Name:       room.Name,
			MeanRating: mean,
			Distance:   distance,
			Players:    len(room.PlayerRatings),
			Capacity:   room.Capacity,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches, nil
}

// SelectRoom picks the closest joinable room by mean rating. Ties keep the
// earlier room in the list.
func SelectRoom(rooms []models.RoomCandidate, rating, baseline int, now time.Time) (string, bool) {
	best := ""
	bestDistance := math.Inf(1)
	for i := range rooms {
		room := &rooms[i]
		if !joinable(room, now) {
			continue
		}
		distance := math.Abs(room.MeanRating(baseline) - float64(rating))
		if distance < bestDistance {
			best, bestDistance = room.RoomID, distance
		}
	}
	return best, best != ""
}

func joinable(room *models.RoomCandidate, now time.Time) bool {
	return room.IsRanked &&
		room.Status == models.RoomStatusWaiting &&
		!room.IsFull() &&
		!room.CountdownElapsed(now)
}
