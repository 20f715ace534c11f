package services

import (
	"context"
	"sync"
	"time"

	"rating-engine/internal/elo"
	"rating-engine/internal/models"
	"rating-engine/internal/store"
	"rating-engine/internal/tier"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memStore struct {
	mu         sync.Mutex
	records    map[string]*models.PlayerRatingRecord
	history    map[string]*models.RatingHistoryEntry
	getErr     map[string]error
	saveErr    map[string]error
	historyErr map[string]error
	onSave     map[string]func(stored *models.PlayerRatingRecord)
	saves      map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		records:    map[string]*models.PlayerRatingRecord{},
		history:    map[string]*models.RatingHistoryEntry{},
		getErr:     map[string]error{},
		saveErr:    map[string]error{},
		historyErr: map[string]error{},
		onSave:     map[string]func(*models.PlayerRatingRecord){},
		saves:      map[string]int{},
	}
}

func (m *memStore) put(rec models.PlayerRatingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Version == 0 {
		rec.Version = 1
	}
	m.records[rec.PlayerID] = &rec
}

func (m *memStore) get(playerID string) models.PlayerRatingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.records[playerID]
}

func (m *memStore) historyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

func (m *memStore) GetRecord(ctx context.Context, playerID string) (*models.PlayerRatingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[playerID]; err != nil {
		return nil, err
	}
	rec, ok := m.records[playerID]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) SaveRecord(ctx context.Context, rec *models.PlayerRatingRecord, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveErr[rec.PlayerID]; err != nil {
		return err
	}
	if hook, ok := m.onSave[rec.PlayerID]; ok {
		delete(m.onSave, rec.PlayerID)
		hook(m.records[rec.PlayerID])
	}

	var current int64
	if stored, ok := m.records[rec.PlayerID]; ok {
		current = stored.Version
	}
	if current != expectedVersion {
		return store.ErrPersistenceConflict
	}

	rec.Version = expectedVersion + 1
	cp := *rec
	m.records[rec.PlayerID] = &cp
	m.saves[rec.PlayerID]++
	return nil
}

func (m *memStore) AppendHistory(ctx context.Context, entry *models.RatingHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.historyErr[entry.PlayerID]; err != nil {
		return err
	}
	key := entry.MatchID + "|" + entry.PlayerID
	if _, ok := m.history[key]; !ok {
		cp := *entry
		m.history[key] = &cp
	}
	return nil
}

func (m *memStore) HasHistory(ctx context.Context, matchID, playerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.history[matchID+"|"+playerID]
	return ok, nil
}

type recordingSink struct {
	mu       sync.Mutex
	failures []FailedUpdate
}

func (r *recordingSink) RecordFailure(ctx context.Context, f FailedUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

type recordingNotifier struct {
	mu        sync.Mutex
	published []string
	notified  []models.RatingUpdateResult
}

func (r *recordingNotifier) PublishRating(ctx context.Context, rec *models.PlayerRatingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, rec.PlayerID)
	return nil
}

func (r *recordingNotifier) NotifyRatingUpdate(result models.RatingUpdateResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, result)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(records RecordStore) *RatingUpdateService {
	svc := NewRatingUpdateService(
		records,
		elo.NewCalculator(elo.DefaultParams()),
		tier.NewTable(nil),
		tier.DefaultDeviationParams(),
		PersistenceOptions{Timeout: time.Second, MaxRetries: 2, Concurrency: 4},
	)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func duel(matchID, winner, loser string) *models.MatchOutcome {
	return &models.MatchOutcome{
		MatchID:  matchID,
		IsRanked: true,
		Participants: []models.Participant{
			{PlayerID: winner, Placement: 1},
			{PlayerID: loser, Placement: 2},
		},
	}
}

func intPtr(v int) *int {
	return &v
}

type fakeQueue struct {
	due         []models.PendingRatingUpdate
	applied     []primitive.ObjectID
	abandoned   []primitive.ObjectID
	rescheduled map[primitive.ObjectID]time.Time
}

func (q *fakeQueue) Due(ctx context.Context, now time.Time, limit int) ([]models.PendingRatingUpdate, error) {
	var due []models.PendingRatingUpdate
	for _, p := range q.due {
		if p.Status == models.PendingStatusQueued {
			due = append(due, p)
		}
	}
	return due, nil
}

func (q *fakeQueue) MarkApplied(ctx context.Context, id primitive.ObjectID) error {
	q.applied = append(q.applied, id)
	q.setStatus(id, models.PendingStatusApplied)
	return nil
}

func (q *fakeQueue) Reschedule(ctx context.Context, id primitive.ObjectID, next time.Time, errorKind, lastError string, history *models.RatingHistoryEntry) error {
	if q.rescheduled == nil {
		q.rescheduled = map[primitive.ObjectID]time.Time{}
	}
	q.rescheduled[id] = next
	if p := q.find(id); p != nil {
		p.Attempts++
		p.NextAttemptAt = next
		p.ErrorKind = errorKind
		p.LastError = lastError
		if history != nil {
			p.History = history
		}
	}
	return nil
}

func (q *fakeQueue) Abandon(ctx context.Context, id primitive.ObjectID, lastError string) error {
	q.abandoned = append(q.abandoned, id)
	q.setStatus(id, models.PendingStatusAbandoned)
	return nil
}

func (q *fakeQueue) find(id primitive.ObjectID) *models.PendingRatingUpdate {
	for i := range q.due {
		if q.due[i].ID == id {
			return &q.due[i]
		}
	}
	return nil
}

func (q *fakeQueue) setStatus(id primitive.ObjectID, status models.PendingStatus) {
	if p := q.find(id); p != nil {
		p.Status = status
	}
}

type fakeLocker struct {
	held     bool
	released bool
}

func (l *fakeLocker) TryLock(ctx context.Context, lockID string, ttl time.Duration) bool {
	return !l.held
}

func (l *fakeLocker) Unlock(ctx context.Context, lockID string) {
	l.released = true
}
