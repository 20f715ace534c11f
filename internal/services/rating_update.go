package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rating-engine/internal/elo"
	"rating-engine/internal/models"
	"rating-engine/internal/store"
	"rating-engine/internal/tier"

	"golang.org/x/sync/errgroup"
)

// RecordStore is the persistence the rating updater needs. SaveRecord must
// fail with store.ErrPersistenceConflict when the stored version differs from
// expectedVersion, and GetRecord with store.ErrRecordNotFound for new players.
type RecordStore interface {
	GetRecord(ctx context.Context, playerID string) (*models.PlayerRatingRecord, error)
	SaveRecord(ctx context.Context, rec *models.PlayerRatingRecord, expectedVersion int64) error
	AppendHistory(ctx context.Context, entry *models.RatingHistoryEntry) error
	HasHistory(ctx context.Context, matchID, playerID string) (bool, error)
}

// RatingPublisher mirrors a saved record into a secondary view such as the leaderboard.
type RatingPublisher interface {
	PublishRating(ctx context.Context, rec *models.PlayerRatingRecord) error
}

// RatingNotifier pushes a player's update to live subscribers.
type RatingNotifier interface {
	NotifyRatingUpdate(result models.RatingUpdateResult)
}

// FailedUpdate is everything needed to audit and later replay one player's update.
type FailedUpdate struct {
	Outcome   models.MatchOutcome
	Opponents map[string]int
	History   *models.RatingHistoryEntry
	Err       *UpdateError
}

// FailureSink receives per-player failures from ApplyMatchOutcome.
type FailureSink interface {
	RecordFailure(ctx context.Context, f FailedUpdate)
}

// PersistenceOptions bounds every store call the updater makes.
type PersistenceOptions struct {
	Timeout     time.Duration
	MaxRetries  int
	Concurrency int
}

func DefaultPersistenceOptions() PersistenceOptions {
	return PersistenceOptions{
		Timeout:     5 * time.Second,
		MaxRetries:  3,
		Concurrency: 8,
	}
}

// MatchUpdateReport is the per-match summary. Players whose update landed are in
// Results, players whose update failed are in Failures, and players whose update
// for this match was already recorded are listed in AlreadyApplied.
// PendingHistory holds the history entry of a failed player whose record was
// saved but whose history row was not written.
type MatchUpdateReport struct {
	MatchID        string                                `json:"matchId"`
	Results        map[string]models.RatingUpdateResult  `json:"results"`
	Failures       map[string]*UpdateError               `json:"failures,omitempty"`
	AlreadyApplied []string                              `json:"alreadyApplied,omitempty"`
	PendingHistory map[string]*models.RatingHistoryEntry `json:"-"`
}

func newReport(matchID string) *MatchUpdateReport {
	return &MatchUpdateReport{
		MatchID:        matchID,
		Results:        map[string]models.RatingUpdateResult{},
		Failures:       map[string]*UpdateError{},
		PendingHistory: map[string]*models.RatingHistoryEntry{},
	}
}

// RatingUpdateService turns finished ranked matches into persisted rating changes.
type RatingUpdateService struct {
	store     RecordStore
	calc      *elo.Calculator
	tiers     *tier.Table
	deviation tier.DeviationParams
	opts      PersistenceOptions
	publisher RatingPublisher
	notifier  RatingNotifier
	failures  FailureSink
	now       func() time.Time
}

func NewRatingUpdateService(
	records RecordStore,
	calc *elo.Calculator,
	tiers *tier.Table,
	deviation tier.DeviationParams,
	opts PersistenceOptions,
) *RatingUpdateService {
	defaults := DefaultPersistenceOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	return &RatingUpdateService{
		store:     records,
		calc:      calc,
		tiers:     tiers,
		deviation: deviation,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *RatingUpdateService) SetPublisher(p RatingPublisher) {
	s.publisher = p
}

func (s *RatingUpdateService) SetNotifier(n RatingNotifier) {
	s.notifier = n
}

func (s *RatingUpdateService) SetFailureSink(f FailureSink) {
	s.failures = f
}

// participantState is one participant's view of the match before rating.
type participantState struct {
	p        models.Participant
	rec      *models.PlayerRatingRecord
	rating   int // rating used both for this player and as opponent context
	games    int
	streak   int
	applied  bool
	pinned   bool // opponent context only, never persisted
	fetchErr *UpdateError
}

// ApplyMatchOutcome rates a finished match and persists each player's result
// independently. A player's failure never rolls back another player's update.
// The returned error is non-nil only when the outcome as a whole is rejected.
func (s *RatingUpdateService) ApplyMatchOutcome(ctx context.Context, outcome *models.MatchOutcome) (*MatchUpdateReport, error) {
	if outcome == nil {
		return nil, fmt.Errorf("%w: nil match outcome", elo.ErrInvalidInput)
	}

	report := newReport(outcome.MatchID)
	if !outcome.IsRanked {
		log.Printf("[RatingUpdate] Match %s is unranked, skipping", outcome.MatchID)
		return report, nil
	}

	if err := validateOutcome(outcome); err != nil {
		return nil, err
	}

	valid := make([]models.Participant, 0, len(outcome.Participants))
	for _, p := range outcome.Participants {
		if err := validateParticipant(p); err != nil {
			uerr := newUpdateError(outcome.MatchID, p.PlayerID, 0, nil, err)
			report.Failures[p.PlayerID] = uerr
			s.recordFailure(ctx, FailedUpdate{Outcome: *outcome, Err: uerr})
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) < 2 {
		return report, fmt.Errorf("%w: match %s has %d valid participants", elo.ErrInvalidInput, outcome.MatchID, len(valid))
	}

	states := make([]*participantState, len(valid))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, p := range valid {
		g.Go(func() error {
			states[i] = s.load(ctx, outcome.MatchID, p)
			return nil
		})
	}
	g.Wait()

	if err := s.rateAndPersist(ctx, outcome, states, report, true); err != nil {
		return nil, err
	}

	log.Printf("[RatingUpdate] Match %s: %d updated, %d failed, %d already applied",
		outcome.MatchID, len(report.Results), len(report.Failures), len(report.AlreadyApplied))
	return report, nil
}

// ReplayPending re-applies one player's failed update against the opponent
// ratings pinned when it first failed. Failures are returned in the report and
// are not sent to the failure sink.
func (s *RatingUpdateService) ReplayPending(ctx context.Context, pending *models.PendingRatingUpdate) (*MatchUpdateReport, error) {
	outcome := &pending.Outcome
	if err := validateOutcome(outcome); err != nil {
		return nil, err
	}

	report := newReport(outcome.MatchID)
	states := make([]*participantState, 0, len(outcome.Participants))
	found := false
	for _, p := range outcome.Participants {
		if p.PlayerID != pending.PlayerID {
			rating, ok := pending.Opponents[p.PlayerID]
			if !ok {
				rating = s.fallbackRating(p)
			}
			states = append(states, &participantState{p: p, rating: rating, pinned: true})
			continue
		}
		if err := validateParticipant(p); err != nil {
			return nil, err
		}
		found = true

		st := s.load(ctx, outcome.MatchID, p)
		if st.fetchErr != nil {
			report.Failures[p.PlayerID] = st.fetchErr
			return report, nil
		}
		if st.applied && pending.History != nil {
			if err := s.appendHistory(ctx, pending.History); err != nil {
				report.Failures[p.PlayerID] = newUpdateError(outcome.MatchID, p.PlayerID, st.rec.Rating, nil, err)
				report.PendingHistory[p.PlayerID] = pending.History
				return report, nil
			}
		}
		states = append(states, st)
	}
	if !found {
		return nil, fmt.Errorf("%w: player %s is not in match %s", elo.ErrInvalidInput, pending.PlayerID, outcome.MatchID)
	}

	if err := s.rateAndPersist(ctx, outcome, states, report, false); err != nil {
		return nil, err
	}
	return report, nil
}

// load fetches a participant's record, substituting the default record for a
// first-time player. A failed fetch leaves the state usable as opponent context.
func (s *RatingUpdateService) load(ctx context.Context, matchID string, p models.Participant) *participantState {
	st := &participantState{p: p}

	rec, err := s.getRecord(ctx, p.PlayerID)
	if errors.Is(err, store.ErrRecordNotFound) {
		rec = models.NewPlayerRatingRecord(p.PlayerID, s.calc.Params().InitialRating, s.deviation.InitialRD, s.now())
		err = nil
	}
	if err != nil {
		st.rating = s.fallbackRating(p)
		st.fetchErr = newUpdateError(matchID, p.PlayerID, st.rating, nil, err)
		return st
	}

	st.rec = rec
	st.rating = rec.Rating
	st.games = rec.GamesPlayed
	st.streak = rec.WinStreak + 1

	if rec.LastMatchID == matchID {
		st.applied = true
	} else if rec.Version > 0 {
		var has bool
		err := s.call(ctx, func(ctx context.Context) error {
			var err error
			has, err = s.store.HasHistory(ctx, matchID, p.PlayerID)
			return err
		})
		if err != nil {
			st.fetchErr = newUpdateError(matchID, p.PlayerID, rec.Rating, nil, err)
			return st
		}
		st.applied = has
	}

	// The record already reflects this match; rate the others against the
	// pre-match snapshot when one was supplied.
	if st.applied && p.RatingAtStart != nil {
		st.rating = *p.RatingAtStart
	}
	return st
}

func (s *RatingUpdateService) fallbackRating(p models.Participant) int {
	if p.RatingAtStart != nil {
		return *p.RatingAtStart
	}
	return s.calc.Params().InitialRating
}

type persisted struct {
	result  models.RatingUpdateResult
	saved   *models.PlayerRatingRecord
	history *models.RatingHistoryEntry
	err     *UpdateError
}

func (s *RatingUpdateService) rateAndPersist(ctx context.Context, outcome *models.MatchOutcome, states []*participantState, report *MatchUpdateReport, sinkFailures bool) error {
	entries := make([]elo.Entry, len(states))
	totalVotes := 0
	for i, st := range states {
		entries[i] = elo.Entry{
			PlayerID:    st.p.PlayerID,
			Rating:      st.rating,
			GamesPlayed: st.games,
			Streak:      st.streak,
			Placement:   st.p.Placement,
			Votes:       st.p.VotesReceived,
		}
		totalVotes += st.p.VotesReceived
	}

	results, err := s.calc.Distribute(entries, totalVotes > 0)
	if err != nil {
		return fmt.Errorf("rate match %s: %w", outcome.MatchID, err)
	}

	opponents := make(map[string]int, len(states))
	for _, st := range states {
		opponents[st.p.PlayerID] = st.rating
	}

	out := make([]persisted, len(states))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, st := range states {
		if st.pinned || st.applied || st.fetchErr != nil {
			continue
		}
		g.Go(func() error {
			out[i] = s.persist(ctx, outcome.MatchID, st, results[i], snapshots(states, i))
			return nil
		})
	}
	g.Wait()

	for i, st := range states {
		id := st.p.PlayerID
		switch {
		case st.pinned:
		case st.fetchErr != nil:
			report.Failures[id] = st.fetchErr
			if sinkFailures {
				s.recordFailure(ctx, FailedUpdate{Outcome: *outcome, Opponents: without(opponents, id), Err: st.fetchErr})
			}
		case st.applied:
			report.AlreadyApplied = append(report.AlreadyApplied, id)
		case out[i].err != nil:
			report.Failures[id] = out[i].err
			if out[i].history != nil {
				report.PendingHistory[id] = out[i].history
			}
			if sinkFailures {
				s.recordFailure(ctx, FailedUpdate{Outcome: *outcome, Opponents: without(opponents, id), History: out[i].history, Err: out[i].err})
			}
		default:
			report.Results[id] = out[i].result
			s.publish(ctx, out[i].saved, out[i].result)
		}
	}
	return nil
}

// persist writes one player's result with an optimistic version check. On a
// conflict the record is reloaded and the same rating change is reapplied to
// the fresh rating.
func (s *RatingUpdateService) persist(ctx context.Context, matchID string, st *participantState, res elo.PlayerResult, opponents []models.OpponentSnapshot) persisted {
	rec := st.rec
	now := s.now()
	base := rec.Rating
	var saved *models.PlayerRatingRecord
	var lastErr error

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		next := s.applyResult(rec, matchID, res.Won, res.RatingChange, now)
		expected := rec.Version
		err := s.call(ctx, func(ctx context.Context) error {
			return s.store.SaveRecord(ctx, next, expected)
		})
		if err == nil {
			saved = next
			base = rec.Rating
			break
		}
		lastErr = err
		if !errors.Is(err, store.ErrPersistenceConflict) {
			break
		}

		fresh, ferr := s.getRecord(ctx, rec.PlayerID)
		if ferr != nil {
			lastErr = ferr
			break
		}
		if fresh.LastMatchID == matchID {
			// An earlier attempt that timed out did land.
			saved = fresh
			base = res.OldRating
			break
		}
		log.Printf("[RatingUpdate] Version conflict for player %s in match %s (attempt %d), retrying",
			rec.PlayerID, matchID, attempt+1)
		rec = fresh
	}

	if saved == nil {
		attempted := s.calc.Clamp(rec.Rating + res.RatingChange)
		return persisted{err: newUpdateError(matchID, rec.PlayerID, rec.Rating, &attempted, lastErr)}
	}

	entry := &models.RatingHistoryEntry{
		MatchID:       matchID,
		PlayerID:      saved.PlayerID,
		OldRating:     base,
		NewRating:     saved.Rating,
		Delta:         saved.Rating - base,
		Coefficient:   res.Coefficient,
		ExpectedScore: res.ExpectedScore,
		ActualScore:   res.ActualScore,
		IsPlacement:   res.IsPlacement,
		StreakBonus:   res.StreakBonus,
		MarginBonus:   res.MarginBonus,
		Placement:     st.p.Placement,
		Opponents:     opponents,
		CreatedAt:     now,
	}

	if err := s.appendHistory(ctx, entry); err != nil {
		attempted := saved.Rating
		return persisted{
			history: entry,
			err:     newUpdateError(matchID, saved.PlayerID, base, &attempted, fmt.Errorf("record saved, history not written: %w", err)),
		}
	}

	return persisted{
		saved:   saved,
		history: entry,
		result: models.RatingUpdateResult{
			PlayerID:        saved.PlayerID,
			MatchID:         matchID,
			OldRating:       base,
			NewRating:       saved.Rating,
			RatingChange:    saved.Rating - base,
			ExpectedScore:   res.ExpectedScore,
			ActualScore:     res.ActualScore,
			Coefficient:     res.Coefficient,
			IsPlacement:     res.IsPlacement,
			StreakBonus:     res.StreakBonus,
			MarginBonus:     res.MarginBonus,
			WinStreak:       saved.WinStreak,
			LossStreak:      saved.LossStreak,
			RatingDeviation: saved.RatingDeviation,
			Tier:            s.tiers.Classify(saved.Rating).String(),
		},
	}
}

// applyResult returns a copy of rec with the match applied.
func (s *RatingUpdateService) applyResult(rec *models.PlayerRatingRecord, matchID string, won bool, change int, now time.Time) *models.PlayerRatingRecord {
	next := *rec
	next.Rating = s.calc.Clamp(rec.Rating + change)
	next.GamesPlayed++
	if won {
		next.Wins++
	} else {
		next.Losses++
	}
	next.WinStreak, next.LossStreak = elo.NextStreaks(rec.WinStreak, rec.LossStreak, won)
	if next.Rating > next.PeakRating {
		next.PeakRating = next.Rating
	}

	rd := rec.RatingDeviation
	if rd <= 0 {
		rd = s.deviation.InitialRD
	}
	if rec.LastGameDate != nil {
		rd = s.deviation.DecayRD(rd, now.Sub(*rec.LastGameDate).Hours()/24)
	}
	next.RatingDeviation = s.deviation.ShrinkRD(rd)

	t := now
	next.LastGameDate = &t
	next.LastMatchID = matchID
	return &next
}

func (s *RatingUpdateService) getRecord(ctx context.Context, playerID string) (*models.PlayerRatingRecord, error) {
	var rec *models.PlayerRatingRecord
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.store.GetRecord(ctx, playerID)
		return err
	})
	return rec, err
}

func (s *RatingUpdateService) appendHistory(ctx context.Context, entry *models.RatingHistoryEntry) error {
	return s.call(ctx, func(ctx context.Context) error {
		return s.store.AppendHistory(ctx, entry)
	})
}

// call runs fn under the per-call timeout, retrying timeouts up to MaxRetries.
func (s *RatingUpdateService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		err = fn(callCtx)
		cancel()
		if err == nil || !isTimeout(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (s *RatingUpdateService) publish(ctx context.Context, rec *models.PlayerRatingRecord, result models.RatingUpdateResult) {
	if s.publisher != nil && rec != nil {
		if err := s.publisher.PublishRating(ctx, rec); err != nil {
			log.Printf("[RatingUpdate] Failed to publish rating for player %s: %v", rec.PlayerID, err)
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyRatingUpdate(result)
	}
}

func (s *RatingUpdateService) recordFailure(ctx context.Context, f FailedUpdate) {
	log.Printf("[RatingUpdate] %v", f.Err)
	if s.failures != nil {
		s.failures.RecordFailure(ctx, f)
	}
}

func validateOutcome(outcome *models.MatchOutcome) error {
	if outcome.MatchID == "" {
		return fmt.Errorf("%w: match id is required", elo.ErrInvalidInput)
	}
	if len(outcome.Participants) < 2 {
		return fmt.Errorf("%w: match %s needs at least two participants", elo.ErrInvalidInput, outcome.MatchID)
	}
	seen := make(map[string]bool, len(outcome.Participants))
	for _, p := range outcome.Participants {
		if p.PlayerID == "" {
			return fmt.Errorf("%w: match %s has a participant without a player id", elo.ErrInvalidInput, outcome.MatchID)
		}
		if seen[p.PlayerID] {
			return fmt.Errorf("%w: player %s appears twice in match %s", elo.ErrInvalidInput, p.PlayerID, outcome.MatchID)
		}
		seen[p.PlayerID] = true
	}
	return nil
}

func validateParticipant(p models.Participant) error {
	switch {
	case p.Placement < 1:
		return fmt.Errorf("%w: placement %d for player %s", elo.ErrInvalidInput, p.Placement, p.PlayerID)
	case p.VotesReceived < 0:
		return fmt.Errorf("%w: negative votes for player %s", elo.ErrInvalidInput, p.PlayerID)
	case p.RatingAtStart != nil && *p.RatingAtStart < 0:
		return fmt.Errorf("%w: negative starting rating for player %s", elo.ErrInvalidInput, p.PlayerID)
	}
	return nil
}

func snapshots(states []*participantState, self int) []models.OpponentSnapshot {
	out := make([]models.OpponentSnapshot, 0, len(states)-1)
	for i, st := range states {
		if i == self {
			continue
		}
		out = append(out, models.OpponentSnapshot{
			PlayerID:  st.p.PlayerID,
			Rating:    st.rating,
			Placement: st.p.Placement,
		})
	}
	return out
}

func without(ratings map[string]int, playerID string) map[string]int {
	out := make(map[string]int, len(ratings))
	for id, r := range ratings {
		if id != playerID {
			out[id] = r
		}
	}
	return out
}
