package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ozfantasy/trade-window/internal/domain/league"
	"github.com/ozfantasy/trade-window/internal/domain/player"
	"github.com/ozfantasy/trade-window/internal/domain/roster"
	"github.com/ozfantasy/trade-window/internal/domain/schedule"
	"github.com/ozfantasy/trade-window/internal/domain/trade"
	"github.com/ozfantasy/trade-window/internal/platform/cache"
	idgen "github.com/ozfantasy/trade-window/internal/platform/id"
	"github.com/ozfantasy/trade-window/internal/platform/logging"
	"github.com/ozfantasy/trade-window/internal/platform/resilience"
)

const defaultWriteRetries = 3

// SubmitTradeInput is the incoming payload for a trade request. Round 0 means
// "the round currently in effect" (or the opening round before the season's
// first lockout).
type SubmitTradeInput struct {
	UserID      string
	LeagueID    string
	PlayerOutID string
	PlayerInID  string
	Round       int
}

// TradeStatus is the read-only composite consumed by the UI layer.
type TradeStatus struct {
	TradesRemaining   int
	Unlimited         bool
	LockoutActive     bool
	CurrentRound      int
	NextBoundaryIn    time.Duration
	ScheduleExhausted bool
	PendingTrades     []trade.Record
}

// TradeService is the single mutation entry point for per-user trade state.
// Submit and cancel run under a per-user lock around the read-evaluate-write
// sequence; a bounded optimistic retry absorbs version conflicts from writers
// on other instances.
type TradeService struct {
	leagueRepo league.Repository
	stateRepo  trade.StateRepository
	playerRepo player.Repository
	notifier   TradeNotifier
	settings   *cache.Store
	locks      *resilience.KeyedMutex
	idGen      idgen.Generator
	logger     *logging.Logger
	now        func() time.Time

	writeRetries int
}

func NewTradeService(
	leagueRepo league.Repository,
	stateRepo trade.StateRepository,
	playerRepo player.Repository,
	idGen idgen.Generator,
	logger *logging.Logger,
) *TradeService {
	if logger == nil {
		logger = logging.Default()
	}

	return &TradeService{
		leagueRepo:   leagueRepo,
		stateRepo:    stateRepo,
		playerRepo:   playerRepo,
		locks:        resilience.NewKeyedMutex(),
		idGen:        idGen,
		logger:       logger,
		now:          time.Now,
		writeRetries: defaultWriteRetries,
	}
}

// SetNotifier attaches a best-effort trade event publisher.
func (s *TradeService) SetNotifier(notifier TradeNotifier) {
	s.notifier = notifier
}

// SetSettingsCache enables cached league settings reads.
func (s *TradeService) SetSettingsCache(store *cache.Store) {
	s.settings = store
}

// SetWriteRetries bounds the optimistic retry loop around state writes.
func (s *TradeService) SetWriteRetries(retries int) {
	if retries >= 0 {
		s.writeRetries = retries
	}
}

func (s *TradeService) SubmitTrade(ctx context.Context, input SubmitTradeInput) (trade.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TradeService.SubmitTrade")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.PlayerOutID = strings.TrimSpace(input.PlayerOutID)
	input.PlayerInID = strings.TrimSpace(input.PlayerInID)

	if input.UserID == "" {
		return trade.Record{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if input.LeagueID == "" {
		return trade.Record{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}
	if input.PlayerOutID == "" || input.PlayerInID == "" {
		return trade.Record{}, fmt.Errorf("%w: both player ids are required", ErrInvalidInput)
	}
	if input.PlayerOutID == input.PlayerInID {
		return trade.Record{}, fmt.Errorf("%w: players must differ", ErrInvalidInput)
	}
	if input.Round < 0 {
		return trade.Record{}, fmt.Errorf("%w: round must be >= 0", ErrInvalidInput)
	}

	settings, err := s.leagueSettings(ctx, input.LeagueID)
	if err != nil {
		return trade.Record{}, err
	}

	incoming, err := s.poolPlayer(ctx, input.LeagueID, input.PlayerInID)
	if err != nil {
		return trade.Record{}, err
	}

	lockKey := userLockKey(input.LeagueID, input.UserID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	var record trade.Record
	for attempt := 0; attempt <= s.writeRetries; attempt++ {
		state, ros, err := s.loadUserState(ctx, input.LeagueID, input.UserID)
		if err != nil {
			return trade.Record{}, err
		}

		now := s.now().UTC()
		targetRound, applyNow, err := resolveTargetRound(settings, input.Round, now)
		if err != nil {
			return trade.Record{}, err
		}

		proposal := trade.Proposal{
			UserID:       input.UserID,
			LeagueID:     input.LeagueID,
			PlayerOutID:  input.PlayerOutID,
			PlayerInID:   input.PlayerInID,
			PlayerInSlot: incoming.Slot,
			Round:        targetRound,
		}

		decision := trade.Evaluate(settings, state, ros, proposal, now)
		if !decision.Allowed() {
			return trade.Record{}, fmt.Errorf("%w: player_out=%s player_in=%s", decision.Err(), input.PlayerOutID, input.PlayerInID)
		}

		tradeID, err := s.idGen.NewID()
		if err != nil {
			return trade.Record{}, fmt.Errorf("generate trade id: %w", err)
		}

		record = trade.Record{
			ID:          tradeID,
			UserID:      input.UserID,
			LeagueID:    input.LeagueID,
			PlayerOutID: input.PlayerOutID,
			PlayerInID:  input.PlayerInID,
			Round:       targetRound,
			Status:      trade.StatusPending,
			CreatedAt:   now,
		}
		if applyNow {
			record.Status = trade.StatusApplied
			record.ResolvedAt = now
		}

		history, err := trade.AppendRecord(state.History, record)
		if err != nil {
			// Duplicate ids mean the generator broke an invariant; this is
			// never a user outcome.
			s.logger.ErrorContext(ctx, "trade ledger append rejected", "trade_id", tradeID, "error", err)
			return trade.Record{}, fmt.Errorf("append trade record: %w", err)
		}

		nextRoster := ros
		if applyNow {
			nextRoster, err = ros.Swap(input.PlayerOutID, input.PlayerInID)
			if err != nil {
				return trade.Record{}, fmt.Errorf("apply trade to roster: %w", err)
			}
			nextRoster.UpdatedAt = now
			if err := roster.Validate(nextRoster, settings.SlotRequirements); err != nil {
				s.logger.ErrorContext(ctx, "roster invariant broken after swap", "trade_id", tradeID, "error", err)
				return trade.Record{}, fmt.Errorf("validate roster after trade: %w", err)
			}
		}

		nextState := state
		nextState.History = history
		nextState.Version = state.Version + 1

		if err := s.stateRepo.SaveUserState(ctx, nextState, nextRoster, state.Version); err != nil {
			if errors.Is(err, trade.ErrVersionConflict) {
				s.logger.WarnContext(ctx, "trade state version conflict, retrying",
					"user_id", input.UserID, "league_id", input.LeagueID, "attempt", attempt+1)
				continue
			}
			return trade.Record{}, fmt.Errorf("save trade state: %w", err)
		}

		s.logger.InfoContext(ctx, "trade submitted",
			"user_id", input.UserID,
			"league_id", input.LeagueID,
			"trade_id", record.ID,
			"round", record.Round,
			"status", record.Status,
		)
		s.notify(ctx, record, now)

		return record, nil
	}

	return trade.Record{}, fmt.Errorf("%w: trade submit exhausted %d retries", ErrConflict, s.writeRetries)
}

func (s *TradeService) CancelTrade(ctx context.Context, userID, leagueID, tradeID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TradeService.CancelTrade")
	defer span.End()

	userID = strings.TrimSpace(userID)
	leagueID = strings.TrimSpace(leagueID)
	tradeID = strings.TrimSpace(tradeID)
	if userID == "" || leagueID == "" || tradeID == "" {
		return fmt.Errorf("%w: user_id, league_id and trade_id are required", ErrInvalidInput)
	}

	settings, err := s.leagueSettings(ctx, leagueID)
	if err != nil {
		return err
	}

	lockKey := userLockKey(leagueID, userID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	for attempt := 0; attempt <= s.writeRetries; attempt++ {
		state, ros, err := s.loadUserState(ctx, leagueID, userID)
		if err != nil {
			return err
		}

		index, record, found := trade.FindRecord(state.History, tradeID)
		if !found {
			return fmt.Errorf("%w: trade=%s", ErrNotFound, tradeID)
		}
		if record.Status != trade.StatusPending {
			return fmt.Errorf("%w: trade %s is already %s", trade.ErrInvalidTransition, tradeID, record.Status)
		}

		now := s.now().UTC()
		if window, ok := settings.Schedule.WindowForRound(record.Round); ok {
			if !now.Before(window.LockoutStart) {
				return fmt.Errorf("%w: round %d locked at %s", trade.ErrCannotCancelAfterLockout, record.Round, window.LockoutStart.Format(time.RFC3339))
			}
		}

		cancelled, err := record.Cancelled(now)
		if err != nil {
			return fmt.Errorf("cancel trade: %w", err)
		}

		nextState := state
		nextState.History = append([]trade.Record(nil), state.History...)
		nextState.History[index] = cancelled
		nextState.Version = state.Version + 1

		if err := s.stateRepo.SaveUserState(ctx, nextState, ros, state.Version); err != nil {
			if errors.Is(err, trade.ErrVersionConflict) {
				s.logger.WarnContext(ctx, "trade state version conflict, retrying",
					"user_id", userID, "league_id", leagueID, "attempt", attempt+1)
				continue
			}
			return fmt.Errorf("save trade state: %w", err)
		}

		s.logger.InfoContext(ctx, "trade cancelled", "user_id", userID, "league_id", leagueID, "trade_id", tradeID)
		s.notify(ctx, cancelled, now)

		return nil
	}

	return fmt.Errorf("%w: trade cancel exhausted %d retries", ErrConflict, s.writeRetries)
}

func (s *TradeService) GetTradeStatus(ctx context.Context, userID, leagueID string) (TradeStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TradeService.GetTradeStatus")
	defer span.End()

	userID = strings.TrimSpace(userID)
	leagueID = strings.TrimSpace(leagueID)
	if userID == "" || leagueID == "" {
		return TradeStatus{}, fmt.Errorf("%w: user_id and league_id are required", ErrInvalidInput)
	}

	settings, err := s.leagueSettings(ctx, leagueID)
	if err != nil {
		return TradeStatus{}, err
	}

	state, _, err := s.stateRepo.GetState(ctx, leagueID, userID)
	if err != nil {
		return TradeStatus{}, fmt.Errorf("get trade state: %w", err)
	}
	state.UserID = userID
	state.LeagueID = leagueID

	now := s.now().UTC()
	status := TradeStatus{
		Unlimited:       settings.InPreSeason(now),
		TradesRemaining: trade.TradesRemaining(settings, state),
		LockoutActive:   settings.Schedule.IsLockoutActive(now),
		PendingTrades:   trade.PendingRecords(state.History),
	}
	status.CurrentRound, _ = settings.Schedule.CurrentRound(now)

	boundary, err := settings.Schedule.TimeUntilNextBoundary(now)
	switch {
	case err == nil:
		status.NextBoundaryIn = boundary
	case errors.Is(err, schedule.ErrNoUpcomingBoundary):
		status.ScheduleExhausted = true
	default:
		return TradeStatus{}, fmt.Errorf("next lockout boundary: %w", err)
	}

	return status, nil
}

// LeagueWindow is the public, user-independent view of a league's trade
// window.
type LeagueWindow struct {
	LeagueID          string
	Name              string
	Season            string
	TradesPerSeason   int
	Unlimited         bool
	LockoutActive     bool
	CurrentRound      int
	NextBoundaryIn    time.Duration
	ScheduleExhausted bool
}

func (s *TradeService) GetLeagueWindow(ctx context.Context, leagueID string) (LeagueWindow, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TradeService.GetLeagueWindow")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return LeagueWindow{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	settings, err := s.leagueSettings(ctx, leagueID)
	if err != nil {
		return LeagueWindow{}, err
	}

	now := s.now().UTC()
	window := LeagueWindow{
		LeagueID:        settings.LeagueID,
		Name:            settings.Name,
		Season:          settings.Season,
		TradesPerSeason: settings.TradesPerSeason,
		Unlimited:       settings.InPreSeason(now),
		LockoutActive:   settings.Schedule.IsLockoutActive(now),
	}
	window.CurrentRound, _ = settings.Schedule.CurrentRound(now)

	boundary, err := settings.Schedule.TimeUntilNextBoundary(now)
	switch {
	case err == nil:
		window.NextBoundaryIn = boundary
	case errors.Is(err, schedule.ErrNoUpcomingBoundary):
		window.ScheduleExhausted = true
	default:
		return LeagueWindow{}, fmt.Errorf("next lockout boundary: %w", err)
	}

	return window, nil
}

// GetRoster returns the user's current roster.
func (s *TradeService) GetRoster(ctx context.Context, userID, leagueID string) (roster.Roster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TradeService.GetRoster")
	defer span.End()

	userID = strings.TrimSpace(userID)
	leagueID = strings.TrimSpace(leagueID)
	if userID == "" || leagueID == "" {
		return roster.Roster{}, fmt.Errorf("%w: user_id and league_id are required", ErrInvalidInput)
	}

	ros, exists, err := s.stateRepo.GetRoster(ctx, leagueID, userID)
	if err != nil {
		return roster.Roster{}, fmt.Errorf("get roster: %w", err)
	}
	if !exists {
		return roster.Roster{}, fmt.Errorf("%w: roster for user=%s league=%s", ErrNotFound, userID, leagueID)
	}
	return ros, nil
}

// ApplyDuePending transitions this user's due pending trades. A pending trade
// is due once its target round is current; each due trade is re-validated
// against the live roster and quota, and auto-cancelled instead of applied if
// it no longer passes. Returns the records that changed status.
func (s *TradeService) ApplyDuePending(ctx context.Context, leagueID, userID string) ([]trade.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TradeService.ApplyDuePending")
	defer span.End()

	userID = strings.TrimSpace(userID)
	leagueID = strings.TrimSpace(leagueID)
	if userID == "" || leagueID == "" {
		return nil, fmt.Errorf("%w: user_id and league_id are required", ErrInvalidInput)
	}

	settings, err := s.leagueSettings(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	lockKey := userLockKey(leagueID, userID)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	for attempt := 0; attempt <= s.writeRetries; attempt++ {
		state, ros, err := s.loadUserState(ctx, leagueID, userID)
		if err != nil {
			return nil, err
		}

		now := s.now().UTC()
		currentRound, haveRound := settings.Schedule.CurrentRound(now)
		if !haveRound {
			return nil, nil
		}

		due := dueRecords(state.History, currentRound)
		if len(due) == 0 {
			return nil, nil
		}

		incomingIDs := make([]string, 0, len(due))
		for _, index := range due {
			incomingIDs = append(incomingIDs, state.History[index].PlayerInID)
		}
		players, err := s.playerRepo.GetByIDs(ctx, leagueID, incomingIDs)
		if err != nil {
			return nil, fmt.Errorf("get incoming players: %w", err)
		}
		pool := make(map[string]player.Player, len(players))
		for _, p := range players {
			pool[p.ID] = p
		}

		nextState := state
		nextState.History = append([]trade.Record(nil), state.History...)
		nextRoster := ros

		var changed []trade.Record
		for _, index := range due {
			record := nextState.History[index]

			resolved, updatedRoster, reason := settleDueTrade(settings, nextState, nextRoster, record, pool, now)
			nextState.History[index] = resolved
			nextRoster = updatedRoster
			changed = append(changed, resolved)

			if resolved.Status == trade.StatusCancelled {
				s.logger.WarnContext(ctx, "pending trade auto-cancelled",
					"user_id", userID, "league_id", leagueID, "trade_id", record.ID, "reason", reason)
			}
		}

		nextRoster.UpdatedAt = now
		if err := roster.Validate(nextRoster, settings.SlotRequirements); err != nil {
			s.logger.ErrorContext(ctx, "roster invariant broken during rollover", "user_id", userID, "error", err)
			return nil, fmt.Errorf("validate roster after rollover: %w", err)
		}

		nextState.Version = state.Version + 1
		if err := s.stateRepo.SaveUserState(ctx, nextState, nextRoster, state.Version); err != nil {
			if errors.Is(err, trade.ErrVersionConflict) {
				s.logger.WarnContext(ctx, "trade state version conflict, retrying",
					"user_id", userID, "league_id", leagueID, "attempt", attempt+1)
				continue
			}
			return nil, fmt.Errorf("save trade state: %w", err)
		}

		for _, record := range changed {
			s.notify(ctx, record, now)
		}

		return changed, nil
	}

	return nil, fmt.Errorf("%w: rollover exhausted %d retries", ErrConflict, s.writeRetries)
}

// settleDueTrade re-validates one due pending trade and either applies it to
// the roster or cancels it. Lockout is deliberately not re-checked here: the
// target round becoming current is exactly when its lockout runs.
func settleDueTrade(
	settings league.Settings,
	state trade.State,
	ros roster.Roster,
	record trade.Record,
	pool map[string]player.Player,
	now time.Time,
) (trade.Record, roster.Roster, string) {
	cancel := func(reason string) (trade.Record, roster.Roster, string) {
		cancelled, err := record.Cancelled(now)
		if err != nil {
			return record, ros, reason
		}
		return cancelled, ros, reason
	}

	if !settings.InPreSeason(now) && trade.TradesRemaining(settings, state) <= 0 {
		return cancel("quota exhausted")
	}

	incoming, ok := pool[record.PlayerInID]
	if !ok {
		return cancel("incoming player left the pool")
	}
	outSlot, onRoster := ros.SlotOf(record.PlayerOutID)
	if !onRoster || outSlot != incoming.Slot {
		return cancel("slot mismatch")
	}
	if ros.Contains(record.PlayerInID) {
		return cancel("incoming player already rostered")
	}

	swapped, err := ros.Swap(record.PlayerOutID, record.PlayerInID)
	if err != nil {
		return cancel("roster swap failed")
	}

	applied, err := record.Applied(now)
	if err != nil {
		return record, ros, "invalid transition"
	}

	return applied, swapped, ""
}

func (s *TradeService) leagueSettings(ctx context.Context, leagueID string) (league.Settings, error) {
	load := func(ctx context.Context) (league.Settings, error) {
		settings, exists, err := s.leagueRepo.GetSettings(ctx, leagueID)
		if err != nil {
			return league.Settings{}, fmt.Errorf("get league settings: %w", err)
		}
		if !exists {
			return league.Settings{}, fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
		}
		return settings, nil
	}

	if s.settings == nil {
		return load(ctx)
	}

	value, err := s.settings.GetOrLoad(ctx, "league-settings::"+leagueID, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return league.Settings{}, err
	}

	settings, ok := value.(league.Settings)
	if !ok {
		return league.Settings{}, fmt.Errorf("unexpected cached settings type %T", value)
	}
	return settings, nil
}

func (s *TradeService) loadUserState(ctx context.Context, leagueID, userID string) (trade.State, roster.Roster, error) {
	state, _, err := s.stateRepo.GetState(ctx, leagueID, userID)
	if err != nil {
		return trade.State{}, roster.Roster{}, fmt.Errorf("get trade state: %w", err)
	}
	state.UserID = userID
	state.LeagueID = leagueID

	ros, exists, err := s.stateRepo.GetRoster(ctx, leagueID, userID)
	if err != nil {
		return trade.State{}, roster.Roster{}, fmt.Errorf("get roster: %w", err)
	}
	if !exists {
		return trade.State{}, roster.Roster{}, fmt.Errorf("%w: roster for user=%s league=%s", ErrNotFound, userID, leagueID)
	}

	return state, ros, nil
}

func (s *TradeService) poolPlayer(ctx context.Context, leagueID, playerID string) (player.Player, error) {
	players, err := s.playerRepo.GetByIDs(ctx, leagueID, []string{playerID})
	if err != nil {
		return player.Player{}, fmt.Errorf("get player by id: %w", err)
	}
	if len(players) == 0 {
		return player.Player{}, fmt.Errorf("%w: player=%s league=%s", ErrNotFound, playerID, leagueID)
	}
	return players[0], nil
}

func (s *TradeService) notify(ctx context.Context, record trade.Record, at time.Time) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyTrade(ctx, TradeEvent{
		LeagueID:    record.LeagueID,
		UserID:      record.UserID,
		TradeID:     record.ID,
		PlayerOutID: record.PlayerOutID,
		PlayerInID:  record.PlayerInID,
		Round:       record.Round,
		Status:      record.Status,
		OccurredAt:  at,
	})
}

// resolveTargetRound maps a requested round to the round the trade takes
// effect for. Round 0 selects the round in effect now, or the opening round
// before the first lockout. A trade only applies immediately when its target
// round is current.
func resolveTargetRound(settings league.Settings, requested int, now time.Time) (int, bool, error) {
	current, haveCurrent := settings.Schedule.CurrentRound(now)
	next, haveNext := settings.Schedule.NextRound(now)

	if requested == 0 {
		switch {
		case haveCurrent:
			return current, true, nil
		case haveNext:
			return next, false, nil
		default:
			return 0, false, fmt.Errorf("%w: league schedule has no rounds", ErrInvalidInput)
		}
	}

	if haveCurrent && requested < current {
		return 0, false, fmt.Errorf("%w: round %d has already passed (current round %d)", ErrInvalidInput, requested, current)
	}
	if _, ok := settings.Schedule.WindowForRound(requested); !ok {
		return 0, false, fmt.Errorf("%w: round %d is not in the league schedule", ErrInvalidInput, requested)
	}

	return requested, haveCurrent && requested == current, nil
}

func dueRecords(history []trade.Record, currentRound int) []int {
	var due []int
	for i, record := range history {
		if record.Status == trade.StatusPending && record.Round <= currentRound {
			due = append(due, i)
		}
	}
	return due
}

func userLockKey(leagueID, userID string) string {
	return leagueID + "::" + userID
}
