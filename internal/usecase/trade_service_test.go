package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ozfantasy/trade-window/internal/domain/league"
	"github.com/ozfantasy/trade-window/internal/domain/trade"
	"github.com/ozfantasy/trade-window/internal/infrastructure/repository/memory"
	idgen "github.com/ozfantasy/trade-window/internal/platform/id"
	"github.com/ozfantasy/trade-window/internal/platform/logging"
)

type tradeServiceFixture struct {
	svc     *TradeService
	leagues *memory.LeagueRepository
	states  *memory.TradeStateRepository
	players *memory.PlayerRepository
}

func newTradeServiceFixture(t *testing.T) *tradeServiceFixture {
	t.Helper()

	leagues, err := memory.NewLeagueRepository(memory.SeedLeagueSettings())
	if err != nil {
		t.Fatalf("seed league settings: %v", err)
	}
	states := memory.NewTradeStateRepository()
	for _, ros := range memory.SeedRosters() {
		states.SeedRoster(ros)
	}
	players := memory.NewPlayerRepository(memory.SeedPlayers())

	svc := NewTradeService(leagues, states, players, idgen.NewPrefixedGenerator("tr"), logging.NewNop())
	return &tradeServiceFixture{svc: svc, leagues: leagues, states: states, players: players}
}

// Seed schedule: round 1 lockout [2026-03-12T08:20Z, 2026-03-16T05:20Z+93h),
// rounds weekly after that.
var (
	round1Lockout = time.Date(2026, 3, 12, 8, 20, 0, 0, time.UTC)
	round1Release = round1Lockout.Add(93 * time.Hour)
	preSeasonTime = round1Lockout.Add(-72 * time.Hour)
)

func (f *tradeServiceFixture) at(t time.Time) {
	f.svc.now = func() time.Time { return t }
}

func (f *tradeServiceFixture) putSettings(t *testing.T, s league.Settings) {
	t.Helper()
	if err := f.leagues.PutSettings(s); err != nil {
		t.Fatalf("put settings: %v", err)
	}
}

func aliceSwapInput() SubmitTradeInput {
	return SubmitTradeInput{
		UserID:      memory.SeedUserAlice,
		LeagueID:    memory.LeagueIDAFL2026,
		PlayerOutID: "afl-def-01",
		PlayerInID:  "afl-def-07",
	}
}

func TestTradeServiceSubmitAppliesBetweenRounds(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != trade.StatusApplied {
		t.Fatalf("expected applied record, got %s", record.Status)
	}
	if record.Round != 1 {
		t.Fatalf("expected current round 1, got %d", record.Round)
	}
	if record.ResolvedAt.IsZero() {
		t.Fatal("expected resolved timestamp on applied record")
	}

	ros, err := f.svc.GetRoster(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ros.Contains("afl-def-01") || !ros.Contains("afl-def-07") {
		t.Fatalf("expected roster swap, got %+v", ros.Entries)
	}
}

func TestTradeServiceSubmitPreSeasonPendingForRoundOne(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(preSeasonTime)

	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != trade.StatusPending {
		t.Fatalf("expected pending record before first lockout, got %s", record.Status)
	}
	if record.Round != 1 {
		t.Fatalf("expected round 1, got %d", record.Round)
	}

	// Roster untouched until the trade settles.
	ros, err := f.svc.GetRoster(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ros.Contains("afl-def-01") {
		t.Fatal("expected roster unchanged for pending trade")
	}
}

func TestTradeServiceSubmitFutureRoundPending(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	input := aliceSwapInput()
	input.Round = 3

	record, err := f.svc.SubmitTrade(t.Context(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != trade.StatusPending || record.Round != 3 {
		t.Fatalf("expected pending round 3 record, got %+v", record)
	}
}

func TestTradeServiceSubmitLockoutBoundaries(t *testing.T) {
	f := newTradeServiceFixture(t)

	// Exactly at lockout start submission is rejected.
	f.at(round1Lockout)
	_, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if !errors.Is(err, trade.ErrLockoutActive) {
		t.Fatalf("expected ErrLockoutActive at lockout start, got %v", err)
	}

	// Exactly at lockout end the window has released.
	f.at(round1Release)
	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("unexpected error at lockout end: %v", err)
	}
	if record.Status != trade.StatusApplied {
		t.Fatalf("expected applied record, got %s", record.Status)
	}
}

func TestTradeServiceSubmitInputValidation(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	tests := []struct {
		name   string
		mutate func(*SubmitTradeInput)
	}{
		{name: "missing user", mutate: func(in *SubmitTradeInput) { in.UserID = " " }},
		{name: "missing league", mutate: func(in *SubmitTradeInput) { in.LeagueID = "" }},
		{name: "missing player", mutate: func(in *SubmitTradeInput) { in.PlayerInID = "" }},
		{name: "same players", mutate: func(in *SubmitTradeInput) { in.PlayerInID = in.PlayerOutID }},
		{name: "negative round", mutate: func(in *SubmitTradeInput) { in.Round = -1 }},
		{name: "past round", mutate: func(in *SubmitTradeInput) { in.Round = 1; f.at(round1Lockout.AddDate(0, 0, 8)) }},
		{name: "round not scheduled", mutate: func(in *SubmitTradeInput) { in.Round = 99 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := aliceSwapInput()
			tc.mutate(&input)
			if _, err := f.svc.SubmitTrade(t.Context(), input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestTradeServiceSubmitUnknownLeagueAndPlayer(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	input := aliceSwapInput()
	input.LeagueID = "league-missing"
	if _, err := f.svc.SubmitTrade(t.Context(), input); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown league, got %v", err)
	}

	input = aliceSwapInput()
	input.PlayerInID = "afl-def-99"
	if _, err := f.svc.SubmitTrade(t.Context(), input); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown player, got %v", err)
	}
}

func TestTradeServiceSubmitQuotaExhausted(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	settings := memory.SeedLeagueSettings()[0]
	settings.TradesPerSeason = 1
	f.putSettings(t, settings)

	if _, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput()); err != nil {
		t.Fatalf("unexpected error on first trade: %v", err)
	}

	input := aliceSwapInput()
	input.PlayerOutID = "afl-mid-01"
	input.PlayerInID = "afl-mid-06"
	_, err := f.svc.SubmitTrade(t.Context(), input)
	if !errors.Is(err, trade.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestTradeServiceSubmitQuotaUnlimitedInPreSeason(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(preSeasonTime)

	settings := memory.SeedLeagueSettings()[0]
	settings.TradesPerSeason = 0
	f.putSettings(t, settings)

	if _, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput()); err != nil {
		t.Fatalf("expected pre-season trade to bypass quota, got %v", err)
	}
}

func TestTradeServiceSubmitInvalidSlot(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	input := aliceSwapInput()
	input.PlayerInID = "afl-mid-06"

	_, err := f.svc.SubmitTrade(t.Context(), input)
	if !errors.Is(err, trade.ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestTradeServiceSubmitDuplicatePlayer(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	input := aliceSwapInput()
	input.PlayerInID = "afl-def-02"

	_, err := f.svc.SubmitTrade(t.Context(), input)
	if !errors.Is(err, trade.ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
	}
}

func TestTradeServiceSubmitRetriesVersionConflict(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	// The first save attempt collides with a concurrent writer; the retry
	// succeeds.
	conflicts := 0
	f.states.BeforeSave = func(leagueID, userID string) {
		if conflicts > 0 {
			return
		}
		conflicts++
		bumpUserVersion(t, f.states, leagueID, userID)
	}

	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("expected retry to absorb the conflict, got %v", err)
	}
	if conflicts != 1 {
		t.Fatal("conflict hook never fired")
	}
	if record.Status != trade.StatusApplied {
		t.Fatalf("expected applied record, got %s", record.Status)
	}
}

func TestTradeServiceSubmitConflictExhaustsRetries(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))
	f.svc.SetWriteRetries(1)

	f.states.BeforeSave = func(leagueID, userID string) {
		bumpUserVersion(t, f.states, leagueID, userID)
	}

	_, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict after exhausted retries, got %v", err)
	}
}

// bumpUserVersion simulates a writer on another instance winning the race.
func bumpUserVersion(t *testing.T, states *memory.TradeStateRepository, leagueID, userID string) {
	t.Helper()

	hook := states.BeforeSave
	states.BeforeSave = nil
	defer func() { states.BeforeSave = hook }()

	state, _, err := states.GetState(context.Background(), leagueID, userID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	ros, _, err := states.GetRoster(context.Background(), leagueID, userID)
	if err != nil {
		t.Fatalf("get roster: %v", err)
	}

	next := state
	next.Version = state.Version + 1
	if err := states.SaveUserState(context.Background(), next, ros, state.Version); err != nil {
		t.Fatalf("concurrent save: %v", err)
	}
}

func TestTradeServiceCancelPending(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(preSeasonTime)

	events := &captureNotifier{}
	f.svc.SetNotifier(events)

	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.svc.CancelTrade(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026, record.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := f.svc.GetTradeStatus(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.PendingTrades) != 0 {
		t.Fatalf("expected no pending trades after cancel, got %d", len(status.PendingTrades))
	}

	// The ledger keeps the cancelled record.
	state, _, err := f.states.GetState(t.Context(), memory.LeagueIDAFL2026, memory.SeedUserAlice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, got, found := trade.FindRecord(state.History, record.ID)
	if !found || got.Status != trade.StatusCancelled {
		t.Fatalf("expected cancelled ledger record, got %+v found=%t", got, found)
	}

	if events.count() != 2 {
		t.Fatalf("expected submit and cancel events, got %d", events.count())
	}
	last := events.last()
	if last.TradeID != record.ID || last.Status != trade.StatusCancelled {
		t.Fatalf("unexpected final event: %+v", last)
	}
}

func TestTradeServiceCancelAfterLockoutStart(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(preSeasonTime)

	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Once round 1's lockout has started the pending trade is committed.
	f.at(round1Lockout)
	err = f.svc.CancelTrade(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026, record.ID)
	if !errors.Is(err, trade.ErrCannotCancelAfterLockout) {
		t.Fatalf("expected ErrCannotCancelAfterLockout, got %v", err)
	}
}

func TestTradeServiceCancelTerminalAndMissing(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != trade.StatusApplied {
		t.Fatalf("expected applied record, got %s", record.Status)
	}

	err = f.svc.CancelTrade(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026, record.ID)
	if !errors.Is(err, trade.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for applied trade, got %v", err)
	}

	err = f.svc.CancelTrade(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026, "tr-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTradeServiceGetTradeStatus(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(preSeasonTime)

	if _, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := f.svc.GetTradeStatus(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Unlimited {
		t.Fatal("expected unlimited trades in pre-season")
	}
	if status.LockoutActive {
		t.Fatal("expected no lockout in pre-season")
	}
	if status.CurrentRound != 0 {
		t.Fatalf("expected no current round before the season, got %d", status.CurrentRound)
	}
	if status.TradesRemaining != 30 {
		t.Fatalf("expected full quota, got %d", status.TradesRemaining)
	}
	if len(status.PendingTrades) != 1 {
		t.Fatalf("expected one pending trade, got %d", len(status.PendingTrades))
	}
	if status.NextBoundaryIn != 72*time.Hour {
		t.Fatalf("expected 72h to first lockout, got %s", status.NextBoundaryIn)
	}

	// Mid-round the lockout is reported active and the quota reflects applied
	// trades.
	f.at(round1Release.Add(time.Hour))
	input := aliceSwapInput()
	input.PlayerOutID = "afl-mid-01"
	input.PlayerInID = "afl-mid-06"
	if _, err := f.svc.SubmitTrade(t.Context(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.at(round1Lockout.AddDate(0, 0, 7).Add(time.Hour))
	status, err = f.svc.GetTradeStatus(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Unlimited {
		t.Fatal("expected limited trades during the season")
	}
	if !status.LockoutActive {
		t.Fatal("expected active lockout inside round 2 window")
	}
	if status.CurrentRound != 2 {
		t.Fatalf("expected current round 2, got %d", status.CurrentRound)
	}
	if status.TradesRemaining != 29 {
		t.Fatalf("expected 29 remaining after one applied trade, got %d", status.TradesRemaining)
	}

	// After the last window both boundaries are behind us.
	f.at(round1Lockout.AddDate(1, 0, 0))
	status, err = f.svc.GetTradeStatus(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.ScheduleExhausted {
		t.Fatal("expected exhausted schedule after the season")
	}
}

func TestTradeServiceGetLeagueWindow(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Lockout.Add(time.Hour))

	window, err := f.svc.GetLeagueWindow(t.Context(), memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if window.LeagueID != memory.LeagueIDAFL2026 || window.Season != "2026" {
		t.Fatalf("unexpected window identity: %+v", window)
	}
	if !window.LockoutActive || window.CurrentRound != 1 {
		t.Fatalf("expected active round 1 lockout, got %+v", window)
	}
	if window.NextBoundaryIn != 92*time.Hour {
		t.Fatalf("expected 92h to release, got %s", window.NextBoundaryIn)
	}

	if _, err := f.svc.GetLeagueWindow(t.Context(), "league-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTradeServiceApplyDuePending(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(preSeasonTime)

	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Round 1 becomes current; the pending trade settles.
	f.at(round1Lockout.Add(time.Hour))
	changed, err := f.svc.ApplyDuePending(t.Context(), memory.LeagueIDAFL2026, memory.SeedUserAlice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changed) != 1 || changed[0].ID != record.ID || changed[0].Status != trade.StatusApplied {
		t.Fatalf("unexpected changed records: %+v", changed)
	}

	ros, err := f.svc.GetRoster(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ros.Contains("afl-def-01") || !ros.Contains("afl-def-07") {
		t.Fatalf("expected settled swap on roster, got %+v", ros.Entries)
	}

	// Second run is a no-op.
	changed, err = f.svc.ApplyDuePending(t.Context(), memory.LeagueIDAFL2026, memory.SeedUserAlice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("expected no further changes, got %+v", changed)
	}
}

func TestTradeServiceApplyDuePendingAutoCancels(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(preSeasonTime)

	record, err := f.svc.SubmitTrade(t.Context(), aliceSwapInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The incoming player leaves the pool before the round starts.
	f.players.Remove(memory.LeagueIDAFL2026, "afl-def-07")

	f.at(round1Lockout.Add(time.Hour))
	changed, err := f.svc.ApplyDuePending(t.Context(), memory.LeagueIDAFL2026, memory.SeedUserAlice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changed) != 1 || changed[0].ID != record.ID || changed[0].Status != trade.StatusCancelled {
		t.Fatalf("expected auto-cancelled record, got %+v", changed)
	}

	ros, err := f.svc.GetRoster(t.Context(), memory.SeedUserAlice, memory.LeagueIDAFL2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ros.Contains("afl-def-01") {
		t.Fatal("expected roster unchanged after auto-cancel")
	}
}

func TestTradeServiceApplyDuePendingQuotaCancelsLater(t *testing.T) {
	f := newTradeServiceFixture(t)
	f.at(round1Release.Add(time.Hour))

	settings := memory.SeedLeagueSettings()[0]
	settings.TradesPerSeason = 1
	f.putSettings(t, settings)

	// Two pending round 2 trades compete for a quota of one.
	first := aliceSwapInput()
	first.Round = 2
	firstRecord, err := f.svc.SubmitTrade(t.Context(), first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := aliceSwapInput()
	second.PlayerOutID = "afl-mid-01"
	second.PlayerInID = "afl-mid-06"
	second.Round = 2
	secondRecord, err := f.svc.SubmitTrade(t.Context(), second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.at(round1Lockout.AddDate(0, 0, 7).Add(time.Hour))
	changed, err := f.svc.ApplyDuePending(t.Context(), memory.LeagueIDAFL2026, memory.SeedUserAlice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changed) != 2 {
		t.Fatalf("expected both trades settled, got %+v", changed)
	}

	byID := map[string]trade.Status{}
	for _, r := range changed {
		byID[r.ID] = r.Status
	}
	if byID[firstRecord.ID] != trade.StatusApplied {
		t.Fatalf("expected first trade applied, got %s", byID[firstRecord.ID])
	}
	if byID[secondRecord.ID] != trade.StatusCancelled {
		t.Fatalf("expected second trade cancelled on quota, got %s", byID[secondRecord.ID])
	}
}

type captureNotifier struct {
	mu     sync.Mutex
	events []TradeEvent
}

func (n *captureNotifier) NotifyTrade(_ context.Context, event TradeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func (n *captureNotifier) last() TradeEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}
