package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ozfantasy/trade-window/internal/domain/roster"
	"github.com/ozfantasy/trade-window/internal/domain/trade"
)

type userKey struct {
	leagueID string
	userID   string
}

type userState struct {
	state  trade.State
	roster roster.Roster
}

// TradeStateRepository keeps per-user trade state and roster under one
// version. SaveUserState writes both or neither, and rejects writes whose
// expected version no longer matches.
type TradeStateRepository struct {
	mu    sync.RWMutex
	items map[userKey]userState

	// BeforeSave, when set, runs before the save takes the write lock, so a
	// hook may issue a competing save. Test hook for forcing conflicts.
	BeforeSave func(leagueID, userID string)
}

func NewTradeStateRepository() *TradeStateRepository {
	return &TradeStateRepository{items: make(map[userKey]userState)}
}

func (r *TradeStateRepository) GetState(_ context.Context, leagueID, userID string) (trade.State, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.items[userKey{leagueID: leagueID, userID: userID}]
	if !ok {
		return trade.State{UserID: userID, LeagueID: leagueID}, false, nil
	}
	return cloneState(entry.state), true, nil
}

func (r *TradeStateRepository) GetRoster(_ context.Context, leagueID, userID string) (roster.Roster, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.items[userKey{leagueID: leagueID, userID: userID}]
	if !ok {
		return roster.Roster{}, false, nil
	}
	return cloneRoster(entry.roster), true, nil
}

func (r *TradeStateRepository) SaveUserState(_ context.Context, state trade.State, ros roster.Roster, expectedVersion int64) error {
	if hook := r.BeforeSave; hook != nil {
		hook(state.LeagueID, state.UserID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := userKey{leagueID: state.LeagueID, userID: state.UserID}
	current := int64(0)
	if entry, ok := r.items[key]; ok {
		current = entry.state.Version
	}
	if current != expectedVersion {
		return fmt.Errorf("%w: expected version %d, have %d", trade.ErrVersionConflict, expectedVersion, current)
	}

	r.items[key] = userState{state: cloneState(state), roster: cloneRoster(ros)}
	return nil
}

func (r *TradeStateRepository) ListUsersWithPending(_ context.Context, leagueID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var userIDs []string
	for key, entry := range r.items {
		if key.leagueID != leagueID {
			continue
		}
		if len(trade.PendingRecords(entry.state.History)) > 0 {
			userIDs = append(userIDs, key.userID)
		}
	}
	sort.Strings(userIDs)
	return userIDs, nil
}

// SeedRoster installs a roster at version 0. Overwrites any existing state.
func (r *TradeStateRepository) SeedRoster(ros roster.Roster) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := userKey{leagueID: ros.LeagueID, userID: ros.UserID}
	r.items[key] = userState{
		state:  trade.State{UserID: ros.UserID, LeagueID: ros.LeagueID},
		roster: cloneRoster(ros),
	}
}

func cloneState(s trade.State) trade.State {
	out := s
	out.History = append([]trade.Record(nil), s.History...)
	return out
}

func cloneRoster(r roster.Roster) roster.Roster {
	out := r
	out.Entries = append([]roster.Entry(nil), r.Entries...)
	return out
}
