package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ozfantasy/trade-window/internal/domain/league"
)

type LeagueRepository struct {
	mu    sync.RWMutex
	items map[string]league.Settings
}

// NewLeagueRepository installs the given settings, rejecting any league whose
// configuration fails validation. Malformed schedules must surface here, not
// when a trade consults them.
func NewLeagueRepository(settings []league.Settings) (*LeagueRepository, error) {
	items := make(map[string]league.Settings, len(settings))
	for _, s := range settings {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("install league settings: %w", err)
		}
		items[s.LeagueID] = s
	}
	return &LeagueRepository{items: items}, nil
}

func (r *LeagueRepository) GetSettings(_ context.Context, leagueID string) (league.Settings, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[leagueID]
	if !ok {
		return league.Settings{}, false, nil
	}
	return s, true, nil
}

// PutSettings replaces a league's settings, subject to the same validation as
// construction. Test helper.
func (r *LeagueRepository) PutSettings(s league.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("install league settings: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.LeagueID] = s
	return nil
}
