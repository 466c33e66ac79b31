package memory

import (
	"context"
	"sync"

	"github.com/ozfantasy/trade-window/internal/domain/player"
)

type PlayerRepository struct {
	mu    sync.RWMutex
	items map[string]map[string]player.Player
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	items := make(map[string]map[string]player.Player)
	for _, p := range players {
		pool, ok := items[p.LeagueID]
		if !ok {
			pool = make(map[string]player.Player)
			items[p.LeagueID] = pool
		}
		pool[p.ID] = p
	}
	return &PlayerRepository{items: items}
}

func (r *PlayerRepository) GetByIDs(_ context.Context, leagueID string, playerIDs []string) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pool := r.items[leagueID]
	out := make([]player.Player, 0, len(playerIDs))
	for _, id := range playerIDs {
		if p, ok := pool[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Remove drops a player from the league pool. Test helper.
func (r *PlayerRepository) Remove(leagueID, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pool, ok := r.items[leagueID]; ok {
		delete(pool, playerID)
	}
}
