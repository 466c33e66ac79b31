package player

import (
	"fmt"

	"github.com/ozfantasy/trade-window/internal/domain/roster"
)

// Player is a selectable athlete in a league's player pool.
type Player struct {
	ID       string
	LeagueID string
	ClubID   string
	Name     string
	Slot     roster.Slot
	Price    int64
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.LeagueID == "" {
		return fmt.Errorf("player league id is required")
	}
	if p.ClubID == "" {
		return fmt.Errorf("player club id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if _, ok := roster.AllSlots[p.Slot]; !ok {
		return fmt.Errorf("invalid player slot: %s", p.Slot)
	}
	if p.Price <= 0 {
		return fmt.Errorf("player price must be greater than zero")
	}

	return nil
}
