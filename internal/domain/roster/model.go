package roster

import (
	"errors"
	"fmt"
	"time"
)

// Slot represents the position category a rostered player occupies.
type Slot string

const (
	SlotDefender Slot = "DEF"
	SlotMidfield Slot = "MID"
	SlotRuck     Slot = "RUC"
	SlotForward  Slot = "FWD"
)

var AllSlots = map[Slot]struct{}{
	SlotDefender: {},
	SlotMidfield: {},
	SlotRuck:     {},
	SlotForward:  {},
}

var (
	ErrUnknownSlot       = errors.New("unknown roster slot")
	ErrSlotCountMismatch = errors.New("roster slot count mismatch")
	ErrDuplicatePlayer   = errors.New("duplicate player on roster")
	ErrPlayerNotRostered = errors.New("player is not on the roster")
)

// Requirements maps each slot to the exact number of players it must hold.
type Requirements map[Slot]int

func DefaultRequirements() Requirements {
	return Requirements{
		SlotDefender: 6,
		SlotMidfield: 5,
		SlotRuck:     1,
		SlotForward:  6,
	}
}

func (r Requirements) Total() int {
	total := 0
	for _, count := range r {
		total += count
	}
	return total
}

// Entry is one selected player and the slot they fill.
type Entry struct {
	PlayerID string
	Slot     Slot
}

// Roster is a user's selected team for one league.
type Roster struct {
	UserID    string
	LeagueID  string
	Entries   []Entry
	UpdatedAt time.Time
}

func (r Roster) SlotCounts() map[Slot]int {
	counts := make(map[Slot]int, len(AllSlots))
	for _, entry := range r.Entries {
		counts[entry.Slot]++
	}
	return counts
}

func (r Roster) Contains(playerID string) bool {
	for _, entry := range r.Entries {
		if entry.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (r Roster) SlotOf(playerID string) (Slot, bool) {
	for _, entry := range r.Entries {
		if entry.PlayerID == playerID {
			return entry.Slot, true
		}
	}
	return "", false
}

// Validate checks slot membership, uniqueness and the exact per-slot counts.
func Validate(r Roster, req Requirements) error {
	if r.UserID == "" {
		return fmt.Errorf("roster user id is required")
	}
	if r.LeagueID == "" {
		return fmt.Errorf("roster league id is required")
	}

	seen := make(map[string]struct{}, len(r.Entries))
	counts := make(map[Slot]int, len(AllSlots))
	for _, entry := range r.Entries {
		if entry.PlayerID == "" {
			return fmt.Errorf("roster entry player id is required")
		}
		if _, ok := AllSlots[entry.Slot]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSlot, entry.Slot)
		}
		if _, ok := seen[entry.PlayerID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, entry.PlayerID)
		}
		seen[entry.PlayerID] = struct{}{}
		counts[entry.Slot]++
	}

	for slot, required := range req {
		if counts[slot] != required {
			return fmt.Errorf("%w: slot=%s required=%d current=%d", ErrSlotCountMismatch, slot, required, counts[slot])
		}
	}

	return nil
}

// Swap returns a copy of the roster with playerOut replaced by playerIn in the
// same slot. The caller is responsible for checking that playerIn belongs to
// that slot; Swap only preserves the slot assignment of the outgoing entry.
func (r Roster) Swap(playerOutID, playerInID string) (Roster, error) {
	if r.Contains(playerInID) {
		return Roster{}, fmt.Errorf("%w: %s", ErrDuplicatePlayer, playerInID)
	}

	swapped := r
	swapped.Entries = append([]Entry(nil), r.Entries...)
	for i, entry := range swapped.Entries {
		if entry.PlayerID == playerOutID {
			swapped.Entries[i].PlayerID = playerInID
			return swapped, nil
		}
	}

	return Roster{}, fmt.Errorf("%w: %s", ErrPlayerNotRostered, playerOutID)
}
