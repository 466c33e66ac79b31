package roster

import (
	"errors"
	"fmt"
	"testing"
)

func fullRoster() Roster {
	r := Roster{UserID: "user-1", LeagueID: "league-1"}
	add := func(slot Slot, count int) {
		for i := 1; i <= count; i++ {
			r.Entries = append(r.Entries, Entry{
				PlayerID: fmt.Sprintf("%s-%02d", slot, i),
				Slot:     slot,
			})
		}
	}
	add(SlotDefender, 6)
	add(SlotMidfield, 5)
	add(SlotRuck, 1)
	add(SlotForward, 6)
	return r
}

func TestValidate(t *testing.T) {
	req := DefaultRequirements()

	if err := Validate(fullRoster(), req); err != nil {
		t.Fatalf("unexpected error for full roster: %v", err)
	}

	t.Run("missing user", func(t *testing.T) {
		r := fullRoster()
		r.UserID = ""
		if err := Validate(r, req); err == nil {
			t.Fatal("expected error for missing user id")
		}
	})

	t.Run("unknown slot", func(t *testing.T) {
		r := fullRoster()
		r.Entries[0].Slot = "GK"
		if err := Validate(r, req); !errors.Is(err, ErrUnknownSlot) {
			t.Fatalf("expected ErrUnknownSlot, got %v", err)
		}
	})

	t.Run("duplicate player", func(t *testing.T) {
		r := fullRoster()
		r.Entries[1].PlayerID = r.Entries[0].PlayerID
		if err := Validate(r, req); !errors.Is(err, ErrDuplicatePlayer) {
			t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
		}
	})

	t.Run("short slot", func(t *testing.T) {
		r := fullRoster()
		r.Entries = r.Entries[:len(r.Entries)-1]
		if err := Validate(r, req); !errors.Is(err, ErrSlotCountMismatch) {
			t.Fatalf("expected ErrSlotCountMismatch, got %v", err)
		}
	})

	t.Run("over-filled slot", func(t *testing.T) {
		r := fullRoster()
		r.Entries = append(r.Entries, Entry{PlayerID: "RUC-02", Slot: SlotRuck})
		if err := Validate(r, req); !errors.Is(err, ErrSlotCountMismatch) {
			t.Fatalf("expected ErrSlotCountMismatch, got %v", err)
		}
	})
}

func TestRequirementsTotal(t *testing.T) {
	if got := DefaultRequirements().Total(); got != 18 {
		t.Fatalf("expected default requirements total 18, got %d", got)
	}
}

func TestRosterSwap(t *testing.T) {
	r := fullRoster()

	swapped, err := r.Swap("DEF-01", "DEF-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if swapped.Contains("DEF-01") {
		t.Fatal("expected outgoing player removed from swapped roster")
	}
	slot, ok := swapped.SlotOf("DEF-09")
	if !ok || slot != SlotDefender {
		t.Fatalf("expected incoming player in DEF slot, got %q ok=%t", slot, ok)
	}
	// Source roster is untouched.
	if !r.Contains("DEF-01") || r.Contains("DEF-09") {
		t.Fatal("expected original roster unchanged")
	}

	if _, err := r.Swap("DEF-01", "MID-01"); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer for incoming already rostered, got %v", err)
	}
	if _, err := r.Swap("DEF-99", "DEF-09"); !errors.Is(err, ErrPlayerNotRostered) {
		t.Fatalf("expected ErrPlayerNotRostered for unknown outgoing, got %v", err)
	}
}
