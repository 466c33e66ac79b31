package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidSchedule    = errors.New("invalid lockout schedule")
	ErrNoUpcomingBoundary = errors.New("no upcoming lockout boundary")
)

// RoundWindow is the lockout interval for one round. The interval is half-open:
// trading is frozen for now in [LockoutStart, LockoutEnd) and open again at
// exactly LockoutEnd.
type RoundWindow struct {
	Round        int
	LockoutStart time.Time
	LockoutEnd   time.Time
}

// Schedule is the season's ordered sequence of round lockout windows.
type Schedule struct {
	Windows []RoundWindow
}

// Validate rejects malformed schedules at load time so that query-time calls
// never have to deal with overlapping or unordered windows.
func (s Schedule) Validate() error {
	var prev RoundWindow
	for i, window := range s.Windows {
		if window.Round <= 0 {
			return fmt.Errorf("%w: window %d has round %d", ErrInvalidSchedule, i, window.Round)
		}
		if !window.LockoutStart.Before(window.LockoutEnd) {
			return fmt.Errorf("%w: round %d lockout start is not before end", ErrInvalidSchedule, window.Round)
		}
		if i > 0 {
			if window.Round <= prev.Round {
				return fmt.Errorf("%w: round %d follows round %d", ErrInvalidSchedule, window.Round, prev.Round)
			}
			if window.LockoutStart.Before(prev.LockoutEnd) {
				return fmt.Errorf("%w: round %d window overlaps round %d", ErrInvalidSchedule, window.Round, prev.Round)
			}
		}
		prev = window
	}

	return nil
}

// IsLockoutActive reports whether now falls inside any round's lockout window.
func (s Schedule) IsLockoutActive(now time.Time) bool {
	for _, window := range s.Windows {
		if !now.Before(window.LockoutStart) && now.Before(window.LockoutEnd) {
			return true
		}
	}
	return false
}

// CurrentRound returns the round whose lockout window contains or most
// recently preceded now. The second return is false before the first window
// has opened.
func (s Schedule) CurrentRound(now time.Time) (int, bool) {
	current := 0
	found := false
	for _, window := range s.Windows {
		if now.Before(window.LockoutStart) {
			break
		}
		current = window.Round
		found = true
	}
	return current, found
}

// WindowForRound returns the lockout window scheduled for the given round.
func (s Schedule) WindowForRound(round int) (RoundWindow, bool) {
	for _, window := range s.Windows {
		if window.Round == round {
			return window, true
		}
	}
	return RoundWindow{}, false
}

// NextRound returns the first round whose lockout window starts after now.
func (s Schedule) NextRound(now time.Time) (int, bool) {
	for _, window := range s.Windows {
		if now.Before(window.LockoutStart) {
			return window.Round, true
		}
	}
	return 0, false
}

// TimeUntilNextBoundary returns the duration until the nearest future window
// boundary (a lockout start or release). Once the schedule is exhausted the
// season is in its terminal state and ErrNoUpcomingBoundary is returned.
func (s Schedule) TimeUntilNextBoundary(now time.Time) (time.Duration, error) {
	var next time.Time
	for _, window := range s.Windows {
		for _, boundary := range []time.Time{window.LockoutStart, window.LockoutEnd} {
			if !boundary.After(now) {
				continue
			}
			if next.IsZero() || boundary.Before(next) {
				next = boundary
			}
		}
	}
	if next.IsZero() {
		return 0, ErrNoUpcomingBoundary
	}

	return next.Sub(now), nil
}
