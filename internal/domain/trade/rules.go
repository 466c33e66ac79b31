package trade

import (
	"errors"
	"time"

	"github.com/ozfantasy/trade-window/internal/domain/league"
	"github.com/ozfantasy/trade-window/internal/domain/roster"
)

var (
	ErrLockoutActive   = errors.New("trading is locked out")
	ErrQuotaExceeded   = errors.New("season trade quota exhausted")
	ErrInvalidSlot     = errors.New("players do not share a roster slot")
	ErrDuplicatePlayer = errors.New("incoming player is already rostered")
)

// Decision is the outcome of evaluating a trade proposal.
type Decision string

const (
	DecisionAllowed                 Decision = "allowed"
	DecisionRejectedLockout         Decision = "rejected_lockout"
	DecisionRejectedQuotaExceeded   Decision = "rejected_quota_exceeded"
	DecisionRejectedInvalidSlot     Decision = "rejected_invalid_slot"
	DecisionRejectedDuplicatePlayer Decision = "rejected_duplicate_player"
)

func (d Decision) Allowed() bool {
	return d == DecisionAllowed
}

// Err maps a rejection to its sentinel error; nil for an allowed decision.
func (d Decision) Err() error {
	switch d {
	case DecisionAllowed:
		return nil
	case DecisionRejectedLockout:
		return ErrLockoutActive
	case DecisionRejectedQuotaExceeded:
		return ErrQuotaExceeded
	case DecisionRejectedInvalidSlot:
		return ErrInvalidSlot
	case DecisionRejectedDuplicatePlayer:
		return ErrDuplicatePlayer
	default:
		return errors.New("unknown trade decision: " + string(d))
	}
}

// Evaluate is the pure trade rules predicate. The check order is fixed so
// callers get deterministic error reporting: lockout, then quota, then slot,
// then duplicate. The first failing check wins; failures are never aggregated.
func Evaluate(settings league.Settings, state State, ros roster.Roster, proposal Proposal, now time.Time) Decision {
	if settings.Schedule.IsLockoutActive(now) {
		return DecisionRejectedLockout
	}

	if !settings.InPreSeason(now) {
		if TradesRemaining(settings, state) <= 0 {
			return DecisionRejectedQuotaExceeded
		}
	}

	outSlot, onRoster := ros.SlotOf(proposal.PlayerOutID)
	if !onRoster || outSlot != proposal.PlayerInSlot {
		return DecisionRejectedInvalidSlot
	}

	if ros.Contains(proposal.PlayerInID) {
		return DecisionRejectedDuplicatePlayer
	}

	return DecisionAllowed
}

// TradesRemaining derives the remaining quota from the ledger, floored at
// zero. During pre-season unlimited mode the quota is not meaningful and
// callers are expected to skip it via Settings.InPreSeason.
func TradesRemaining(settings league.Settings, state State) int {
	used := CountAppliedBetween(state.History, settings.SeasonStart, settings.SeasonEnd)
	remaining := settings.TradesPerSeason - used
	if remaining < 0 {
		return 0
	}
	return remaining
}
