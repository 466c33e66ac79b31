package trade

import (
	"errors"
	"fmt"
	"time"

	"github.com/ozfantasy/trade-window/internal/domain/roster"
)

// Status is the lifecycle state of a trade record. Applied and cancelled are
// terminal; the only transitions are pending→applied and pending→cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApplied   Status = "applied"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidTransition        = errors.New("invalid trade status transition")
	ErrCannotCancelAfterLockout = errors.New("trade cannot be cancelled after its round lockout has started")
)

// Record is one trade in a user's ledger. Immutable once created except for
// the status transitions defined below; cancellation never removes a record.
type Record struct {
	ID          string
	UserID      string
	LeagueID    string
	PlayerOutID string
	PlayerInID  string
	Round       int
	Status      Status
	CreatedAt   time.Time
	ResolvedAt  time.Time
}

func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("trade id is required")
	}
	if r.UserID == "" {
		return fmt.Errorf("trade user id is required")
	}
	if r.LeagueID == "" {
		return fmt.Errorf("trade league id is required")
	}
	if r.PlayerOutID == "" || r.PlayerInID == "" {
		return fmt.Errorf("trade player ids are required")
	}
	if r.PlayerOutID == r.PlayerInID {
		return fmt.Errorf("trade players must differ")
	}
	if r.Round <= 0 {
		return fmt.Errorf("trade round must be > 0")
	}
	switch r.Status {
	case StatusPending, StatusApplied, StatusCancelled:
	default:
		return fmt.Errorf("invalid trade status: %s", r.Status)
	}

	return nil
}

// Applied transitions a pending record to applied.
func (r Record) Applied(at time.Time) (Record, error) {
	if r.Status != StatusPending {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusApplied)
	}
	r.Status = StatusApplied
	r.ResolvedAt = at
	return r, nil
}

// Cancelled transitions a pending record to cancelled.
func (r Record) Cancelled(at time.Time) (Record, error) {
	if r.Status != StatusPending {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusCancelled)
	}
	r.Status = StatusCancelled
	r.ResolvedAt = at
	return r, nil
}

// State is the per-user trade document. History is the append-only ledger and
// the single source of truth for quota consumption; pending trades are a
// derived view over it, never a second copy. Version backs the store's
// optimistic concurrency check.
type State struct {
	UserID   string
	LeagueID string
	History  []Record
	Version  int64
}

// Proposal is a submitted trade request. PlayerInSlot is resolved from the
// player pool by the coordinator before evaluation.
type Proposal struct {
	UserID       string
	LeagueID     string
	PlayerOutID  string
	PlayerInID   string
	PlayerInSlot roster.Slot
	Round        int
}
