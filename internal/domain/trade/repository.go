package trade

import (
	"context"
	"errors"

	"github.com/ozfantasy/trade-window/internal/domain/roster"
)

// ErrVersionConflict is returned by SaveUserState when the stored version no
// longer matches the version the caller read. The coordinator retries the
// whole read-evaluate-write sequence on it.
var ErrVersionConflict = errors.New("trade state version conflict")

// StateRepository is the persistence contract for per-user trade state. The
// trade state document and the roster document are written together: a save
// either commits both and advances the version, or commits nothing.
type StateRepository interface {
	GetState(ctx context.Context, leagueID, userID string) (State, bool, error)
	GetRoster(ctx context.Context, leagueID, userID string) (roster.Roster, bool, error)
	SaveUserState(ctx context.Context, state State, ros roster.Roster, expectedVersion int64) error
	ListUsersWithPending(ctx context.Context, leagueID string) ([]string, error)
}
