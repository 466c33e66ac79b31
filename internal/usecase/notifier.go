package usecase

import (
	"context"
	"time"

	"github.com/ozfantasy/trade-window/internal/domain/trade"
)

// TradeEvent describes a ledger change worth broadcasting to league mates.
type TradeEvent struct {
	LeagueID    string       `json:"league_id"`
	UserID      string       `json:"user_id"`
	TradeID     string       `json:"trade_id"`
	PlayerOutID string       `json:"player_out_id"`
	PlayerInID  string       `json:"player_in_id"`
	Round       int          `json:"round"`
	Status      trade.Status `json:"status"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// TradeNotifier publishes trade events to an external sink. Implementations
// must be non-blocking from the caller's viewpoint; delivery is best effort
// and never affects the outcome of a trade operation.
type TradeNotifier interface {
	NotifyTrade(ctx context.Context, event TradeEvent)
}
