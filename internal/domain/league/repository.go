package league

import "context"

// Repository describes league settings persistence needs from use cases.
type Repository interface {
	GetSettings(ctx context.Context, leagueID string) (Settings, bool, error)
}
