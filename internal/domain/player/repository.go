package player

import "context"

// Repository describes player pool persistence needs from use cases.
type Repository interface {
	GetByIDs(ctx context.Context, leagueID string, playerIDs []string) ([]Player, error)
}
