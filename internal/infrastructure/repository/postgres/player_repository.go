package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ozfantasy/trade-window/internal/domain/player"
	"github.com/ozfantasy/trade-window/internal/domain/roster"
	qb "github.com/ozfantasy/trade-window/internal/platform/querybuilder"
)

type playerTableModel struct {
	ID       string `db:"id"`
	LeagueID string `db:"league_id"`
	ClubID   string `db:"club_id"`
	Name     string `db:"name"`
	Slot     string `db:"slot"`
	Price    int64  `db:"price"`
}

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, leagueID string, playerIDs []string) ([]player.Player, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(playerIDs))
	for _, id := range playerIDs {
		ids = append(ids, id)
	}

	query, args, err := qb.Select("*").From("players").
		Where(
			qb.Eq("league_id", leagueID),
			qb.In("id", ids),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.Player{
			ID:       row.ID,
			LeagueID: row.LeagueID,
			ClubID:   row.ClubID,
			Name:     row.Name,
			Slot:     roster.Slot(row.Slot),
			Price:    row.Price,
		})
	}

	return out, nil
}
