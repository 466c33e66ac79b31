package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ozfantasy/trade-window/internal/domain/league"
	qb "github.com/ozfantasy/trade-window/internal/platform/querybuilder"
)

type LeagueSettingsRepository struct {
	db *sqlx.DB
}

func NewLeagueSettingsRepository(db *sqlx.DB) *LeagueSettingsRepository {
	return &LeagueSettingsRepository{db: db}
}

func (r *LeagueSettingsRepository) GetSettings(ctx context.Context, leagueID string) (league.Settings, bool, error) {
	query, args, err := qb.Select("*").From("league_settings").
		Where(qb.Eq("league_id", leagueID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return league.Settings{}, false, fmt.Errorf("build get league settings query: %w", err)
	}

	var row leagueSettingsTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.Settings{}, false, nil
		}
		return league.Settings{}, false, fmt.Errorf("get league settings: %w", err)
	}

	settings, err := row.toDomain()
	if err != nil {
		return league.Settings{}, false, err
	}

	return settings, true, nil
}
