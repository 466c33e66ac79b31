package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ozfantasy/trade-window/internal/domain/roster"
	"github.com/ozfantasy/trade-window/internal/domain/trade"
	qb "github.com/ozfantasy/trade-window/internal/platform/querybuilder"
)

// TradeStateRepository persists per-user trade history and roster. The two
// live in separate tables but share the user_states version row: every save
// runs in one transaction guarded by a compare-and-swap on that version, so
// readers never observe a ledger without its matching roster.
type TradeStateRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTradeStateRepository(db *sqlx.DB) *TradeStateRepository {
	return &TradeStateRepository{db: db, now: time.Now}
}

func (r *TradeStateRepository) GetState(ctx context.Context, leagueID, userID string) (trade.State, bool, error) {
	state := trade.State{UserID: userID, LeagueID: leagueID}

	row, found, err := r.getUserStateRow(ctx, leagueID, userID)
	if err != nil {
		return trade.State{}, false, err
	}
	if !found {
		return state, false, nil
	}
	state.Version = row.Version

	query, args, err := qb.Select("*").From("trade_records").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("user_id", userID),
		).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return trade.State{}, false, fmt.Errorf("build select trade records query: %w", err)
	}

	var rows []tradeRecordTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return trade.State{}, false, fmt.Errorf("select trade records: %w", err)
	}
	for _, record := range rows {
		state.History = append(state.History, record.toDomain())
	}

	return state, true, nil
}

func (r *TradeStateRepository) GetRoster(ctx context.Context, leagueID, userID string) (roster.Roster, bool, error) {
	row, found, err := r.getUserStateRow(ctx, leagueID, userID)
	if err != nil {
		return roster.Roster{}, false, err
	}
	if !found {
		return roster.Roster{}, false, nil
	}

	ros, err := decodeRoster(row.Roster, leagueID, userID, row.UpdatedAt)
	if err != nil {
		return roster.Roster{}, false, err
	}

	return ros, true, nil
}

func (r *TradeStateRepository) SaveUserState(ctx context.Context, state trade.State, ros roster.Roster, expectedVersion int64) error {
	encodedRoster, err := encodeRoster(ros)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save user state tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.casUserStateRow(ctx, tx, state, encodedRoster, expectedVersion); err != nil {
		return err
	}
	if err := upsertTradeRecords(ctx, tx, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save user state tx: %w", err)
	}
	return nil
}

func (r *TradeStateRepository) ListUsersWithPending(ctx context.Context, leagueID string) ([]string, error) {
	query, args, err := qb.Select("DISTINCT user_id").From("trade_records").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("status", string(trade.StatusPending)),
		).
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list pending users query: %w", err)
	}

	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, args...); err != nil {
		return nil, fmt.Errorf("list users with pending trades: %w", err)
	}
	return userIDs, nil
}

func (r *TradeStateRepository) getUserStateRow(ctx context.Context, leagueID, userID string) (userStateTableModel, bool, error) {
	query, args, err := qb.Select("*").From("user_states").
		Where(
			qb.Eq("league_id", leagueID),
			qb.Eq("user_id", userID),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return userStateTableModel{}, false, fmt.Errorf("build get user state query: %w", err)
	}

	var row userStateTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return userStateTableModel{}, false, nil
		}
		return userStateTableModel{}, false, fmt.Errorf("get user state: %w", err)
	}

	return row, true, nil
}

// casUserStateRow advances the version row only when it still holds
// expectedVersion. A first write (expectedVersion 0) may also create the row.
func (r *TradeStateRepository) casUserStateRow(ctx context.Context, tx *sqlx.Tx, state trade.State, encodedRoster []byte, expectedVersion int64) error {
	query, args, err := qb.Update("user_states").
		Set("version", state.Version).
		Set("roster", encodedRoster).
		Set("updated_at", r.now().UTC()).
		Where(
			qb.Eq("league_id", state.LeagueID),
			qb.Eq("user_id", state.UserID),
			qb.Eq("version", expectedVersion),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update user state query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user state rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	if expectedVersion == 0 {
		inserted, err := insertUserStateRow(ctx, tx, state, encodedRoster, r.now().UTC())
		if err != nil {
			return err
		}
		if inserted {
			return nil
		}
	}

	return fmt.Errorf("%w: user=%s league=%s expected version %d", trade.ErrVersionConflict, state.UserID, state.LeagueID, expectedVersion)
}

func insertUserStateRow(ctx context.Context, tx *sqlx.Tx, state trade.State, encodedRoster []byte, now time.Time) (bool, error) {
	query, args, err := qb.InsertInto("user_states").
		Columns("league_id", "user_id", "version", "roster", "updated_at").
		Values(state.LeagueID, state.UserID, state.Version, encodedRoster, now).
		Suffix("ON CONFLICT (league_id, user_id) DO NOTHING").
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build insert user state query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert user state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert user state rows affected: %w", err)
	}
	return affected > 0, nil
}

func upsertTradeRecords(ctx context.Context, tx *sqlx.Tx, state trade.State) error {
	for _, record := range state.History {
		var resolvedAt sql.NullTime
		if !record.ResolvedAt.IsZero() {
			resolvedAt = sql.NullTime{Time: record.ResolvedAt, Valid: true}
		}

		query, args, err := qb.InsertInto("trade_records").
			Columns("id", "league_id", "user_id", "player_out_id", "player_in_id", "round", "status", "created_at", "resolved_at").
			Values(
				record.ID,
				record.LeagueID,
				record.UserID,
				record.PlayerOutID,
				record.PlayerInID,
				record.Round,
				string(record.Status),
				record.CreatedAt,
				resolvedAt,
			).
			Suffix("ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, resolved_at = EXCLUDED.resolved_at").
			ToSQL()
		if err != nil {
			return fmt.Errorf("build upsert trade record query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert trade record %s: %w", record.ID, err)
		}
	}
	return nil
}
