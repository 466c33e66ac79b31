package postgres

import (
	"database/sql"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/ozfantasy/trade-window/internal/domain/roster"
	"github.com/ozfantasy/trade-window/internal/domain/trade"
)

type userStateTableModel struct {
	LeagueID  string    `db:"league_id"`
	UserID    string    `db:"user_id"`
	Version   int64     `db:"version"`
	Roster    []byte    `db:"roster"`
	UpdatedAt time.Time `db:"updated_at"`
}

type tradeRecordTableModel struct {
	ID          string       `db:"id"`
	LeagueID    string       `db:"league_id"`
	UserID      string       `db:"user_id"`
	PlayerOutID string       `db:"player_out_id"`
	PlayerInID  string       `db:"player_in_id"`
	Round       int          `db:"round"`
	Status      string       `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
	ResolvedAt  sql.NullTime `db:"resolved_at"`
}

func (m tradeRecordTableModel) toDomain() trade.Record {
	record := trade.Record{
		ID:          m.ID,
		LeagueID:    m.LeagueID,
		UserID:      m.UserID,
		PlayerOutID: m.PlayerOutID,
		PlayerInID:  m.PlayerInID,
		Round:       m.Round,
		Status:      trade.Status(m.Status),
		CreatedAt:   m.CreatedAt,
	}
	if m.ResolvedAt.Valid {
		record.ResolvedAt = m.ResolvedAt.Time
	}
	return record
}

type rosterEntryDoc struct {
	PlayerID string `json:"player_id"`
	Slot     string `json:"slot"`
}

func encodeRoster(ros roster.Roster) ([]byte, error) {
	docs := make([]rosterEntryDoc, 0, len(ros.Entries))
	for _, entry := range ros.Entries {
		docs = append(docs, rosterEntryDoc{PlayerID: entry.PlayerID, Slot: string(entry.Slot)})
	}

	encoded, err := sonic.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode roster: %w", err)
	}
	return encoded, nil
}

func decodeRoster(raw []byte, leagueID, userID string, updatedAt time.Time) (roster.Roster, error) {
	var docs []rosterEntryDoc
	if err := sonic.Unmarshal(raw, &docs); err != nil {
		return roster.Roster{}, fmt.Errorf("decode roster: %w", err)
	}

	ros := roster.Roster{
		UserID:    userID,
		LeagueID:  leagueID,
		Entries:   make([]roster.Entry, 0, len(docs)),
		UpdatedAt: updatedAt,
	}
	for _, doc := range docs {
		ros.Entries = append(ros.Entries, roster.Entry{PlayerID: doc.PlayerID, Slot: roster.Slot(doc.Slot)})
	}
	return ros, nil
}
