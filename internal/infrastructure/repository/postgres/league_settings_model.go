package postgres

import (
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/ozfantasy/trade-window/internal/domain/league"
	"github.com/ozfantasy/trade-window/internal/domain/roster"
	"github.com/ozfantasy/trade-window/internal/domain/schedule"
)

type leagueSettingsTableModel struct {
	LeagueID           string    `db:"league_id"`
	Name               string    `db:"name"`
	Season             string    `db:"season"`
	TradesPerSeason    int       `db:"trades_per_season"`
	PreSeasonUnlimited bool      `db:"pre_season_unlimited"`
	PreSeasonEnd       time.Time `db:"pre_season_end"`
	SeasonStart        time.Time `db:"season_start"`
	SeasonEnd          time.Time `db:"season_end"`
	SlotRequirements   []byte    `db:"slot_requirements"`
	Schedule           []byte    `db:"schedule"`
}

type roundWindowDoc struct {
	Round        int       `json:"round"`
	LockoutStart time.Time `json:"lockout_start"`
	LockoutEnd   time.Time `json:"lockout_end"`
}

func (m leagueSettingsTableModel) toDomain() (league.Settings, error) {
	var requirements map[string]int
	if err := sonic.Unmarshal(m.SlotRequirements, &requirements); err != nil {
		return league.Settings{}, fmt.Errorf("decode slot requirements: %w", err)
	}

	var windows []roundWindowDoc
	if err := sonic.Unmarshal(m.Schedule, &windows); err != nil {
		return league.Settings{}, fmt.Errorf("decode schedule: %w", err)
	}

	settings := league.Settings{
		LeagueID:           m.LeagueID,
		Name:               m.Name,
		Season:             m.Season,
		TradesPerSeason:    m.TradesPerSeason,
		PreSeasonUnlimited: m.PreSeasonUnlimited,
		PreSeasonEnd:       m.PreSeasonEnd,
		SeasonStart:        m.SeasonStart,
		SeasonEnd:          m.SeasonEnd,
		SlotRequirements:   make(roster.Requirements, len(requirements)),
	}
	for slot, count := range requirements {
		settings.SlotRequirements[roster.Slot(slot)] = count
	}
	for _, w := range windows {
		settings.Schedule.Windows = append(settings.Schedule.Windows, schedule.RoundWindow{
			Round:        w.Round,
			LockoutStart: w.LockoutStart,
			LockoutEnd:   w.LockoutEnd,
		})
	}

	// A row that decodes but fails validation is a corrupt configuration and
	// must not reach the trade path.
	if err := settings.Validate(); err != nil {
		return league.Settings{}, fmt.Errorf("load league settings: %w", err)
	}

	return settings, nil
}
