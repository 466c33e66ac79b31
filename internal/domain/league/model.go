package league

import (
	"fmt"
	"time"

	"github.com/ozfantasy/trade-window/internal/domain/roster"
	"github.com/ozfantasy/trade-window/internal/domain/schedule"
)

// Settings is the league-wide trade configuration. It is created by the league
// admin before the season and is read-only to the trade core; once the season
// starts it must not change.
type Settings struct {
	LeagueID           string
	Name               string
	Season             string
	TradesPerSeason    int
	PreSeasonUnlimited bool
	PreSeasonEnd       time.Time
	SeasonStart        time.Time
	SeasonEnd          time.Time
	SlotRequirements   roster.Requirements
	Schedule           schedule.Schedule
}

// Validate is the load-time gate: schedule problems are configuration errors
// and must surface here, never during trade evaluation.
func (s Settings) Validate() error {
	if s.LeagueID == "" {
		return fmt.Errorf("league id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("league name is required")
	}
	if s.TradesPerSeason < 0 {
		return fmt.Errorf("trades per season must be >= 0")
	}
	if !s.SeasonStart.Before(s.SeasonEnd) {
		return fmt.Errorf("season start must be before season end")
	}
	// Pre-season and season must not overlap: a trade created inside the
	// overlap would skip the quota check yet still count toward the quota.
	if s.PreSeasonEnd.After(s.SeasonStart) {
		return fmt.Errorf("pre-season end must not be after season start")
	}
	if len(s.SlotRequirements) == 0 {
		return fmt.Errorf("slot requirements are required")
	}
	for slot := range s.SlotRequirements {
		if _, ok := roster.AllSlots[slot]; !ok {
			return fmt.Errorf("unknown slot in requirements: %s", slot)
		}
	}
	if err := s.Schedule.Validate(); err != nil {
		return fmt.Errorf("league %s: %w", s.LeagueID, err)
	}

	return nil
}

// InPreSeason reports whether now is in the unlimited-trades phase.
func (s Settings) InPreSeason(now time.Time) bool {
	return s.PreSeasonUnlimited && now.Before(s.PreSeasonEnd)
}
