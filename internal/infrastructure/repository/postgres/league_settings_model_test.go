package postgres

import (
	"errors"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/ozfantasy/trade-window/internal/domain/schedule"
)

func leagueSettingsRow(t *testing.T, windows []roundWindowDoc) leagueSettingsTableModel {
	t.Helper()

	requirements, err := sonic.Marshal(map[string]int{"DEF": 6, "MID": 5, "RUC": 1, "FWD": 6})
	if err != nil {
		t.Fatalf("marshal requirements: %v", err)
	}
	scheduleDoc, err := sonic.Marshal(windows)
	if err != nil {
		t.Fatalf("marshal schedule: %v", err)
	}

	start := time.Date(2026, 3, 12, 8, 20, 0, 0, time.UTC)
	return leagueSettingsTableModel{
		LeagueID:           "afl-2026",
		Name:               "AFL 2026",
		Season:             "2026",
		TradesPerSeason:    30,
		PreSeasonUnlimited: true,
		PreSeasonEnd:       start,
		SeasonStart:        start,
		SeasonEnd:          start.AddDate(0, 6, 0),
		SlotRequirements:   requirements,
		Schedule:           scheduleDoc,
	}
}

func TestLeagueSettingsModelToDomain(t *testing.T) {
	start := time.Date(2026, 3, 12, 8, 20, 0, 0, time.UTC)
	row := leagueSettingsRow(t, []roundWindowDoc{
		{Round: 1, LockoutStart: start, LockoutEnd: start.Add(93 * time.Hour)},
		{Round: 2, LockoutStart: start.AddDate(0, 0, 7), LockoutEnd: start.AddDate(0, 0, 7).Add(93 * time.Hour)},
	})

	settings, err := row.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settings.Schedule.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(settings.Schedule.Windows))
	}
	if settings.SlotRequirements["DEF"] != 6 {
		t.Fatalf("expected 6 defenders, got %d", settings.SlotRequirements["DEF"])
	}
}

func TestLeagueSettingsModelRejectsOverlappingSchedule(t *testing.T) {
	start := time.Date(2026, 3, 12, 8, 20, 0, 0, time.UTC)
	row := leagueSettingsRow(t, []roundWindowDoc{
		{Round: 1, LockoutStart: start, LockoutEnd: start.Add(93 * time.Hour)},
		{Round: 2, LockoutStart: start.Add(48 * time.Hour), LockoutEnd: start.Add(120 * time.Hour)},
	})

	_, err := row.toDomain()
	if !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestLeagueSettingsModelRejectsMalformedPayload(t *testing.T) {
	row := leagueSettingsRow(t, nil)
	row.Schedule = []byte("{not json")

	if _, err := row.toDomain(); err == nil {
		t.Fatal("expected decode error for malformed schedule payload")
	}
}
