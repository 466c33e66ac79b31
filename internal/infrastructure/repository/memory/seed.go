package memory

import (
	"time"

	"github.com/ozfantasy/trade-window/internal/domain/league"
	"github.com/ozfantasy/trade-window/internal/domain/player"
	"github.com/ozfantasy/trade-window/internal/domain/roster"
	"github.com/ozfantasy/trade-window/internal/domain/schedule"
)

const (
	LeagueIDAFL2026 = "afl-2026"

	SeedUserAlice = "user-alice"
	SeedUserBob   = "user-bob"
)

func SeedLeagueSettings() []league.Settings {
	windows := make([]schedule.RoundWindow, 0, 23)
	// Round 1 bounces at 19:20 AEDT on Thursday 12 March 2026; each round's
	// lockout opens at the first bounce and closes Monday 09:00 local.
	start := time.Date(2026, 3, 12, 8, 20, 0, 0, time.UTC)
	for round := 1; round <= 23; round++ {
		open := start.AddDate(0, 0, (round-1)*7)
		windows = append(windows, schedule.RoundWindow{
			Round:        round,
			LockoutStart: open,
			LockoutEnd:   open.Add(93 * time.Hour),
		})
	}

	return []league.Settings{
		{
			LeagueID:           LeagueIDAFL2026,
			Name:               "AFL Dream Team 2026",
			Season:             "2026",
			TradesPerSeason:    30,
			PreSeasonUnlimited: true,
			PreSeasonEnd:       windows[0].LockoutStart,
			SeasonStart:        windows[0].LockoutStart,
			SeasonEnd:          windows[len(windows)-1].LockoutEnd,
			SlotRequirements:   roster.DefaultRequirements(),
			Schedule:           schedule.Schedule{Windows: windows},
		},
	}
}

func SeedPlayers() []player.Player {
	return []player.Player{
		{ID: "afl-def-01", LeagueID: LeagueIDAFL2026, ClubID: "geel", Name: "Tom Stewart", Slot: roster.SlotDefender, Price: 612000},
		{ID: "afl-def-02", LeagueID: LeagueIDAFL2026, ClubID: "coll", Name: "Nick Daicos", Slot: roster.SlotDefender, Price: 745000},
		{ID: "afl-def-03", LeagueID: LeagueIDAFL2026, ClubID: "bris", Name: "Harris Andrews", Slot: roster.SlotDefender, Price: 588000},
		{ID: "afl-def-04", LeagueID: LeagueIDAFL2026, ClubID: "sydn", Name: "Nick Blakey", Slot: roster.SlotDefender, Price: 541000},
		{ID: "afl-def-05", LeagueID: LeagueIDAFL2026, ClubID: "carl", Name: "Jacob Weitering", Slot: roster.SlotDefender, Price: 530000},
		{ID: "afl-def-06", LeagueID: LeagueIDAFL2026, ClubID: "essn", Name: "Mason Redman", Slot: roster.SlotDefender, Price: 512000},
		{ID: "afl-def-07", LeagueID: LeagueIDAFL2026, ClubID: "port", Name: "Dan Houston", Slot: roster.SlotDefender, Price: 598000},
		{ID: "afl-def-08", LeagueID: LeagueIDAFL2026, ClubID: "fre", Name: "Luke Ryan", Slot: roster.SlotDefender, Price: 574000},
		{ID: "afl-mid-01", LeagueID: LeagueIDAFL2026, ClubID: "melb", Name: "Christian Petracca", Slot: roster.SlotMidfield, Price: 802000},
		{ID: "afl-mid-02", LeagueID: LeagueIDAFL2026, ClubID: "wce", Name: "Harley Reid", Slot: roster.SlotMidfield, Price: 690000},
		{ID: "afl-mid-03", LeagueID: LeagueIDAFL2026, ClubID: "bris", Name: "Lachie Neale", Slot: roster.SlotMidfield, Price: 779000},
		{ID: "afl-mid-04", LeagueID: LeagueIDAFL2026, ClubID: "gws", Name: "Tom Green", Slot: roster.SlotMidfield, Price: 731000},
		{ID: "afl-mid-05", LeagueID: LeagueIDAFL2026, ClubID: "stk", Name: "Jack Steele", Slot: roster.SlotMidfield, Price: 655000},
		{ID: "afl-mid-06", LeagueID: LeagueIDAFL2026, ClubID: "haw", Name: "Jai Newcombe", Slot: roster.SlotMidfield, Price: 648000},
		{ID: "afl-mid-07", LeagueID: LeagueIDAFL2026, ClubID: "geel", Name: "Max Holmes", Slot: roster.SlotMidfield, Price: 671000},
		{ID: "afl-ruc-01", LeagueID: LeagueIDAFL2026, ClubID: "melb", Name: "Max Gawn", Slot: roster.SlotRuck, Price: 815000},
		{ID: "afl-ruc-02", LeagueID: LeagueIDAFL2026, ClubID: "gws", Name: "Kieren Briggs", Slot: roster.SlotRuck, Price: 602000},
		{ID: "afl-ruc-03", LeagueID: LeagueIDAFL2026, ClubID: "nth", Name: "Tristan Xerri", Slot: roster.SlotRuck, Price: 644000},
		{ID: "afl-fwd-01", LeagueID: LeagueIDAFL2026, ClubID: "carl", Name: "Charlie Curnow", Slot: roster.SlotForward, Price: 701000},
		{ID: "afl-fwd-02", LeagueID: LeagueIDAFL2026, ClubID: "geel", Name: "Jeremy Cameron", Slot: roster.SlotForward, Price: 724000},
		{ID: "afl-fwd-03", LeagueID: LeagueIDAFL2026, ClubID: "sydn", Name: "Isaac Heeney", Slot: roster.SlotForward, Price: 768000},
		{ID: "afl-fwd-04", LeagueID: LeagueIDAFL2026, ClubID: "rich", Name: "Shai Bolton", Slot: roster.SlotForward, Price: 662000},
		{ID: "afl-fwd-05", LeagueID: LeagueIDAFL2026, ClubID: "wb", Name: "Aaron Naughton", Slot: roster.SlotForward, Price: 618000},
		{ID: "afl-fwd-06", LeagueID: LeagueIDAFL2026, ClubID: "adel", Name: "Taylor Walker", Slot: roster.SlotForward, Price: 571000},
		{ID: "afl-fwd-07", LeagueID: LeagueIDAFL2026, ClubID: "gcfc", Name: "Ben King", Slot: roster.SlotForward, Price: 633000},
		{ID: "afl-fwd-08", LeagueID: LeagueIDAFL2026, ClubID: "essn", Name: "Kyle Langford", Slot: roster.SlotForward, Price: 547000},
	}
}

func SeedRosters() []roster.Roster {
	base := []roster.Entry{
		{PlayerID: "afl-def-01", Slot: roster.SlotDefender},
		{PlayerID: "afl-def-02", Slot: roster.SlotDefender},
		{PlayerID: "afl-def-03", Slot: roster.SlotDefender},
		{PlayerID: "afl-def-04", Slot: roster.SlotDefender},
		{PlayerID: "afl-def-05", Slot: roster.SlotDefender},
		{PlayerID: "afl-def-06", Slot: roster.SlotDefender},
		{PlayerID: "afl-mid-01", Slot: roster.SlotMidfield},
		{PlayerID: "afl-mid-02", Slot: roster.SlotMidfield},
		{PlayerID: "afl-mid-03", Slot: roster.SlotMidfield},
		{PlayerID: "afl-mid-04", Slot: roster.SlotMidfield},
		{PlayerID: "afl-mid-05", Slot: roster.SlotMidfield},
		{PlayerID: "afl-ruc-01", Slot: roster.SlotRuck},
		{PlayerID: "afl-fwd-01", Slot: roster.SlotForward},
		{PlayerID: "afl-fwd-02", Slot: roster.SlotForward},
		{PlayerID: "afl-fwd-03", Slot: roster.SlotForward},
		{PlayerID: "afl-fwd-04", Slot: roster.SlotForward},
		{PlayerID: "afl-fwd-05", Slot: roster.SlotForward},
		{PlayerID: "afl-fwd-06", Slot: roster.SlotForward},
	}

	alice := roster.Roster{
		UserID:   SeedUserAlice,
		LeagueID: LeagueIDAFL2026,
		Entries:  append([]roster.Entry(nil), base...),
	}

	bob := roster.Roster{
		UserID:   SeedUserBob,
		LeagueID: LeagueIDAFL2026,
		Entries:  append([]roster.Entry(nil), base...),
	}
	bob.Entries[5] = roster.Entry{PlayerID: "afl-def-07", Slot: roster.SlotDefender}
	bob.Entries[10] = roster.Entry{PlayerID: "afl-mid-06", Slot: roster.SlotMidfield}
	bob.Entries[11] = roster.Entry{PlayerID: "afl-ruc-02", Slot: roster.SlotRuck}

	return []roster.Roster{alice, bob}
}
