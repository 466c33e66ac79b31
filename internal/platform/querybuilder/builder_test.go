package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "status").
		From("trade_records").
		Where(Eq("league_id", "l1"), Eq("user_id", "u1")).
		OrderBy("created_at", "id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, status FROM trade_records WHERE league_id = $1 AND user_id = $2 ORDER BY created_at, id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "l1" || args[1] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderIn(t *testing.T) {
	query, args, err := Select("id").
		From("players").
		Where(Eq("league_id", "l1"), In("id", []any{"p1", "p2"})).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM players WHERE league_id = $1 AND id IN ($2, $3)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderEmptyIn(t *testing.T) {
	query, args, err := Select("id").
		From("players").
		Where(In("id", nil)).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	// An empty IN list must match nothing, not everything.
	wantQuery := "SELECT id FROM players WHERE 1=0"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("trade_records").
		Columns("id", "status").
		Values("tr-1", "pending").
		Values("tr-2", "applied").
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO trade_records (id, status) VALUES ($1, $2), ($3, $4) ON CONFLICT (id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != "tr-1" || args[3] != "applied" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilderRowWidthMismatch(t *testing.T) {
	_, _, err := InsertInto("trade_records").
		Columns("id", "status").
		Values("tr-1").
		ToSQL()
	if err == nil {
		t.Fatal("expected error for mismatched row width")
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("user_states").
		Set("version", int64(4)).
		Set("roster", "{}").
		Where(Eq("league_id", "l1"), Eq("user_id", "u1"), Eq("version", int64(3))).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE user_states SET version = $1, roster = $2 WHERE league_id = $3 AND user_id = $4 AND version = $5"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 5 || args[0] != int64(4) || args[4] != int64(3) {
		t.Fatalf("unexpected args: %+v", args)
	}
}
