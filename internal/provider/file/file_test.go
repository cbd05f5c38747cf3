package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDump(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write dump: %v", err)
	}
}

func TestLineups(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "lineups_2025-08-14.json", `[
		{"team_key": "422.l.1234.t.5", "players": [
			{"player_id": "p1", "name": "Bobby Witt Jr.", "position": "SS"},
			{"player_id": "p2", "position": "C", "status": "benched"}
		]}
	]`)

	src := New(dir)
	date := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)

	lineups, err := src.Lineups(context.Background(), date)
	if err != nil {
		t.Fatalf("Lineups: %v", err)
	}
	if len(lineups) != 1 {
		t.Fatalf("got %d lineups", len(lineups))
	}

	l := lineups[0]
	if l.Date != "2025-08-14" {
		t.Errorf("missing date not defaulted: %q", l.Date)
	}
	if l.TeamKey != "422.l.1234.t.5" || len(l.Players) != 2 {
		t.Errorf("unexpected lineup: %+v", l)
	}
	if l.Players[1].Status != "benched" {
		t.Errorf("status lost: %+v", l.Players[1])
	}
}

func TestStatLinesNormalizesValues(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "stats_2025-08-14.json", `[
		{"player_id": "p1", "name": "Salvador Perez", "stats": {
			"hr": 2,
			"avg": ".333",
			"so": {"total": 5, "looking": 2},
			"note": "day off"
		}}
	]`)

	src := New(dir)
	date := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)

	lines, err := src.StatLines(context.Background(), date)
	if err != nil {
		t.Fatalf("StatLines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d stat lines", len(lines))
	}

	stats := lines[0].Stats
	if stats["hr"] != 2 {
		t.Errorf("hr = %v", stats["hr"])
	}
	if stats["avg"] != 0.333 {
		t.Errorf("string value not normalized: avg = %v", stats["avg"])
	}
	if stats["so"] != 5 {
		t.Errorf("nested rollup not extracted: so = %v", stats["so"])
	}
	if _, ok := stats["note"]; ok {
		t.Error("non-numeric value should be dropped")
	}
	if lines[0].Date != "2025-08-14" {
		t.Errorf("date not defaulted: %q", lines[0].Date)
	}
}

func TestTransactions(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "transactions_2025-08-14.json", `[
		{"transaction_id": "tr.77", "type": "add", "player_id": "p1", "team_key": "t.5"}
	]`)

	src := New(dir)
	date := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)

	txns, err := src.Transactions(context.Background(), date)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].TransactionID != "tr.77" {
		t.Fatalf("unexpected transactions: %+v", txns)
	}
	if txns[0].Date != "2025-08-14" {
		t.Errorf("date not defaulted: %q", txns[0].Date)
	}
}

func TestMissingDumpIsEmpty(t *testing.T) {
	src := New(t.TempDir())
	date := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)

	lineups, err := src.Lineups(context.Background(), date)
	if err != nil {
		t.Fatalf("missing dump should not error: %v", err)
	}
	if len(lineups) != 0 {
		t.Fatalf("got %d lineups from missing dump", len(lineups))
	}
}

func TestMalformedDumpErrors(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, "lineups_2025-08-14.json", `{not json`)

	src := New(dir)
	date := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)

	if _, err := src.Lineups(context.Background(), date); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCancelledContext(t *testing.T) {
	src := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Lineups(ctx, time.Now()); err == nil {
		t.Fatal("expected context error")
	}
}
