package store

import (
	"context"
	"testing"
	"time"

	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// setClock pins the store clock and returns an advance function.
func setClock(s *Store, start time.Time) func(d time.Duration) {
	current := start
	s.Now = func() time.Time { return current }
	return func(d time.Duration) { current = current.Add(d) }
}

func TestLineupRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := s.LineupFingerprint(ctx, "2025-08-15", "301.l.12345.t.1")
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if hash != "" {
		t.Fatalf("expected empty fingerprint before insert, got %q", hash)
	}

	l := model.Lineup{
		Date:    "2025-08-15",
		TeamKey: "301.l.12345.t.1",
		Players: []model.LineupPlayer{
			{PlayerID: "p1", Position: "C", Status: "active"},
			{PlayerID: "p2", Position: "1B", Status: "active"},
		},
	}
	if err := s.UpsertLineup(ctx, l, "abc123"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hash, err = s.LineupFingerprint(ctx, "2025-08-15", "301.l.12345.t.1")
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if hash != "abc123" {
		t.Fatalf("fingerprint = %q, want abc123", hash)
	}

	got, ok, err := s.LineupOn(ctx, "2025-08-15", "301.l.12345.t.1")
	if err != nil || !ok {
		t.Fatalf("lineup on: ok=%v err=%v", ok, err)
	}
	if len(got.Players) != 2 || got.Players[0].PlayerID != "p1" {
		t.Fatalf("unexpected players: %+v", got.Players)
	}

	// Overwrite with a new hash.
	l.Players[0].Position = "UTIL"
	if err := s.UpsertLineup(ctx, l, "def456"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	hash, _ = s.LineupFingerprint(ctx, "2025-08-15", "301.l.12345.t.1")
	if hash != "def456" {
		t.Fatalf("fingerprint after update = %q, want def456", hash)
	}

	_, ok, err = s.LineupOn(ctx, "2025-08-16", "301.l.12345.t.1")
	if err != nil {
		t.Fatalf("missing lineup: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing lineup")
	}
}

func TestTeamLineupsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2025-08-13", "2025-08-15", "2025-08-14"} {
		l := model.Lineup{Date: date, TeamKey: "t1", Players: []model.LineupPlayer{{PlayerID: "p1"}}}
		if err := s.UpsertLineup(ctx, l, "h-"+date); err != nil {
			t.Fatalf("upsert %s: %v", date, err)
		}
	}

	lineups, err := s.TeamLineups(ctx, "t1", 2)
	if err != nil {
		t.Fatalf("team lineups: %v", err)
	}
	if len(lineups) != 2 {
		t.Fatalf("got %d lineups, want 2", len(lineups))
	}
	if lineups[0].Date != "2025-08-15" || lineups[1].Date != "2025-08-14" {
		t.Fatalf("wrong order: %s, %s", lineups[0].Date, lineups[1].Date)
	}
}

func TestStatLineRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	line := model.StatLine{
		PlayerID: "p9",
		Date:     "2025-08-15",
		Name:     "Shohei Ohtani",
		Stats:    map[string]float64{"HR": 2, "AVG": 0.333},
	}
	if err := s.UpsertStatLine(ctx, line, "hash1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := s.StatLineOn(ctx, "p9", "2025-08-15")
	if err != nil || !ok {
		t.Fatalf("stat line on: ok=%v err=%v", ok, err)
	}
	if got.Stats["HR"] != 2 || got.Stats["AVG"] != 0.333 {
		t.Fatalf("unexpected stats: %+v", got.Stats)
	}
	if got.Name != "Shohei Ohtani" {
		t.Fatalf("name = %q", got.Name)
	}

	// An update with an empty name keeps the stored name.
	line.Name = ""
	line.Stats["HR"] = 3
	if err := s.UpsertStatLine(ctx, line, "hash2"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _, _ = s.StatLineOn(ctx, "p9", "2025-08-15")
	if got.Name != "Shohei Ohtani" {
		t.Fatalf("empty name clobbered stored name: %q", got.Name)
	}
	if got.Stats["HR"] != 3 {
		t.Fatalf("stats not updated: %+v", got.Stats)
	}

	hash, err := s.StatLineFingerprint(ctx, "p9", "2025-08-15")
	if err != nil || hash != "hash2" {
		t.Fatalf("fingerprint = %q err=%v, want hash2", hash, err)
	}
}

func TestPlayerStatLinesRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2025-08-10", "2025-08-12", "2025-08-14"} {
		line := model.StatLine{PlayerID: "p1", Date: date, Stats: map[string]float64{"H": 1}}
		if err := s.UpsertStatLine(ctx, line, "h"); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	lines, err := s.PlayerStatLines(ctx, "p1", "2025-08-11", "2025-08-13", 0)
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	if len(lines) != 1 || lines[0].Date != "2025-08-12" {
		t.Fatalf("unexpected range result: %+v", lines)
	}

	all, err := s.PlayerStatLines(ctx, "p1", "", "", 0)
	if err != nil {
		t.Fatalf("open range: %v", err)
	}
	if len(all) != 3 || all[0].Date != "2025-08-14" {
		t.Fatalf("unexpected open range result: %+v", all)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txn := model.Transaction{
		TransactionID: "txn-1",
		Type:          "add",
		PlayerID:      "p5",
		TeamKey:       "t2",
		Date:          "2025-08-15",
		Status:        "completed",
	}
	if err := s.UpsertTransaction(ctx, txn, "th1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hash, err := s.TransactionFingerprint(ctx, "txn-1")
	if err != nil || hash != "th1" {
		t.Fatalf("fingerprint = %q err=%v", hash, err)
	}
	if hash, _ := s.TransactionFingerprint(ctx, "txn-404"); hash != "" {
		t.Fatalf("missing transaction fingerprint = %q, want empty", hash)
	}

	txn2 := model.Transaction{TransactionID: "txn-2", Type: "trade", Date: "2025-08-14", Status: "completed"}
	if err := s.UpsertTransaction(ctx, txn2, "th2"); err != nil {
		t.Fatalf("upsert txn-2: %v", err)
	}

	all, err := s.Transactions(ctx, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].TransactionID != "txn-1" {
		t.Fatalf("unexpected list: %+v", all)
	}

	day, err := s.Transactions(ctx, "2025-08-14", 0)
	if err != nil {
		t.Fatalf("day list: %v", err)
	}
	if len(day) != 1 || day[0].TransactionID != "txn-2" {
		t.Fatalf("unexpected day list: %+v", day)
	}
}

func TestFetchLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	advance := setClock(s, time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC))

	last, err := s.LastFetched(ctx, model.KindLineup, "2025-08-15")
	if err != nil {
		t.Fatalf("last fetched: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil before first fetch, got %v", last)
	}

	if err := s.TouchFetchLog(ctx, model.KindLineup, "2025-08-15"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	last, err = s.LastFetched(ctx, model.KindLineup, "2025-08-15")
	if err != nil || last == nil {
		t.Fatalf("last fetched after touch: %v err=%v", last, err)
	}
	if !last.Equal(time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("last fetched = %v", last)
	}

	advance(2 * time.Hour)
	if err := s.TouchFetchLog(ctx, model.KindLineup, "2025-08-15"); err != nil {
		t.Fatalf("second touch: %v", err)
	}
	last, _ = s.LastFetched(ctx, model.KindLineup, "2025-08-15")
	if !last.Equal(time.Date(2025, 8, 15, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("last fetched after advance = %v", last)
	}
	n, err := s.FetchCount(ctx, model.KindLineup, "2025-08-15")
	if err != nil || n != 2 {
		t.Fatalf("fetch count = %d err=%v, want 2", n, err)
	}

	// Other kinds are tracked separately.
	if last, _ := s.LastFetched(ctx, model.KindStats, "2025-08-15"); last != nil {
		t.Fatalf("stats fetch log leaked from lineups: %v", last)
	}
}

func TestChangeLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	advance := setClock(s, time.Date(2025, 8, 15, 6, 0, 0, 0, time.UTC))

	if err := s.InsertChange(ctx, model.KindLineup, "2025-08-15|t1", "2025-08-15", "modified", `{"added":["p3"]}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	advance(time.Minute)
	if err := s.InsertChange(ctx, model.KindStats, "p9|2025-08-15", "2025-08-15", "new", ""); err != nil {
		t.Fatalf("insert: %v", err)
	}

	all, err := s.Changes(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d changes, want 2", len(all))
	}
	if all[0].Kind != model.KindStats {
		t.Fatalf("newest first violated: %+v", all[0])
	}

	lineupsOnly, err := s.Changes(ctx, string(model.KindLineup), "", 0)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(lineupsOnly) != 1 || lineupsOnly[0].Detail != `{"added":["p3"]}` {
		t.Fatalf("unexpected filtered list: %+v", lineupsOnly)
	}

	pruned, err := s.PruneChanges(ctx, time.Date(2025, 8, 15, 6, 0, 30, 0, time.UTC))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned %d, want 1", pruned)
	}
	remaining, _ := s.Changes(ctx, "", "", 0)
	if len(remaining) != 1 || remaining[0].Kind != model.KindStats {
		t.Fatalf("unexpected survivors: %+v", remaining)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	advance := setClock(s, time.Date(2025, 8, 15, 6, 0, 0, 0, time.UTC))

	if err := s.StartRun(ctx, "run-1", "file"); err != nil {
		t.Fatalf("start: %v", err)
	}
	advance(30 * time.Second)
	err := s.FinishRun(ctx, Run{
		ID:           "run-1",
		DatesPlanned: 7, DatesFetched: 5, DatesSkipped: 2,
		RecordsNew: 10, RecordsModified: 3, RecordsUnchanged: 40,
		Errors: []string{"stats 2025-08-12: timeout"},
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs", len(runs))
	}
	r := runs[0]
	if r.ID != "run-1" || r.Source != "file" {
		t.Fatalf("unexpected run: %+v", r)
	}
	if r.FinishedAt == nil || !r.FinishedAt.After(r.StartedAt) {
		t.Fatalf("finished_at not after started_at: %+v", r)
	}
	if r.RecordsNew != 10 || r.DatesSkipped != 2 {
		t.Fatalf("counters wrong: %+v", r)
	}
	if len(r.Errors) != 1 || r.Errors[0] != "stats 2025-08-12: timeout" {
		t.Fatalf("errors wrong: %+v", r.Errors)
	}

	// An unfinished run lists with nil FinishedAt.
	advance(time.Hour)
	if err := s.StartRun(ctx, "run-2", "file"); err != nil {
		t.Fatalf("start run-2: %v", err)
	}
	runs, _ = s.RecentRuns(ctx, 0)
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[0].FinishedAt != nil {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	pruned, err := s.PruneRuns(ctx, time.Date(2025, 8, 15, 6, 30, 0, 0, time.UTC))
	if err != nil || pruned != 1 {
		t.Fatalf("pruned %d err=%v, want 1", pruned, err)
	}
}

func TestPlayerDirectory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	advance := setClock(s, time.Date(2025, 8, 15, 6, 0, 0, 0, time.UTC))

	ref := model.PlayerRef{PlayerID: "p1", Name: "Jose Ramirez", TeamKey: "t1", Position: "3B"}
	if err := s.UpsertPlayerRef(ctx, ref); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	t0 := time.Date(2025, 8, 15, 6, 0, 0, 0, time.UTC)

	// An identical sighting later must not bump updated_at.
	advance(time.Hour)
	if err := s.UpsertPlayerRef(ctx, ref); err != nil {
		t.Fatalf("identical upsert: %v", err)
	}
	dirty, err := s.DirtyPlayers(ctx, &t0)
	if err != nil {
		t.Fatalf("dirty players: %v", err)
	}
	if len(dirty) != 0 {
		t.Fatalf("identical upsert bumped updated_at: %+v", dirty)
	}

	// A real change does.
	advance(time.Hour)
	ref.TeamKey = "t2"
	if err := s.UpsertPlayerRef(ctx, ref); err != nil {
		t.Fatalf("changed upsert: %v", err)
	}
	dirty, _ = s.DirtyPlayers(ctx, &t0)
	if len(dirty) != 1 || dirty[0].TeamKey != "t2" {
		t.Fatalf("change not visible: %+v", dirty)
	}

	// Empty fields never clobber stored values.
	if err := s.UpsertPlayerRef(ctx, model.PlayerRef{PlayerID: "p1", Name: ""}); err != nil {
		t.Fatalf("empty upsert: %v", err)
	}
	got, ok, err := s.Player(ctx, "p1")
	if err != nil || !ok {
		t.Fatalf("player: ok=%v err=%v", ok, err)
	}
	if got.Name != "Jose Ramirez" || got.TeamKey != "t2" {
		t.Fatalf("empty upsert clobbered: %+v", got)
	}

	// Resolution flow.
	unresolved, err := s.UnresolvedPlayers(ctx)
	if err != nil || len(unresolved) != 1 {
		t.Fatalf("unresolved = %+v err=%v", unresolved, err)
	}
	if err := s.SetPlayerMLBID(ctx, "p1", "660271"); err != nil {
		t.Fatalf("set mlb id: %v", err)
	}
	unresolved, _ = s.UnresolvedPlayers(ctx)
	if len(unresolved) != 0 {
		t.Fatalf("still unresolved: %+v", unresolved)
	}
	got, _, _ = s.Player(ctx, "p1")
	if got.MLBID != "660271" {
		t.Fatalf("mlb id = %q", got.MLBID)
	}

	// A later sighting without an mlb id keeps the resolved one.
	if err := s.UpsertPlayerRef(ctx, model.PlayerRef{PlayerID: "p1", Name: "Jose Ramirez", TeamKey: "t2", Position: "3B"}); err != nil {
		t.Fatalf("post-resolution upsert: %v", err)
	}
	got, _, _ = s.Player(ctx, "p1")
	if got.MLBID != "660271" {
		t.Fatalf("resolution clobbered: %q", got.MLBID)
	}

	if err := s.SetPlayerMLBID(ctx, "p404", "1"); err == nil {
		t.Fatal("expected error for unknown player")
	}
}

func TestWatermarks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wm, err := s.Watermark(ctx, config.LineupsTable)
	if err != nil {
		t.Fatalf("watermark: %v", err)
	}
	if wm != nil {
		t.Fatalf("expected nil watermark, got %v", wm)
	}

	mark := time.Date(2025, 8, 15, 13, 0, 0, 0, time.UTC)
	if err := s.SetWatermark(ctx, config.LineupsTable, mark); err != nil {
		t.Fatalf("set: %v", err)
	}
	wm, err = s.Watermark(ctx, config.LineupsTable)
	if err != nil || wm == nil {
		t.Fatalf("read back: %v err=%v", wm, err)
	}
	if !wm.Equal(mark) {
		t.Fatalf("watermark = %v, want %v", wm, mark)
	}

	// Advancing overwrites.
	mark2 := mark.Add(time.Hour)
	if err := s.SetWatermark(ctx, config.LineupsTable, mark2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	wm, _ = s.Watermark(ctx, config.LineupsTable)
	if !wm.Equal(mark2) {
		t.Fatalf("watermark = %v, want %v", wm, mark2)
	}
}

func TestDirtyLineupsSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	advance := setClock(s, time.Date(2025, 8, 15, 6, 0, 0, 0, time.UTC))

	l1 := model.Lineup{Date: "2025-08-14", TeamKey: "t1", Players: []model.LineupPlayer{{PlayerID: "p1"}}}
	if err := s.UpsertLineup(ctx, l1, "h1"); err != nil {
		t.Fatalf("upsert l1: %v", err)
	}
	cut := time.Date(2025, 8, 15, 6, 30, 0, 0, time.UTC)
	advance(time.Hour)
	l2 := model.Lineup{Date: "2025-08-15", TeamKey: "t1", Players: []model.LineupPlayer{{PlayerID: "p2"}}}
	if err := s.UpsertLineup(ctx, l2, "h2"); err != nil {
		t.Fatalf("upsert l2: %v", err)
	}

	all, err := s.DirtyLineups(ctx, nil)
	if err != nil {
		t.Fatalf("dirty all: %v", err)
	}
	if len(all) != 2 || !all[0].UpdatedAt.Before(all[1].UpdatedAt) {
		t.Fatalf("unexpected full scan: %+v", all)
	}

	dirty, err := s.DirtyLineups(ctx, &cut)
	if err != nil {
		t.Fatalf("dirty since: %v", err)
	}
	if len(dirty) != 1 || dirty[0].Date != "2025-08-15" {
		t.Fatalf("unexpected dirty set: %+v", dirty)
	}
	if dirty[0].PlayersJSON == "" || dirty[0].ContentHash != "h2" {
		t.Fatalf("row content missing: %+v", dirty[0])
	}
}

func TestCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertLineup(ctx, model.Lineup{Date: "2025-08-15", TeamKey: "t1"}, "h"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertPlayerRef(ctx, model.PlayerRef{PlayerID: "p1", Name: "A"}); err != nil {
		t.Fatalf("upsert player: %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[config.LineupsTable] != 1 || counts[config.PlayersTable] != 1 || counts[config.StatLinesTable] != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
