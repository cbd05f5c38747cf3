// Package file implements provider.Source over a directory of JSON dumps.
//
// Dumps are named <kind>_<date>.json, e.g. lineups_2025-08-14.json. This is
// the source used for local operation, backfills from exported API
// responses, and tests — deterministic and offline. A missing dump means
// the date simply has no data.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pinetar/dugout-data/internal/model"
)

// Source reads records from a directory of JSON dump files.
type Source struct {
	dir string
}

// New creates a file source rooted at dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Name implements provider.Source.
func (s *Source) Name() string {
	return "file:" + s.dir
}

// Lineups reads lineups_<date>.json.
func (s *Source) Lineups(ctx context.Context, date time.Time) ([]model.Lineup, error) {
	var lineups []model.Lineup
	ok, err := s.read(ctx, "lineups", date, &lineups)
	if err != nil || !ok {
		return nil, err
	}
	for i := range lineups {
		if lineups[i].Date == "" {
			lineups[i].Date = model.FormatDate(date)
		}
	}
	return lineups, nil
}

// StatLines reads stats_<date>.json. Raw stat values arrive in whatever
// shape the upstream dump used — flat numbers, numeric strings, nested
// rollup objects — and are normalized to float64 here. Values that cannot
// be normalized are dropped rather than failing the whole date.
func (s *Source) StatLines(ctx context.Context, date time.Time) ([]model.StatLine, error) {
	var raw []rawStatLine
	ok, err := s.read(ctx, "stats", date, &raw)
	if err != nil || !ok {
		return nil, err
	}

	lines := make([]model.StatLine, 0, len(raw))
	for _, r := range raw {
		line := model.StatLine{
			PlayerID: r.PlayerID,
			Name:     r.Name,
			Date:     r.Date,
			Stats:    make(map[string]float64, len(r.Stats)),
		}
		if line.Date == "" {
			line.Date = model.FormatDate(date)
		}
		for name, v := range r.Stats {
			if f, ok := model.ExtractStatValue(v); ok {
				line.Stats[name] = f
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Transactions reads transactions_<date>.json.
func (s *Source) Transactions(ctx context.Context, date time.Time) ([]model.Transaction, error) {
	var txns []model.Transaction
	ok, err := s.read(ctx, "transactions", date, &txns)
	if err != nil || !ok {
		return nil, err
	}
	for i := range txns {
		if txns[i].Date == "" {
			txns[i].Date = model.FormatDate(date)
		}
	}
	return txns, nil
}

type rawStatLine struct {
	PlayerID string                 `json:"player_id"`
	Name     string                 `json:"name"`
	Date     string                 `json:"date"`
	Stats    map[string]interface{} `json:"stats"`
}

// read decodes <kind>_<date>.json into out. Returns ok=false without error
// when the file does not exist.
func (s *Source) read(ctx context.Context, kind string, date time.Time, out interface{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", kind, model.FormatDate(date)))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}
