package change

import (
	"math"
	"sort"

	"github.com/pinetar/dugout-data/internal/model"
)

// PositionChange records a player's before/after position.
type PositionChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// LineupDiff is a human-readable summary of how a lineup changed. It feeds
// the change log, not the change-detection decision — that is
// fingerprint-based.
type LineupDiff struct {
	PlayersAdded    []string                  `json:"players_added"`
	PlayersRemoved  []string                  `json:"players_removed"`
	PositionChanges map[string]PositionChange `json:"position_changes"`
}

// Empty reports whether the diff contains no changes.
func (d LineupDiff) Empty() bool {
	return len(d.PlayersAdded) == 0 && len(d.PlayersRemoved) == 0 && len(d.PositionChanges) == 0
}

// DiffLineups compares two lineups by player-id set and per-player position.
// Added/removed slices are sorted for stable log output.
func DiffLineups(old, new model.Lineup) LineupDiff {
	oldPos := positionsByPlayer(old)
	newPos := positionsByPlayer(new)

	diff := LineupDiff{
		PlayersAdded:    []string{},
		PlayersRemoved:  []string{},
		PositionChanges: map[string]PositionChange{},
	}

	for id, np := range newPos {
		op, existed := oldPos[id]
		if !existed {
			diff.PlayersAdded = append(diff.PlayersAdded, id)
			continue
		}
		if op != np {
			diff.PositionChanges[id] = PositionChange{Old: op, New: np}
		}
	}
	for id := range oldPos {
		if _, still := newPos[id]; !still {
			diff.PlayersRemoved = append(diff.PlayersRemoved, id)
		}
	}

	sort.Strings(diff.PlayersAdded)
	sort.Strings(diff.PlayersRemoved)
	return diff
}

func positionsByPlayer(l model.Lineup) map[string]string {
	m := make(map[string]string, len(l.Players))
	for _, p := range l.Players {
		m[p.PlayerID] = p.Position
	}
	return m
}

// StatDelta reports one stat's before/after values. A side absent from the
// record is nil; Difference is nil unless both sides are present.
type StatDelta struct {
	Old        *float64 `json:"old"`
	New        *float64 `json:"new"`
	Difference *float64 `json:"difference"`
}

// DiffStats reports every stat name whose value differs between two stat
// lines. Values are compared and reported at the same 6-decimal rounding the
// fingerprints use, so the diff never disagrees with change detection.
func DiffStats(old, new model.StatLine) map[string]StatDelta {
	names := make(map[string]struct{}, len(old.Stats)+len(new.Stats))
	for name := range old.Stats {
		names[name] = struct{}{}
	}
	for name := range new.Stats {
		names[name] = struct{}{}
	}

	diff := make(map[string]StatDelta)
	for name := range names {
		ov, oldHas := old.Stats[name]
		nv, newHas := new.Stats[name]
		or, nr := roundStat(ov), roundStat(nv)

		if oldHas && newHas && or == nr {
			continue
		}

		delta := StatDelta{}
		if oldHas {
			delta.Old = f64ptr(or)
		}
		if newHas {
			delta.New = f64ptr(nr)
		}
		if oldHas && newHas {
			delta.Difference = f64ptr(roundStat(nr - or))
		}
		diff[name] = delta
	}
	return diff
}

func roundStat(v float64) float64 {
	return math.Round(v*floatPrecision) / floatPrecision
}

func f64ptr(v float64) *float64 { return &v }
