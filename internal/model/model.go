// Package model defines the canonical record types the whole pipeline speaks.
// These structs are the contract between sources, the change tracker, the
// local store, and the replica publisher — sources normalize into them,
// everything downstream reads them.
//
// Every field is optional by policy: a partially populated record is still a
// valid record, and the change tracker fingerprints whatever is present.
// Defaults (lineup status "active", transaction status "completed") are
// applied at fingerprint time, not at parse time, so stored records reflect
// exactly what the source said.
package model

import "time"

// Kind identifies one of the three record kinds the pipeline tracks.
type Kind string

const (
	KindLineup      Kind = "lineup"
	KindStats       Kind = "stats"
	KindTransaction Kind = "transaction"
)

// Kinds returns all record kinds in collection order.
func Kinds() []Kind {
	return []Kind{KindLineup, KindStats, KindTransaction}
}

// DateLayout is the wire and storage format for data dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD data date in the given location.
// A nil location means time.Local.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// FormatDate renders t as a YYYY-MM-DD data date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Lineup is one fantasy team's roster for one date.
type Lineup struct {
	Date    string         `json:"date"`
	TeamKey string         `json:"team_key"`
	Players []LineupPlayer `json:"players"`
}

// LineupPlayer is a single roster slot. Name is display-only and never
// participates in change detection.
type LineupPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Position string `json:"position"`
	Status   string `json:"status,omitempty"`
}

// StatLine is one player's statistics for one date. Keys are stat names
// (e.g. "ab", "h", "hr", "era"); values are already numeric. Name is
// display-only and never participates in change detection.
type StatLine struct {
	PlayerID string             `json:"player_id"`
	Name     string             `json:"name,omitempty"`
	Date     string             `json:"date"`
	Stats    map[string]float64 `json:"stats"`
}

// Transaction is a single league transaction (add, drop, trade leg, etc).
type Transaction struct {
	TransactionID string `json:"transaction_id"`
	Type          string `json:"type"`
	PlayerID      string `json:"player_id"`
	TeamKey       string `json:"team_key"`
	Date          string `json:"date"`
	Status        string `json:"status,omitempty"`
}

// PlayerRef is the identity row linking a fantasy player key to an MLB
// person id. MLBID is empty until identity resolution finds a match.
type PlayerRef struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	TeamKey  string `json:"team_key,omitempty"`
	Position string `json:"position,omitempty"`
	MLBID    string `json:"mlb_id,omitempty"`
}
