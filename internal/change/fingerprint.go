package change

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/pinetar/dugout-data/internal/model"
)

// Default statuses applied at fingerprint time when a source omits them.
const (
	defaultLineupStatus      = "active"
	defaultTransactionStatus = "completed"
)

// Fingerprint returns the SHA-256 hex digest of the canonical serialization
// of data: normalized, keys sorted, compact separators. Two mappings with
// the same meaningful content produce the same digest regardless of key
// order, player order, or float formatting.
func Fingerprint(data map[string]interface{}) string {
	norm := Normalize(data)
	b, err := json.Marshal(norm)
	if err != nil {
		// Unreachable after normalization; fall back to a deterministic
		// textual form rather than failing.
		b = []byte(fmt.Sprint(norm))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FingerprintLineup fingerprints the meaningful fields of a lineup: date,
// team key, and the (player id, position, status) of each roster slot,
// sorted by player id. Display names and any other cosmetic fields never
// reach the hash, so they can never register as a change.
func FingerprintLineup(l model.Lineup) string {
	players := make([]model.LineupPlayer, len(l.Players))
	copy(players, l.Players)
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].PlayerID < players[j].PlayerID
	})

	entries := make([]interface{}, 0, len(players))
	for _, p := range players {
		status := p.Status
		if status == "" {
			status = defaultLineupStatus
		}
		entries = append(entries, map[string]interface{}{
			"player_id": p.PlayerID,
			"position":  p.Position,
			"status":    status,
		})
	}

	return Fingerprint(map[string]interface{}{
		"date":     l.Date,
		"team_key": l.TeamKey,
		"players":  entries,
	})
}

// FingerprintStats fingerprints a stat line: player id, date, and the stat
// map (sorted by name, values rounded to 6 decimal places).
func FingerprintStats(s model.StatLine) string {
	stats := make(map[string]interface{}, len(s.Stats))
	for name, v := range s.Stats {
		stats[name] = v
	}
	return Fingerprint(map[string]interface{}{
		"player_id": s.PlayerID,
		"date":      s.Date,
		"stats":     stats,
	})
}

// FingerprintTransaction fingerprints the six meaningful transaction fields.
// Status defaults to "completed" when the source omits it.
func FingerprintTransaction(t model.Transaction) string {
	status := t.Status
	if status == "" {
		status = defaultTransactionStatus
	}
	return Fingerprint(map[string]interface{}{
		"transaction_id": t.TransactionID,
		"type":           t.Type,
		"player_id":      t.PlayerID,
		"team_key":       t.TeamKey,
		"date":           t.Date,
		"status":         status,
	})
}
