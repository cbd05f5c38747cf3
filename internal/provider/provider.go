// Package provider defines the upstream source contract the collector pulls
// from. Sources normalize whatever shape the upstream serves into the
// canonical model types — the collector, change tracker, and store never see
// provider-specific payloads.
//
// Adding a new source means implementing Source. The collector and the
// store never change.
package provider

import (
	"context"
	"time"

	"github.com/pinetar/dugout-data/internal/model"
)

// Source fetches one date's worth of records per call. A date with no data
// returns an empty slice, not an error: the fetch itself succeeded and the
// fetch log should still record it.
type Source interface {
	// Name identifies the source in logs and run summaries.
	Name() string

	Lineups(ctx context.Context, date time.Time) ([]model.Lineup, error)
	StatLines(ctx context.Context, date time.Time) ([]model.StatLine, error)
	Transactions(ctx context.Context, date time.Time) ([]model.Transaction, error)
}
