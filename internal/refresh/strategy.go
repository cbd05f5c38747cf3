// Package refresh decides whether previously fetched data is worth
// re-fetching from an upstream source.
//
// The policy is tuned to how fantasy and MLB data is corrected after the
// fact: very recent dates always refresh, stat lines stay volatile for about
// a week while official scoring corrections land, and anything older than a
// month is effectively frozen. Staleness between those bands is anchored to
// the fixed daily batch cadence upstream publishes on, not to continuous
// polling.
//
// This is distinct from change detection: refresh runs before a fetch, the
// change tracker runs after.
package refresh

import (
	"time"

	"github.com/pinetar/dugout-data/internal/model"
)

// Reason explains a refresh decision.
type Reason string

const (
	ReasonForceRefresh   Reason = "force_refresh"
	ReasonNewData        Reason = "new_data"
	ReasonRecentData     Reason = "recent_data"
	ReasonStatCorrection Reason = "stat_correction_window"
	ReasonStaleData      Reason = "stale_data"
	ReasonArchiveData    Reason = "archive_data"
	ReasonUpToDate       Reason = "up_to_date"
)

// Decision is the outcome of a refresh check. Computed per call and never
// stored.
type Decision struct {
	Refresh bool
	Reason  Reason
}

// Policy defaults. Tunable per Strategy, but these are the values the
// pipeline runs with.
const (
	// DefaultForceRefreshDays: data dated within this many days of now is
	// always refreshed.
	DefaultForceRefreshDays = 3
	// DefaultStatCorrectionDays: stat lines this recent may still receive
	// retroactive scoring corrections.
	DefaultStatCorrectionDays = 7
	// DefaultArchiveThresholdDays: data older than this rarely changes.
	DefaultArchiveThresholdDays = 30
	// DefaultCorrectionMinInterval: minimum gap between fetches inside the
	// correction window.
	DefaultCorrectionMinInterval = 24 * time.Hour
)

// DefaultAnchorHours are the daily batch update times (local), ascending.
func DefaultAnchorHours() []int { return []int{6, 13, 22} }

// Strategy holds the refresh policy. The zero value is not usable; construct
// with New and override fields as needed. All methods are safe for
// concurrent use: the strategy is read-only after construction.
type Strategy struct {
	ForceRefreshDays      int
	StatCorrectionDays    int
	ArchiveThresholdDays  int
	CorrectionMinInterval time.Duration

	// AnchorHours are the daily scheduled update hours, ascending.
	AnchorHours []int

	// Location is the timezone for day boundaries and anchors. Defaults to
	// the system's local time.
	Location *time.Location

	// Now is the clock. Overridable in tests.
	Now func() time.Time
}

// New returns a Strategy with the default policy.
func New() *Strategy {
	return &Strategy{
		ForceRefreshDays:      DefaultForceRefreshDays,
		StatCorrectionDays:    DefaultStatCorrectionDays,
		ArchiveThresholdDays:  DefaultArchiveThresholdDays,
		CorrectionMinInterval: DefaultCorrectionMinInterval,
		AnchorHours:           DefaultAnchorHours(),
		Location:              time.Local,
		Now:                   time.Now,
	}
}

// ShouldRefresh decides whether data for dataDate is worth re-fetching.
// lastFetched is nil when the (kind, date) pair was never fetched. force
// bypasses every other rule.
//
// Rules are checked in order, first match wins:
//
//  1. force                                          -> force_refresh
//  2. never fetched                                  -> new_data
//  3. dated within ForceRefreshDays                  -> recent_data
//  4. stats within StatCorrectionDays, last fetch
//     at least CorrectionMinInterval ago             -> stat_correction_window
//  5. last fetch predates the latest anchor          -> stale_data
//  6. older than ArchiveThresholdDays                -> archive_data
//  7. otherwise                                      -> up_to_date
//
// Rule 5 is deliberately checked before rule 6: an archive-age record whose
// last fetch predates the latest anchor still refreshes as stale_data, so
// archive_data only applies to records already fetched since the most recent
// batch window.
func (s *Strategy) ShouldRefresh(dataDate time.Time, kind model.Kind, lastFetched *time.Time, force bool) Decision {
	if force {
		return Decision{Refresh: true, Reason: ReasonForceRefresh}
	}
	if lastFetched == nil {
		return Decision{Refresh: true, Reason: ReasonNewData}
	}

	now := s.now()
	daysOld := s.daysBetween(dataDate, now)

	if daysOld <= s.ForceRefreshDays {
		return Decision{Refresh: true, Reason: ReasonRecentData}
	}

	if kind == model.KindStats && daysOld <= s.StatCorrectionDays &&
		now.Sub(*lastFetched) >= s.CorrectionMinInterval {
		return Decision{Refresh: true, Reason: ReasonStatCorrection}
	}

	if lastFetched.Before(s.lastScheduledUpdateAt(now)) {
		return Decision{Refresh: true, Reason: ReasonStaleData}
	}

	if daysOld > s.ArchiveThresholdDays {
		return Decision{Refresh: false, Reason: ReasonArchiveData}
	}

	return Decision{Refresh: false, Reason: ReasonUpToDate}
}

// Today returns the current date at midnight in the strategy's location.
// Collection plans its date spans from here so day boundaries line up with
// the staleness math.
func (s *Strategy) Today() time.Time {
	loc := s.location()
	y, m, d := s.now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// LastScheduledUpdate returns the most recent daily anchor time that is not
// in the future. Before the first anchor of the day it returns the previous
// day's last anchor.
func (s *Strategy) LastScheduledUpdate() time.Time {
	return s.lastScheduledUpdateAt(s.now())
}

// NextScheduledUpdate returns the first anchor time strictly after t. Used
// by the maintenance scheduler so collection runs on the same cadence
// staleness is measured against.
func (s *Strategy) NextScheduledUpdate(t time.Time) time.Time {
	loc := s.location()
	local := t.In(loc)
	y, m, d := local.Date()
	for _, h := range s.anchorHours() {
		anchor := time.Date(y, m, d, h, 0, 0, 0, loc)
		if anchor.After(local) {
			return anchor
		}
	}
	return time.Date(y, m, d, s.anchorHours()[0], 0, 0, 0, loc).AddDate(0, 0, 1)
}

func (s *Strategy) lastScheduledUpdateAt(now time.Time) time.Time {
	loc := s.location()
	local := now.In(loc)
	y, m, d := local.Date()
	hours := s.anchorHours()
	for i := len(hours) - 1; i >= 0; i-- {
		anchor := time.Date(y, m, d, hours[i], 0, 0, 0, loc)
		if !anchor.After(local) {
			return anchor
		}
	}
	return time.Date(y, m, d, hours[len(hours)-1], 0, 0, 0, loc).AddDate(0, 0, -1)
}

// daysBetween counts whole calendar days from dataDate to now in the
// strategy's location. Same day is 0; a future-dated record is negative and
// therefore always within the recent window.
func (s *Strategy) daysBetween(dataDate, now time.Time) int {
	loc := s.location()
	y1, m1, d1 := dataDate.In(loc).Date()
	y2, m2, d2 := now.In(loc).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

func (s *Strategy) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Strategy) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

func (s *Strategy) anchorHours() []int {
	if len(s.AnchorHours) > 0 {
		return s.AnchorHours
	}
	return DefaultAnchorHours()
}
