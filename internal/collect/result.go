// Package collect orchestrates one run of the ingestion cycle: plan a date
// span, gate each (kind, date) pair through the refresh strategy, fetch what
// passes, and write only records whose content fingerprint moved.
package collect

import (
	"fmt"
	"time"
)

// Result tracks counts and errors from a collection run.
type Result struct {
	RunID            string
	DatesPlanned     int
	DatesFetched     int
	DatesSkipped     int
	RecordsNew       int
	RecordsModified  int
	RecordsUnchanged int
	Duration         time.Duration
	Errors           []string
}

// Add merges another Result into this one.
func (r *Result) Add(other Result) {
	r.DatesPlanned += other.DatesPlanned
	r.DatesFetched += other.DatesFetched
	r.DatesSkipped += other.DatesSkipped
	r.RecordsNew += other.RecordsNew
	r.RecordsModified += other.RecordsModified
	r.RecordsUnchanged += other.RecordsUnchanged
	r.Errors = append(r.Errors, other.Errors...)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"dates=%d fetched=%d skipped=%d new=%d modified=%d unchanged=%d errors=%d dur=%s",
		r.DatesPlanned, r.DatesFetched, r.DatesSkipped,
		r.RecordsNew, r.RecordsModified, r.RecordsUnchanged,
		len(r.Errors), r.Duration.Round(time.Millisecond),
	)
}
