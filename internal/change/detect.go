package change

// ChangeType classifies a detected change.
type ChangeType string

const (
	// ChangeNew means no fingerprint was stored for this record yet.
	ChangeNew ChangeType = "new"
	// ChangeModified means the stored fingerprint no longer matches.
	ChangeModified ChangeType = "modified"
)

// Change is the outcome of comparing a record against its stored
// fingerprint. It is computed fresh on every call and never persisted here —
// the caller decides what to do with it.
type Change struct {
	Changed     bool
	Fingerprint string
	Type        ChangeType
}

// Detect is the single decision point for "is this record worth writing".
// existing is the previously stored fingerprint, empty if the record was
// never stored. Callers must treat Changed=false as "skip the write, the
// content is identical".
func Detect[T any](existing string, data T, fn func(T) string) Change {
	fp := fn(data)
	switch {
	case existing == "":
		return Change{Changed: true, Fingerprint: fp, Type: ChangeNew}
	case existing != fp:
		return Change{Changed: true, Fingerprint: fp, Type: ChangeModified}
	default:
		return Change{Changed: false, Fingerprint: fp}
	}
}
