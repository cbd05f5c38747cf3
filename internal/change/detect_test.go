package change

import (
	"testing"

	"github.com/pinetar/dugout-data/internal/model"
)

func TestDetectNew(t *testing.T) {
	l := model.Lineup{Date: "2025-08-14", TeamKey: "t.1"}

	got := Detect("", l, FingerprintLineup)
	if !got.Changed {
		t.Fatal("no stored fingerprint must report a change")
	}
	if got.Type != ChangeNew {
		t.Fatalf("change type = %q, want %q", got.Type, ChangeNew)
	}
	if got.Fingerprint != FingerprintLineup(l) {
		t.Fatal("reported fingerprint does not match the record")
	}
}

func TestDetectUnchanged(t *testing.T) {
	l := model.Lineup{Date: "2025-08-14", TeamKey: "t.1"}
	stored := FingerprintLineup(l)

	got := Detect(stored, l, FingerprintLineup)
	if got.Changed {
		t.Fatal("identical content must not report a change")
	}
	if got.Type != "" {
		t.Fatalf("unchanged records carry no change type, got %q", got.Type)
	}
	if got.Fingerprint != stored {
		t.Fatal("fingerprint must still be reported for unchanged records")
	}
}

func TestDetectModified(t *testing.T) {
	l := model.Lineup{Date: "2025-08-14", TeamKey: "t.1"}

	got := Detect("deadbeef", l, FingerprintLineup)
	if !got.Changed {
		t.Fatal("mismatched fingerprint must report a change")
	}
	if got.Type != ChangeModified {
		t.Fatalf("change type = %q, want %q", got.Type, ChangeModified)
	}
}

func TestDetectWithGenericFingerprint(t *testing.T) {
	data := map[string]interface{}{"id": "x", "v": 1}

	first := Detect("", data, Fingerprint)
	second := Detect(first.Fingerprint, data, Fingerprint)
	if second.Changed {
		t.Fatal("refetching identical content must be a no-op")
	}

	data["v"] = 2
	third := Detect(first.Fingerprint, data, Fingerprint)
	if !third.Changed || third.Type != ChangeModified {
		t.Fatalf("content change not detected: %+v", third)
	}
}
