package change

import (
	"reflect"
	"testing"
)

func TestNormalizeRoundsFloats(t *testing.T) {
	got := Normalize(1.0000001)
	if got != 1.0 {
		t.Fatalf("Normalize(1.0000001) = %v, want 1.0", got)
	}

	got = Normalize(0.3333333333)
	if got != 0.333333 {
		t.Fatalf("Normalize(0.3333333333) = %v, want 0.333333", got)
	}

	// Ints and nil pass through untouched.
	if got := Normalize(42); got != 42 {
		t.Fatalf("Normalize(42) = %v", got)
	}
	if got := Normalize(nil); got != nil {
		t.Fatalf("Normalize(nil) = %v", got)
	}
}

func TestNormalizeSortsListOfMappingsByIdentityKey(t *testing.T) {
	list := []interface{}{
		map[string]interface{}{"player_id": "p9", "position": "OF"},
		map[string]interface{}{"player_id": "p1", "position": "SS"},
		map[string]interface{}{"player_id": "p5", "position": "1B"},
	}

	norm := Normalize(list).([]interface{})
	var order []string
	for _, e := range norm {
		order = append(order, e.(map[string]interface{})["player_id"].(string))
	}
	want := []string{"p1", "p5", "p9"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("sorted order = %v, want %v", order, want)
	}
}

func TestNormalizeIdentityKeyPriority(t *testing.T) {
	// transaction_id is present but so is date; date has higher priority and
	// must govern the sort.
	list := []interface{}{
		map[string]interface{}{"date": "2025-08-14", "transaction_id": "t1"},
		map[string]interface{}{"date": "2025-08-12", "transaction_id": "t9"},
	}

	norm := Normalize(list).([]interface{})
	first := norm[0].(map[string]interface{})
	if first["date"] != "2025-08-12" {
		t.Fatalf("expected sort by date, got first element %v", first)
	}
}

func TestNormalizePreservesOrderWithoutIdentityKey(t *testing.T) {
	list := []interface{}{
		map[string]interface{}{"note": "b"},
		map[string]interface{}{"note": "a"},
	}

	norm := Normalize(list).([]interface{})
	if norm[0].(map[string]interface{})["note"] != "b" {
		t.Fatalf("list without identity keys must keep original order: %v", norm)
	}

	// Scalar lists keep order too.
	scalars := Normalize([]interface{}{3, 1, 2}).([]interface{})
	if !reflect.DeepEqual(scalars, []interface{}{3, 1, 2}) {
		t.Fatalf("scalar list reordered: %v", scalars)
	}
}

func TestNormalizeFirstElementDecidesSortKey(t *testing.T) {
	// First element has only "id", the second has player_id as well; the
	// governing key comes from the first element.
	list := []interface{}{
		map[string]interface{}{"id": "z"},
		map[string]interface{}{"id": "a", "player_id": "p1"},
	}

	norm := Normalize(list).([]interface{})
	if norm[0].(map[string]interface{})["id"] != "a" {
		t.Fatalf("expected sort by id from first element, got %v", norm)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	v := map[string]interface{}{
		"date": "2025-08-14",
		"players": []interface{}{
			map[string]interface{}{"player_id": "p2", "avg": 0.3012345678},
			map[string]interface{}{"player_id": "p1", "avg": 0.25},
		},
		"meta": map[string]interface{}{"source": "file", "retries": 2},
	}

	once := Normalize(v)
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("Normalize not idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

func TestNormalizeStringifiesUnknownTypes(t *testing.T) {
	type weird struct{ A int }
	got := Normalize(weird{A: 7})
	if _, ok := got.(string); !ok {
		t.Fatalf("unknown type should stringify, got %T", got)
	}

	if got := Normalize(true); got != "true" {
		t.Fatalf("bool should stringify, got %v", got)
	}
}

func TestNormalizeTypedMapsAndSlices(t *testing.T) {
	stats := map[string]float64{"avg": 0.3333333333, "hr": 2}
	norm := Normalize(stats).(map[string]interface{})
	if norm["avg"] != 0.333333 {
		t.Fatalf("typed float map not rounded: %v", norm["avg"])
	}

	names := Normalize([]string{"b", "a"}).([]interface{})
	if names[0] != "b" {
		t.Fatalf("string slice reordered: %v", names)
	}
}
