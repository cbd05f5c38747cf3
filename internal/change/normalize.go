// Package change computes content fingerprints for pipeline records and
// reports whether a freshly fetched record differs from what was stored.
//
// Upstream feeds re-serve the same logical data with fields reordered,
// players shuffled, and floats reformatted. Fingerprints are therefore taken
// over a normalized projection of each record's meaningful fields, so a
// re-fetch that changed nothing hashes identically and never triggers a
// write. All functions are pure and never fail: partial records fingerprint
// whatever is present.
package change

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// identityKeys are the candidate sort keys for lists of mappings, in
// priority order. The first key present in a list's first element governs
// the ordering of the whole list.
var identityKeys = []string{"player_id", "date", "transaction_id", "id"}

// floatPrecision is the rounding applied to every float before hashing.
const floatPrecision = 1e6

// Normalize returns the canonical form of an arbitrarily nested value:
// mapping values recursed, lists of mappings sorted by identity key, floats
// rounded to 6 decimal places, ints and nil unchanged, anything else
// stringified. Normalize(Normalize(x)) == Normalize(x).
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[string]float64:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[string]string:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	case map[string]int:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	case []interface{}:
		return normalizeList(t)
	case []map[string]interface{}:
		generic := make([]interface{}, len(t))
		for i, e := range t {
			generic[i] = e
		}
		return normalizeList(generic)
	case []string:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []float64:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case []int:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case float64:
		return normalizeFloat(t)
	case float32:
		return normalizeFloat(float64(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return t.String()
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

// normalizeList sorts a list of mappings by the identity key its first
// element carries; any other list keeps its original order. Elements are
// normalized either way.
func normalizeList(list []interface{}) []interface{} {
	out := make([]interface{}, len(list))
	for i, e := range list {
		out[i] = Normalize(e)
	}
	if len(out) == 0 {
		return out
	}

	first, ok := out[0].(map[string]interface{})
	if !ok {
		return out
	}
	for _, key := range identityKeys {
		if _, present := first[key]; !present {
			continue
		}
		sort.SliceStable(out, func(i, j int) bool {
			return listSortKey(out[i], key) < listSortKey(out[j], key)
		})
		return out
	}
	return out
}

// listSortKey stringifies the identity-key value of a list element. Elements
// that are not mappings, or that lack the key, sort first as "".
func listSortKey(elem interface{}, key string) string {
	m, ok := elem.(map[string]interface{})
	if !ok {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// normalizeFloat rounds to 6 decimal places. Non-finite values become their
// string forms so canonical serialization can never fail.
func normalizeFloat(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	r := math.Round(f*floatPrecision) / floatPrecision
	if r == 0 {
		return 0.0
	}
	return r
}
