package model

import "strconv"

// ExtractStatValue normalizes a stat value from the shapes upstream feeds
// actually produce.
//
// The fantasy API reports some stats as strings ("12", ".333", "-") and some
// category rollups as nested objects like {"total": 15, "week": 3}; MLB data
// arrives as flat numbers. This handles all of them, extracting the
// aggregate for nested objects.
//
// Returns the scalar float64 value, and ok=false if not extractable.
func ExtractStatValue(val interface{}) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
		return 0, false
	case map[string]interface{}:
		// Nested rollup objects: try the aggregate keys in preference order.
		for _, key := range []string{"total", "all", "count", "value"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ExtractStatValue(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}
