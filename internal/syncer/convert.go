package syncer

import "fmt"

// toStr coerces a decoded JSON value (string, float64, nil, bool) to a
// string, tolerating the mixed typing that encoding/json produces for
// map[string]any payloads.
func toStr(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}

		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toInt coerces a decoded JSON numeric value to int, defaulting to 0 for
// anything that isn't a number.
func toInt(v any) int {
	f, ok := v.(float64)
	if !ok {
		return 0
	}

	return int(f)
}

// toFloat coerces a decoded JSON numeric value to float64, defaulting to 0
// for anything that isn't a number.
func toFloat(v any) float64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}

	return f
}

// toBool coerces a decoded JSON boolean or 0/1 numeric value, defaulting to
// false. The NBA stats feeds encode some boolean fields (e.g. isFieldGoal)
// as 0/1 integers rather than JSON booleans.
func toBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return false
	}
}
