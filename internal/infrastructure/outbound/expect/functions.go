package expect

import (
	"encoding/json"
	"math"
)

// approx reports whether a and b differ by at most tolerance.
func approx(a, b, tolerance any) bool {
	x, ok1 := toFloat(a)
	y, ok2 := toFloat(b)
	tol, ok3 := toFloat(tolerance)
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	return math.Abs(x-y) <= tol
}

// between is inclusive on both ends.
func between(v, lo, hi any) bool {
	x, ok1 := toFloat(v)
	l, ok2 := toFloat(lo)
	h, ok3 := toFloat(hi)
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	return x >= l && x <= h
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toJSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
