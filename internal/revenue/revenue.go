// Package revenue derives the single monetary amount the experimentation
// platform accepts on a tracked event.
package revenue

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// candidates are checked in order; the first truthy one wins.
var candidates = [...]string{"revenue", "total", "value"}

// maxAmount keeps the cent conversion well inside int64.
const maxAmount = 1e15

// Resolve returns the amount in cents. A zero amount counts as absent and
// falls through to the next candidate, as do values that are not numbers
// and amounts beyond maxAmount.
func Resolve(props map[string]any) (int64, bool) {
	for _, key := range candidates {
		amount, ok := toAmount(props[key])
		if !ok || amount == 0 {
			continue
		}
		return int64(math.Round(amount * 100)), true
	}
	return 0, false
}

func toAmount(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxAmount {
		return 0, false
	}
	return f, true
}
