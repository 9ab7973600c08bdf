package parse

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Quantity coerces a loosely typed form value into a part quantity. Numbers,
// numeric strings and json.Number are accepted; anything else yields nil.
func Quantity(v any) *int {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return &t
	case int64:
		n := int(t)
		return &n
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(math.Trunc(f))
	return &n
}
