package tool

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Args holds invocation arguments as decoded from the wire. Values are
// untyped until read through one of the accessors.
type Args map[string]any

// Has reports whether the key is present with a non-nil value.
func (a Args) Has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// String returns the named string argument trimmed of surrounding space, or
// def when absent. ok is false when the value is present but not a string.
func (a Args) String(name, def string) (string, bool) {
	v, present := a[name]
	if !present || v == nil {
		return def, true
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// Int returns the named integer argument, or def when absent. JSON numbers
// must be integral; numeric strings are accepted.
func (a Args) Int(name string, def int) (int, bool) {
	v, present := a[name]
	if !present || v == nil {
		return def, true
	}
	return toInt(v)
}

// Bool returns the named boolean argument, or def when absent.
func (a Args) Bool(name string, def bool) (bool, bool) {
	v, present := a[name]
	if !present || v == nil {
		return def, true
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Clone returns a shallow copy of the arguments.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for key, value := range a {
		out[key] = value
	}
	return out
}
