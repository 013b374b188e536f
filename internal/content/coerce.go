package content

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Alle Feld-Fallbacks des Normalizers laufen über diese Helfer.

// CoerceString liefert Strings unverändert, nil als "" und alles andere
// als kompakte JSON-Darstellung.
func CoerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// CoerceOptionalString liefert nur echte Strings, sonst "".
func CoerceOptionalString(v any) string {
	s, _ := v.(string)
	return s
}

// CoerceStringOr liefert v, wenn es ein String ist, sonst def.
func CoerceStringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// CoerceStrings wandelt jedes Element in einen String und verwirft leere.
// Kein Array ergibt eine leere Liste.
func CoerceStrings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		s := CoerceString(it)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// OnlyStrings behält nur Elemente, die bereits Strings sind.
func OnlyStrings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CoerceInt liest numerische Werte (json.Number, float64, int); alles andere
// und nicht-endliche Werte ergeben def.
func CoerceInt(v any, def int) int {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return def
		}
		f = parsed
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		return t
	case int64:
		return int(t)
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return def
	}
	return int(math.Floor(f))
}

// CoerceObject liefert v als JSON-Objekt.
func CoerceObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}
