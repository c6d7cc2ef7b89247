package service

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

var truthy = map[string]struct{}{"true": {}, "1": {}, "yes": {}, "y": {}}

// coerceBool is true for true, 1, yes and y in any case. Everything else, blank included, is false.
func coerceBool(raw string) bool {
	_, ok := truthy[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// coerceFloat returns nil for blank input. Unparseable input becomes 0 and ok is false.
func coerceFloat(raw string) (value *float64, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		zero := 0.0
		return &zero, false
	}
	return &f, true
}

// leadingInt reads an optional sign and the digits that follow, ignoring the rest: "4.5" is 4
// and "abc" is 0.
func leadingInt(raw string) int {
	s := strings.TrimSpace(raw)
	sign := 1
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			break
		}
	}
	return sign * n
}

// coerceJSONObject returns the raw JSON object, or {} when blank or malformed.
func coerceJSONObject(raw string) json.RawMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage("{}")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

// coerceArray parses a JSON array when raw starts with '[' and otherwise splits on commas.
// A JSON array that fails to parse is split on commas too.
func coerceArray(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		var items []any
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			out := make([]string, 0, len(items))
			for _, item := range items {
				switch v := item.(type) {
				case string:
					out = append(out, v)
				case nil:
				default:
					b, _ := json.Marshal(v)
					out = append(out, string(b))
				}
			}
			return out
		}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
}

// coerceDatetime parses common timestamp layouts as UTC. Blank or unparseable input is nil.
func coerceDatetime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func optionalString(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}
