// Package timestamp resolves the portal's mixed timestamp strings into
// comparable instants.
package timestamp

import (
	"strconv"
	"strings"
	"time"
)

// Earliest is returned for missing or unparseable timestamps. It sorts
// before every instant a real record can carry.
var Earliest = time.Time{}

// isoLayouts are tried in order. Date-time layouts without a zone are
// interpreted in the normalizer's location; a bare date is midnight UTC.
var isoLayouts = []struct {
	layout string
	local  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999999Z0700", false},
	{"2006-01-02 15:04:05.999999999Z07:00", false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02 15:04:05.999999999", true},
	{"2006-01-02T15:04", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", false},
}

// Normalizer maps raw timestamp strings to instants.
type Normalizer struct {
	// Location applies to inputs that carry no zone. Nil means time.Local.
	Location *time.Location
}

var defaultNormalizer = Normalizer{}

// Resolve normalizes raw with the process-local zone.
func Resolve(raw string) time.Time {
	return defaultNormalizer.Resolve(raw)
}

// Resolve returns the instant raw denotes, or Earliest. It never fails.
func (n Normalizer) Resolve(raw string) time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Earliest
	}
	if t, ok := n.parseISO(value); ok {
		return t
	}
	if t, ok := n.parseDotted(value); ok {
		return t
	}
	return Earliest
}

func (n Normalizer) location() *time.Location {
	if n.Location != nil {
		return n.Location
	}
	return time.Local
}

func (n Normalizer) parseISO(value string) (time.Time, bool) {
	for _, candidate := range isoLayouts {
		var (
			t   time.Time
			err error
		)
		if candidate.local {
			t, err = time.ParseInLocation(candidate.layout, value, n.location())
		} else {
			t, err = time.Parse(candidate.layout, value)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDotted handles "DD.MM.YYYY HH:MM[:SS]".
func (n Normalizer) parseDotted(value string) (time.Time, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return time.Time{}, false
	}

	dateParts := strings.Split(parts[0], ".")
	if len(dateParts) != 3 {
		return time.Time{}, false
	}
	timeParts := strings.Split(parts[1], ":")
	if len(timeParts) < 2 || len(timeParts) > 3 {
		return time.Time{}, false
	}

	day, ok1 := atoi(dateParts[0])
	month, ok2 := atoi(dateParts[1])
	year, ok3 := atoi(dateParts[2])
	hour, ok4 := atoi(timeParts[0])
	minute, ok5 := atoi(timeParts[1])
	second := 0
	ok6 := true
	if len(timeParts) == 3 {
		second, ok6 = atoi(timeParts[2])
	}
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, n.location()), true
}

func atoi(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Clock returns the "HH:MM" label shown next to a message, or "" when raw
// has no recognizable time of day.
func Clock(raw string) string {
	parts := strings.Fields(raw)
	if len(parts) >= 2 {
		label := parts[1]
		if len(label) > 5 {
			label = label[:5]
		}
		return label
	}
	if len(parts) == 1 && strings.Contains(parts[0], "T") {
		if t, ok := defaultNormalizer.parseISO(parts[0]); ok {
			return t.Format("15:04")
		}
	}
	return ""
}
