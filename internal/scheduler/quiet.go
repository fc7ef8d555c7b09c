package scheduler

import (
	"fmt"
	"time"

	_ "time/tzdata"
)

// QuietHours is a daily window, in minutes since midnight, during which
// periodic refreshes are skipped. Start == End means disabled.
type QuietHours struct {
	Start int
	End   int
	Loc   *time.Location
}

// ParseQuietHours builds QuietHours from two "HH:MM" strings. Both empty
// disables the window.
func ParseQuietHours(start, end, tz string) (QuietHours, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return QuietHours{}, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = l
	}
	if start == "" && end == "" {
		return QuietHours{Loc: loc}, nil
	}
	s, ok := ParseHHMM(start)
	if !ok {
		return QuietHours{}, fmt.Errorf("invalid quiet start %q", start)
	}
	e, ok := ParseHHMM(end)
	if !ok {
		return QuietHours{}, fmt.Errorf("invalid quiet end %q", end)
	}
	return QuietHours{Start: s, End: e, Loc: loc}, nil
}

// Contains reports whether t falls in the window. Ranges may cross
// midnight, e.g. 22:00 -> 06:00.
func (q QuietHours) Contains(t time.Time) bool {
	if q.Start == q.End {
		return false
	}
	if q.Loc != nil {
		t = t.In(q.Loc)
	}
	m := t.Hour()*60 + t.Minute()
	if q.Start < q.End {
		return m >= q.Start && m < q.End
	}
	return m >= q.Start || m < q.End
}

// ParseHHMM parses "HH:MM" and returns minutes since midnight.
func ParseHHMM(hhmm string) (int, bool) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if hhmm[i] < '0' || hhmm[i] > '9' {
			return 0, false
		}
	}
	hh := int(hhmm[0]-'0')*10 + int(hhmm[1]-'0')
	mm := int(hhmm[3]-'0')*10 + int(hhmm[4]-'0')
	if hh > 23 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}
