// Package schedule parses AutoSchedule tag values into typed time-window
// predicates. Parsing is strict; evaluation is a pure function of the
// supplied clock so schedules are testable without real time.
//
// Grammar:
//
//	schedule      = named-pattern | custom
//	named-pattern = "business-hours" | "dev-hours" | "24x7" | "never"
//	custom        = "custom:" days ":" HH:MM "-" HH:MM
//	days          = day-range | day-list
//	day-range     = DAY "-" DAY          (e.g. "Mon-Fri")
//	day-list      = DAY ("," DAY)*       (e.g. "Mon,Wed,Fri")
//
// Any grammar violation resolves to the AlwaysOn fallback: a malformed
// tag must keep its resource available rather than silently stop it.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// Kind discriminates the schedule variants.
type Kind int

const (
	BusinessHours Kind = iota // Mon-Fri 08:00-18:00
	DevHours                  // Mon-Fri 09:00-17:00
	AlwaysOn                  // tag value "24x7"; also the fallback
	AlwaysOff                 // tag value "never"
	Custom
)

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// DaySet is a bitmask of weekdays, bit position = time.Weekday value.
type DaySet uint8

// Contains reports whether d includes the given weekday.
func (d DaySet) Contains(wd time.Weekday) bool {
	return d&(1<<uint(wd)) != 0
}

func (d DaySet) add(wd time.Weekday) DaySet {
	return d | (1 << uint(wd))
}

// weekdays ordered Mon-first, matching the tag syntax.
var dayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var dayNames = map[string]time.Weekday{
	"Mon": time.Monday, "Tue": time.Tuesday, "Wed": time.Wednesday,
	"Thu": time.Thursday, "Fri": time.Friday, "Sat": time.Saturday,
	"Sun": time.Sunday,
}

func dayName(wd time.Weekday) string {
	for name, d := range dayNames {
		if d == wd {
			return name
		}
	}
	return ""
}

var weekdaySet = func() DaySet {
	var d DaySet
	for _, wd := range dayOrder[:5] {
		d = d.add(wd)
	}
	return d
}()

// Schedule is a parsed, typed time-window policy. The zero value is not
// meaningful; construct via Parse or Default.
type Schedule struct {
	Kind  Kind
	Days  DaySet
	Start TimeOfDay
	End   TimeOfDay
}

// Default returns the AlwaysOn fallback schedule.
func Default() Schedule {
	return Schedule{Kind: AlwaysOn}
}

// Parse converts a raw tag value into a Schedule. The error return is
// for callers that want to log the violation; most callers should use
// ParseOrDefault which applies the documented AlwaysOn fallback.
func Parse(raw string) (Schedule, error) {
	switch strings.TrimSpace(raw) {
	case "business-hours":
		return Schedule{Kind: BusinessHours, Days: weekdaySet, Start: 8 * 60, End: 18 * 60}, nil
	case "dev-hours":
		return Schedule{Kind: DevHours, Days: weekdaySet, Start: 9 * 60, End: 17 * 60}, nil
	case "24x7":
		return Schedule{Kind: AlwaysOn}, nil
	case "never":
		return Schedule{Kind: AlwaysOff}, nil
	}

	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "custom:")
	if !ok {
		return Default(), fmt.Errorf("unknown schedule %q", raw)
	}

	// custom:<Days>:<HH:MM>-<HH:MM>
	daysPart, timePart, ok := strings.Cut(rest, ":")
	if !ok {
		return Default(), fmt.Errorf("custom schedule %q: missing time range", raw)
	}
	days, err := parseDays(daysPart)
	if err != nil {
		return Default(), fmt.Errorf("custom schedule %q: %w", raw, err)
	}

	startRaw, endRaw, ok := strings.Cut(timePart, "-")
	if !ok {
		return Default(), fmt.Errorf("custom schedule %q: time range must be HH:MM-HH:MM", raw)
	}
	start, err := parseTimeOfDay(startRaw)
	if err != nil {
		return Default(), fmt.Errorf("custom schedule %q: %w", raw, err)
	}
	end, err := parseTimeOfDay(endRaw)
	if err != nil {
		return Default(), fmt.Errorf("custom schedule %q: %w", raw, err)
	}
	if start >= end {
		return Default(), fmt.Errorf("custom schedule %q: start %s must be before end %s", raw, start, end)
	}

	return Schedule{Kind: Custom, Days: days, Start: start, End: end}, nil
}

// ParseOrDefault parses raw and resolves any violation to AlwaysOn,
// reporting the parse error (nil when raw was valid) so the caller can
// log a warning. The fallback deliberately favors availability: a typo
// must never become an AlwaysOff.
func ParseOrDefault(raw string) (Schedule, error) {
	s, err := Parse(raw)
	if err != nil {
		return Default(), err
	}
	return s, nil
}

func parseDays(s string) (DaySet, error) {
	if s == "" {
		return 0, fmt.Errorf("empty day set")
	}

	// Range form: Mon-Fri.
	if from, to, ok := strings.Cut(s, "-"); ok && !strings.Contains(s, ",") {
		fromDay, okFrom := dayNames[from]
		toDay, okTo := dayNames[to]
		if !okFrom || !okTo {
			return 0, fmt.Errorf("invalid day range %q", s)
		}
		var set DaySet
		in := false
		for _, wd := range dayOrder {
			if wd == fromDay {
				in = true
			}
			if in {
				set = set.add(wd)
			}
			if wd == toDay {
				if !in {
					return 0, fmt.Errorf("day range %q ends before it starts", s)
				}
				return set, nil
			}
		}
		return 0, fmt.Errorf("invalid day range %q", s)
	}

	// List form: Mon,Wed,Fri.
	var set DaySet
	for _, part := range strings.Split(s, ",") {
		wd, ok := dayNames[strings.TrimSpace(part)]
		if !ok {
			return 0, fmt.Errorf("invalid day %q", part)
		}
		set = set.add(wd)
	}
	return set, nil
}

func parseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	// Atoi rejects trailing garbage, so the whole token must be HH:MM.
	h, errH := strconv.Atoi(hh)
	m, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// String renders the canonical tag form of the schedule, suitable for
// round-tripping through Parse.
func (s Schedule) String() string {
	switch s.Kind {
	case BusinessHours:
		return "business-hours"
	case DevHours:
		return "dev-hours"
	case AlwaysOn:
		return "24x7"
	case AlwaysOff:
		return "never"
	}

	var days []string
	for _, wd := range dayOrder {
		if s.Days.Contains(wd) {
			days = append(days, dayName(wd))
		}
	}
	return fmt.Sprintf("custom:%s:%s-%s", strings.Join(days, ","), s.Start, s.End)
}

// DesiredState evaluates the schedule window against now and returns the
// state the resource should be in. The caller is responsible for passing
// now already converted to the account's configured timezone.
func (s Schedule) DesiredState(now time.Time) lifecycle.ResourceState {
	switch s.Kind {
	case AlwaysOn:
		return lifecycle.StateRunning
	case AlwaysOff:
		return lifecycle.StateStopped
	}

	if !s.Days.Contains(now.Weekday()) {
		return lifecycle.StateStopped
	}
	tod := TimeOfDay(now.Hour()*60 + now.Minute())
	if tod >= s.Start && tod < s.End {
		return lifecycle.StateRunning
	}
	return lifecycle.StateStopped
}
