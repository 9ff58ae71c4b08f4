package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TimestampLayout is the canonical form timestamps are normalized to.
const TimestampLayout = time.DateTime

// timestampConditions lists the conditions that make sense on a timestamp
// column. Pattern matching conditions are excluded.
var timestampConditions = map[Condition]bool{
	Equals:       true,
	DoesNotEqual: true,
	GreaterThan:  true,
	LessThan:     true,
	IsNull:       true,
	IsNotNull:    true,
	IsIn:         true,
	IsBetween:    true,
}

// ValidateTimestampOperand checks that a condition name can be applied to a
// timestamp column and returns the parsed condition.
func ValidateTimestampOperand(name string) (Condition, error) {
	c, err := ParseCondition(name)
	if err != nil {
		return 0, err
	}
	if !timestampConditions[c] {
		return 0, fmt.Errorf("%w: %q is incompatible with timestamps", ErrVocabulary, name)
	}
	return c, nil
}

// ValidateTimestamp parses a free form date/time and returns it as
// YYYY-MM-DD HH:MM:SS in the builder's location. Besides absolute dates it
// accepts now, today, yesterday, tomorrow, offsets like "+1 day" or
// "2 weeks ago", and weekdays like "next monday". Dotted dates are day first.
func (b *Builder) ValidateTimestamp(value string) (string, error) {
	t, err := b.parseTimestamp(value)
	if err != nil {
		return "", err
	}
	return t.In(b.loc).Format(TimestampLayout), nil
}

// ValidateTimestamps normalizes every value of a key → timestamp map. It
// fails on the first value that cannot be parsed.
func (b *Builder) ValidateTimestamps(values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for key, value := range values {
		ts, err := b.ValidateTimestamp(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = ts
	}
	return out, nil
}

func (b *Builder) parseTimestamp(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrFormat)
	}

	now := b.now().In(b.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.loc)
	switch strings.ToLower(s) {
	case "now":
		return now, nil
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}

	if t, ok := parseRelative(strings.ToLower(s), now, today); ok {
		return t, nil
	}
	if t, ok := parseDayFirst(s, b.loc); ok {
		return t, nil
	}

	t, err := dateparse.ParseIn(s, b.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: couldn't parse %q: %v", ErrFormat, value, err)
	}
	return t, nil
}

// relativeUnits maps unit words, singular and plural, to a step function.
var relativeUnits = map[string]func(t time.Time, n int) time.Time{
	"sec":       func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Second) },
	"second":    func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Second) },
	"min":       func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Minute) },
	"minute":    func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Minute) },
	"hour":      func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Hour) },
	"day":       func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) },
	"week":      func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) },
	"fortnight": func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 14*n) },
	"month":     func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) },
	"year":      func(t time.Time, n int) time.Time { return t.AddDate(n, 0, 0) },
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

// parseRelative handles offsets from now such as "+1 day", "-2 weeks",
// "3 months ago" or "+1 week 2 days", and weekdays such as "monday",
// "next friday" or "last sunday". Weekdays resolve to midnight; offsets keep
// the time of day. s must be lower case.
func parseRelative(s string, now, today time.Time) (time.Time, bool) {
	words := strings.Fields(s)
	if len(words) == 0 {
		return time.Time{}, false
	}

	if t, ok := parseWeekday(words, today); ok {
		return t, true
	}

	ago := words[len(words)-1] == "ago"
	if ago {
		words = words[:len(words)-1]
	}
	if len(words) == 0 || len(words)%2 != 0 {
		return time.Time{}, false
	}

	t := now
	for i := 0; i < len(words); i += 2 {
		n, err := strconv.Atoi(words[i])
		if err != nil {
			return time.Time{}, false
		}
		step, ok := relativeUnits[words[i+1]]
		if !ok {
			step, ok = relativeUnits[strings.TrimSuffix(words[i+1], "s")]
		}
		if !ok {
			return time.Time{}, false
		}
		if ago {
			n = -n
		}
		t = step(t, n)
	}
	return t, true
}

func parseWeekday(words []string, today time.Time) (time.Time, bool) {
	var dir, name string
	switch len(words) {
	case 1:
		name = words[0]
	case 2:
		dir, name = words[0], words[1]
	default:
		return time.Time{}, false
	}
	wd, ok := weekdays[name]
	if !ok {
		return time.Time{}, false
	}

	ahead := (int(wd) - int(today.Weekday()) + 7) % 7
	switch dir {
	case "", "this":
		return today.AddDate(0, 0, ahead), true
	case "next":
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	case "last", "previous":
		behind := (int(today.Weekday()) - int(wd) + 7) % 7
		if behind == 0 {
			behind = 7
		}
		return today.AddDate(0, 0, -behind), true
	}
	return time.Time{}, false
}

// dayFirst matches dotted European dates, dd.mm.yyyy with an optional time.
var dayFirst = regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}(\s+\d{1,2}:\d{2}(:\d{2})?)?$`)

var dayFirstLayouts = []string{"2.1.2006", "2.1.2006 15:04", "2.1.2006 15:04:05"}

// parseDayFirst reads dotted dates day first, the way they are written in
// Europe. dateparse would read them month first.
func parseDayFirst(s string, loc *time.Location) (time.Time, bool) {
	if !dayFirst.MatchString(s) {
		return time.Time{}, false
	}
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
