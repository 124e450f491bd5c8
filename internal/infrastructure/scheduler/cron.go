package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRON EXPRESSIONS
// ══════════════════════════════════════════════════════════════════════════════

// CronExpression is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
//
// Examples:
//   - "*/5 * * * *"  - every 5 minutes
//   - "0 */1 * * *"  - every hour
//   - "30 6 * * *"   - every day at 06:30
//   - "0 0 * * 0"    - every Sunday at midnight
//
// It implements Schedule, so it plugs straight into Scheduler.Register.
type CronExpression struct {
	raw      string
	minutes  fieldSet // 0-59
	hours    fieldSet // 0-23
	days     fieldSet // 1-31
	months   fieldSet // 1-12
	weekdays fieldSet // 0-6, 7 folded into 0 (Sunday)

	// Vixie cron rule: when both day fields are restricted (neither
	// written as *), a time matching either of them is due.
	dayRestricted     bool
	weekdayRestricted bool
}

// fieldSet is a bitmask of allowed values for one cron field.
type fieldSet uint64

func (s fieldSet) has(v int) bool { return s&(1<<uint(v)) != 0 }
func (s *fieldSet) add(v int)     { *s |= 1 << uint(v) }

// ParseCronExpression parses a cron expression string.
// Each field supports *, n, n-m, lists of those, and /step suffixes.
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression: expected 5 fields, got %d", len(fields))
	}

	ce := &CronExpression{raw: expr}
	var err error

	if ce.minutes, err = parseField(fields[0], 0, 59); err != nil {
		return nil, fmt.Errorf("invalid minute field: %w", err)
	}
	if ce.hours, err = parseField(fields[1], 0, 23); err != nil {
		return nil, fmt.Errorf("invalid hour field: %w", err)
	}
	if ce.days, err = parseField(fields[2], 1, 31); err != nil {
		return nil, fmt.Errorf("invalid day field: %w", err)
	}
	if ce.months, err = parseField(fields[3], 1, 12); err != nil {
		return nil, fmt.Errorf("invalid month field: %w", err)
	}
	// Both 0 and 7 mean Sunday.
	if ce.weekdays, err = parseField(fields[4], 0, 7); err != nil {
		return nil, fmt.Errorf("invalid weekday field: %w", err)
	}
	if ce.weekdays.has(7) {
		ce.weekdays.add(0)
	}

	ce.dayRestricted = !strings.HasPrefix(fields[2], "*")
	ce.weekdayRestricted = !strings.HasPrefix(fields[4], "*")

	return ce, nil
}

// MustParseCronExpression parses a cron expression or panics.
// Use only for compile-time constants.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(fmt.Sprintf("invalid cron expression %q: %v", expr, err))
	}
	return ce
}

// parseField parses one cron field as a comma-separated list of terms.
func parseField(field string, min, max int) (fieldSet, error) {
	var set fieldSet
	for _, term := range strings.Split(field, ",") {
		if err := parseTerm(&set, strings.TrimSpace(term), min, max); err != nil {
			return 0, err
		}
	}
	return set, nil
}

// parseTerm handles *, n, n-m and their /step forms within one field.
func parseTerm(set *fieldSet, term string, min, max int) error {
	if term == "" {
		return fmt.Errorf("empty term")
	}

	step := 1
	stepped := false
	if base, stepStr, ok := strings.Cut(term, "/"); ok {
		n, err := strconv.Atoi(stepStr)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid step %q", stepStr)
		}
		term, step, stepped = base, n, true
	}

	start, end := min, max
	switch {
	case term == "*":
		// Full range.
	case strings.Contains(term, "-"):
		startStr, endStr, _ := strings.Cut(term, "-")
		var err error
		if start, err = strconv.Atoi(startStr); err != nil {
			return fmt.Errorf("invalid range start %q", startStr)
		}
		if end, err = strconv.Atoi(endStr); err != nil {
			return fmt.Errorf("invalid range end %q", endStr)
		}
	default:
		v, err := strconv.Atoi(term)
		if err != nil {
			return fmt.Errorf("invalid value %q", term)
		}
		start = v
		// A bare "n/s" counts from n to the end of the field.
		if stepped {
			end = max
		} else {
			end = v
		}
	}

	if start < min || end > max || start > end {
		return fmt.Errorf("out of range [%d-%d]: %s", min, max, term)
	}

	for v := start; v <= end; v += step {
		set.add(v)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// String returns the original cron expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first time after the given one that matches the
// expression, in the same location. It skips whole months, days and hours
// that cannot match instead of scanning minute by minute. The zero time is
// returned for expressions that never match (such as a day that no month
// has), detected by a four-year search bound.
func (ce *CronExpression) Next(after time.Time) time.Time {
	loc := after.Location()
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(4, 0, 0)

	for t.Before(limit) {
		if !ce.months.has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
			continue
		}
		if !ce.dayDue(t) {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
			continue
		}
		if !ce.hours.has(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc).Add(time.Hour)
			continue
		}
		if !ce.minutes.has(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}

	return time.Time{}
}

// dayDue applies the day-of-month / day-of-week match rule.
func (ce *CronExpression) dayDue(t time.Time) bool {
	dom := ce.days.has(t.Day())
	dow := ce.weekdays.has(int(t.Weekday()))

	if ce.dayRestricted && ce.weekdayRestricted {
		return dom || dow
	}
	return dom && dow
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESETS
// ══════════════════════════════════════════════════════════════════════════════

// Common cron expression presets (evaluated in the scheduler's timezone).
const (
	EveryMinute    = "* * * * *"
	Every5Minutes  = "*/5 * * * *"
	Every15Minutes = "*/15 * * * *"
	Every30Minutes = "*/30 * * * *"
	EveryHour      = "0 * * * *"

	// EveryDayDigest is the registrar digest default: 06:30 WIB,
	// before the registrar desk opens.
	EveryDayDigest = "30 6 * * *"

	EveryDayMidnight = "0 0 * * *"
	EveryMonday      = "0 0 * * 1"
	FirstOfMonth     = "0 0 1 * *"
)
