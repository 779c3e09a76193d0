// Package period turns a period selection into an inclusive calendar date range.
// Weeks run Monday through Sunday regardless of locale; months are calendar months.
package period

import (
	"fmt"
	"strings"
	"time"

	"salesjournal/internal/domain"
)

type Kind string

const (
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
	Range   Kind = "range"
)

const monthLayout = "2006-01"

func ParseKind(raw string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case Daily, Weekly, Monthly, Range:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown period kind %q", domain.ErrInvalidDate, raw)
	}
}

func Day(d time.Time) domain.DateRange {
	d = domain.CalendarDay(d)
	return domain.DateRange{Start: d, End: d}
}

// Week returns the Monday-to-Sunday week containing d.
func Week(d time.Time) domain.DateRange {
	d = domain.CalendarDay(d)
	offset := int(d.Weekday())
	if offset == 0 {
		offset = 7
	}
	start := d.AddDate(0, 0, -(offset - 1))
	return domain.DateRange{Start: start, End: start.AddDate(0, 0, 6)}
}

func Month(year int, month time.Month) domain.DateRange {
	return domain.DateRange{
		Start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC),
	}
}

// Between builds an explicit range. start must not be after end.
func Between(start, end string) (domain.DateRange, error) {
	from, err := domain.ParseDate(start)
	if err != nil {
		return domain.DateRange{}, err
	}
	to, err := domain.ParseDate(end)
	if err != nil {
		return domain.DateRange{}, err
	}
	if from.After(to) {
		return domain.DateRange{}, fmt.Errorf("%w: start %s is after end %s", domain.ErrInvalidDate, start, end)
	}
	return domain.DateRange{Start: from, End: to}, nil
}

// Resolve maps a kind and its anchor to a date range. Daily and weekly anchors
// are YYYY-MM-DD dates; monthly anchors are YYYY-MM (a full date selects its month).
func Resolve(kind Kind, anchor string) (domain.DateRange, error) {
	switch kind {
	case Daily:
		d, err := domain.ParseDate(anchor)
		if err != nil {
			return domain.DateRange{}, err
		}
		return Day(d), nil
	case Weekly:
		d, err := domain.ParseDate(anchor)
		if err != nil {
			return domain.DateRange{}, err
		}
		return Week(d), nil
	case Monthly:
		m, err := ParseMonth(anchor)
		if err != nil {
			return domain.DateRange{}, err
		}
		return Month(m.Year(), m.Month()), nil
	case Range:
		start, end, ok := strings.Cut(anchor, "..")
		if !ok {
			return domain.DateRange{}, fmt.Errorf("%w: range anchor must be start..end", domain.ErrInvalidDate)
		}
		return Between(start, end)
	default:
		return domain.DateRange{}, fmt.Errorf("%w: unknown period kind %q", domain.ErrInvalidDate, kind)
	}
}

// ParseMonth returns the first day of the month named by raw.
func ParseMonth(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if m, err := time.Parse(monthLayout, raw); err == nil {
		return m, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}
