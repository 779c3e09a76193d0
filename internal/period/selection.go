package period

import (
	"fmt"
	"strings"
	"time"

	"salesjournal/internal/domain"
)

// Quick-select names accepted by Selection.Quick.
const (
	QuickToday     = "today"
	QuickThisWeek  = "this_week"
	QuickThisMonth = "this_month"
)

// Selection is the period picker state. It remembers one anchor per kind, so
// switching kinds back and forth returns to the range last chosen for each.
type Selection struct {
	kind  Kind
	day   time.Time
	week  time.Time
	month time.Time
	from  time.Time
	to    time.Time
}

// NewSelection starts on the daily view with every anchor at today.
func NewSelection(today time.Time) *Selection {
	today = domain.CalendarDay(today)
	return &Selection{
		kind:  Daily,
		day:   today,
		week:  today,
		month: firstOfMonth(today),
		from:  today,
		to:    today,
	}
}

func (s *Selection) Kind() Kind {
	return s.kind
}

func (s *Selection) SetKind(kind Kind) error {
	switch kind {
	case Daily, Weekly, Monthly, Range:
		s.kind = kind
		return nil
	default:
		return fmt.Errorf("%w: unknown period kind %q", domain.ErrInvalidDate, kind)
	}
}

// SetAnchor replaces the anchor of the current kind. A rejected anchor leaves
// the selection unchanged.
func (s *Selection) SetAnchor(anchor string) error {
	switch s.kind {
	case Daily:
		d, err := domain.ParseDate(anchor)
		if err != nil {
			return err
		}
		s.day = d
	case Weekly:
		d, err := domain.ParseDate(anchor)
		if err != nil {
			return err
		}
		s.week = d
	case Monthly:
		m, err := ParseMonth(anchor)
		if err != nil {
			return err
		}
		s.month = m
	case Range:
		r, err := Resolve(Range, anchor)
		if err != nil {
			return err
		}
		s.from, s.to = r.Start, r.End
	}
	return nil
}

// SetRange switches to an explicit range.
func (s *Selection) SetRange(start, end string) error {
	r, err := Between(start, end)
	if err != nil {
		return err
	}
	s.kind = Range
	s.from, s.to = r.Start, r.End
	return nil
}

func (s *Selection) Today(now time.Time) {
	s.kind = Daily
	s.day = domain.CalendarDay(now)
}

func (s *Selection) ThisWeek(now time.Time) {
	s.kind = Weekly
	s.week = domain.CalendarDay(now)
}

func (s *Selection) ThisMonth(now time.Time) {
	s.kind = Monthly
	s.month = firstOfMonth(domain.CalendarDay(now))
}

// Quick applies a named quick-select.
func (s *Selection) Quick(name string, now time.Time) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case QuickToday:
		s.Today(now)
	case QuickThisWeek:
		s.ThisWeek(now)
	case QuickThisMonth:
		s.ThisMonth(now)
	default:
		return fmt.Errorf("%w: unknown quick select %q", domain.ErrInvalidDate, name)
	}
	return nil
}

// Anchor renders the current kind's anchor in the form SetAnchor accepts.
func (s *Selection) Anchor() string {
	switch s.kind {
	case Weekly:
		return s.week.Format(domain.DateLayout)
	case Monthly:
		return s.month.Format(monthLayout)
	case Range:
		return s.from.Format(domain.DateLayout) + ".." + s.to.Format(domain.DateLayout)
	default:
		return s.day.Format(domain.DateLayout)
	}
}

func (s *Selection) Range() domain.DateRange {
	switch s.kind {
	case Weekly:
		return Week(s.week)
	case Monthly:
		return Month(s.month.Year(), s.month.Month())
	case Range:
		return domain.DateRange{Start: s.from, End: s.to}
	default:
		return Day(s.day)
	}
}

func firstOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}
