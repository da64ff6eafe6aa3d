package services

import (
	"fmt"
	"time"

	"pnl/internal/core"
)

// SlicePeriods tiles [from, to] with consecutive periods of the given
// grouping. from is moved to the start of its day and to to the end of its
// day; reversed bounds are swapped. The first and last periods are clamped
// to the range, so periods never overlap and leave no gaps. Ranges needing
// more than core.MaxPeriods periods fail with core.ErrRangeTooLarge before
// anything is allocated.
func SlicePeriods(from, to time.Time, g core.Grouping) ([]core.Period, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidGrouping, g)
	}
	if from.After(to) {
		from, to = to, from
	}
	from = startOfDay(from)
	to = endOfDay(to)

	n := countPeriods(from, to, g)
	if n > core.MaxPeriods {
		return nil, fmt.Errorf("%w: %d %s periods, at most %d allowed", core.ErrRangeTooLarge, n, g, core.MaxPeriods)
	}

	periods := make([]core.Period, 0, n)
	for cursor := from; !cursor.After(to); {
		end := periodEnd(cursor, g)
		if end.After(to) {
			end = to
		}
		periods = append(periods, newPeriod(cursor, end, g))
		cursor = startOfDay(end).AddDate(0, 0, 1)
	}
	return periods, nil
}

// AggregatePeriod is the single period covering [from, to] after the same
// normalisation SlicePeriods applies.
func AggregatePeriod(from, to time.Time) core.Period {
	if from.After(to) {
		from, to = to, from
	}
	from = startOfDay(from)
	to = endOfDay(to)
	return core.Period{
		ID:    from.Format(dayLayout) + "_" + to.Format(dayLayout),
		Label: from.Format(dayLayout) + " — " + to.Format(dayLayout),
		From:  from,
		To:    to,
	}
}

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// countPeriods is the number of periods SlicePeriods yields for an already
// normalised range. Day counts saturate for ranges beyond time.Duration.
func countPeriods(from, to time.Time, g core.Grouping) int {
	switch g {
	case core.GroupByMonth:
		return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
	case core.GroupByWeek:
		sinceMonday := (int(from.Weekday()) + 6) % 7
		return (sinceMonday+days(from, to)-1)/7 + 1
	default:
		return days(from, to)
	}
}

// days counts the calendar days touched by [from, to].
func days(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours()/24) + 1
}

func periodEnd(cursor time.Time, g core.Grouping) time.Time {
	switch g {
	case core.GroupByWeek:
		// ISO weeks run Monday to Sunday.
		daysToSunday := (7 - int(cursor.Weekday())) % 7
		return endOfDay(cursor.AddDate(0, 0, daysToSunday))
	case core.GroupByMonth:
		first := time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, cursor.Location())
		return endOfDay(first.AddDate(0, 1, -1))
	default:
		return endOfDay(cursor)
	}
}

func newPeriod(from, to time.Time, g core.Grouping) core.Period {
	p := core.Period{From: from, To: to}
	switch g {
	case core.GroupByWeek:
		year, week := from.ISOWeek()
		p.ID = fmt.Sprintf("%04d-W%02d", year, week)
		p.Label = fmt.Sprintf("week %d (%s — %s)", week, from.Format(dayLayout), to.Format(dayLayout))
	case core.GroupByMonth:
		p.ID = from.Format(monthLayout)
		p.Label = from.Format(monthLayout)
	default:
		p.ID = from.Format(dayLayout)
		p.Label = from.Format(dayLayout)
	}
	return p
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
