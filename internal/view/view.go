// Package view arranges calendar events into month, week and day layouts and
// renders them for the terminal.
package view

import (
	"sort"
	"time"

	"github.com/teemow/groupcal/internal/calendar"
)

// Mode is the calendar layout.
type Mode int

const (
	ModeMonth Mode = iota
	ModeWeek
	ModeDay
)

func (m Mode) String() string {
	switch m {
	case ModeMonth:
		return "month"
	case ModeWeek:
		return "week"
	case ModeDay:
		return "day"
	default:
		return "unknown"
	}
}

// Next cycles month, week, day.
func (m Mode) Next() Mode {
	return (m + 1) % 3
}

// ParseMode maps a name to a Mode. Unknown names yield ModeMonth and false.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "month", "":
		return ModeMonth, true
	case "week":
		return ModeWeek, true
	case "day":
		return ModeDay, true
	}
	return ModeMonth, false
}

// Item is an event with resolved start and end instants.
type Item struct {
	Event calendar.Event
	Start time.Time
	End   time.Time
}

// Highlight reports whether the item is a draft that has not been saved yet.
func (i Item) Highlight() bool {
	return i.Event.IsNew
}

// Displayable resolves every event in loc and drops the ones whose start or
// end cannot be resolved. The result is ordered by start.
func Displayable(events []calendar.Event, loc *time.Location) []Item {
	out := make([]Item, 0, len(events))
	for _, ev := range events {
		start, err := ev.Start.Time(loc)
		if err != nil {
			continue
		}
		end, err := ev.End.Time(loc)
		if err != nil {
			continue
		}
		out = append(out, Item{Event: ev, Start: start.In(loc), End: end.In(loc)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// WithDraft places an unsaved draft among items so it can be drawn next to
// the events around it. Persisted events and unresolvable drafts leave items
// unchanged.
func WithDraft(items []Item, draft *calendar.Event, loc *time.Location) []Item {
	if draft == nil || !draft.IsNew {
		return items
	}
	drafted := Displayable([]calendar.Event{*draft}, loc)
	if len(drafted) == 0 {
		return items
	}
	out := make([]Item, 0, len(items)+1)
	out = append(out, items...)
	out = append(out, drafted[0])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Day is one cell of a layout.
type Day struct {
	Date    time.Time
	InFocus bool
	Items   []Item
}

// Layout is a run of days with their events.
type Layout struct {
	Mode   Mode
	Anchor time.Time
	Days   []Day
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Range returns the days covered by mode around anchor. Months span whole
// weeks starting on Sunday.
func Range(mode Mode, anchor time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	day := midnight(anchor, loc)
	switch mode {
	case ModeDay:
		return day, day.AddDate(0, 0, 1)
	case ModeWeek:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7)
	default:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		start := first.AddDate(0, 0, -int(first.Weekday()))
		last := first.AddDate(0, 1, 0)
		end := last.AddDate(0, 0, (7-int(last.Weekday()))%7)
		return start, end
	}
}

// BuildLayout places items on every day of the range they overlap.
func BuildLayout(items []Item, mode Mode, anchor time.Time, loc *time.Location) Layout {
	if loc == nil {
		loc = time.UTC
	}
	start, end := Range(mode, anchor, loc)
	anchor = anchor.In(loc)

	l := Layout{Mode: mode, Anchor: anchor}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		next := d.AddDate(0, 0, 1)
		day := Day{Date: d, InFocus: mode != ModeMonth || d.Month() == anchor.Month()}
		for _, it := range items {
			if it.Start.Before(next) && (it.End.After(d) || (it.End.Equal(it.Start) && !it.Start.Before(d))) {
				day.Items = append(day.Items, it)
			}
		}
		l.Days = append(l.Days, day)
	}
	return l
}

// Day returns the layout cell for t, if it is part of the layout.
func (l Layout) Day(t time.Time) (Day, bool) {
	for _, d := range l.Days {
		y1, m1, d1 := d.Date.Date()
		y2, m2, d2 := t.In(d.Date.Location()).Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			return d, true
		}
	}
	return Day{}, false
}
