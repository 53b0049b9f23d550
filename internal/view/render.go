package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Padding(0, 1)

	weekdayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(cellWidth).
			Align(lipgloss.Center)

	dayStyle      = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center)
	cursorStyle   = dayStyle.Background(lipgloss.Color("170")).Foreground(lipgloss.Color("15"))
	todayStyle    = dayStyle.Bold(true).Foreground(lipgloss.Color("39"))
	outsideStyle  = dayStyle.Foreground(lipgloss.Color("240"))
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	newMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(15)
	subjectStyle  = lipgloss.NewStyle()
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	newStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

const cellWidth = 7

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Title is the heading for the layout.
func (l Layout) Title() string {
	switch l.Mode {
	case ModeWeek:
		if len(l.Days) == 0 {
			return ""
		}
		first, last := l.Days[0].Date, l.Days[len(l.Days)-1].Date
		return fmt.Sprintf("Week of %s - %s", first.Format("Jan 2"), last.Format("Jan 2, 2006"))
	case ModeDay:
		return l.Anchor.Format("Monday, January 2, 2006")
	default:
		return l.Anchor.Format("January 2006")
	}
}

// RenderMonth draws the month grid. The cursor day is inverted, today is
// bold, and days with events carry a marker; an orange marker means a new
// draft lies on that day.
func RenderMonth(l Layout, cursor, today time.Time) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(l.Title()))
	b.WriteString("\n\n")
	for _, d := range weekdays {
		b.WriteString(weekdayStyle.Render(d))
	}
	b.WriteString("\n")

	for i, day := range l.Days {
		content := fmt.Sprintf("%2d", day.Date.Day())
		switch {
		case hasNew(day):
			content += newMarkStyle.Render("•")
		case len(day.Items) > 0:
			content += markerStyle.Render("•")
		default:
			content += " "
		}

		style := dayStyle
		switch {
		case sameDay(day.Date, cursor):
			style = cursorStyle
		case sameDay(day.Date, today):
			style = todayStyle
		case !day.InFocus:
			style = outsideStyle
		}
		b.WriteString(style.Render(content))

		if i%7 == 6 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func hasNew(d Day) bool {
	for _, it := range d.Items {
		if it.Highlight() {
			return true
		}
	}
	return false
}

// RenderAgenda lists the events of every day in the layout. selected is the
// index of the highlighted event within the cursor day, or -1.
func RenderAgenda(l Layout, cursor time.Time, selected int) string {
	var b strings.Builder

	if l.Mode != ModeMonth {
		b.WriteString(headerStyle.Render(l.Title()))
		b.WriteString("\n\n")
	}

	days := l.Days
	if l.Mode == ModeMonth {
		if d, ok := l.Day(cursor); ok {
			days = []Day{d}
		} else {
			days = nil
		}
	}

	for _, day := range days {
		b.WriteString(headerStyle.Render(day.Date.Format("Mon, Jan 2")))
		b.WriteString("\n")
		if len(day.Items) == 0 {
			b.WriteString(mutedStyle.Render("  No events"))
			b.WriteString("\n")
			continue
		}
		for i, it := range day.Items {
			isSel := sameDay(day.Date, cursor) && i == selected
			b.WriteString(RenderItem(it, isSel))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderItem draws one event line.
func RenderItem(it Item, selected bool) string {
	prefix := "  "
	if selected {
		prefix = "> "
	}
	span := fmt.Sprintf("%s - %s", it.Start.Format("15:04"), it.End.Format("15:04"))

	subject := it.Event.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	style := subjectStyle
	switch {
	case it.Highlight():
		style = newStyle
		subject += " (new)"
	case selected:
		style = selectedStyle
	}

	line := prefix + timeStyle.Render(span) + style.Render(subject)
	if it.Event.Location != "" {
		line += mutedStyle.Render("  @ " + it.Event.Location)
	}
	return line
}
