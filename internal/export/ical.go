// Package export writes calendar events as iCalendar.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/teemow/groupcal/internal/calendar"
)

// ProductID identifies groupcal in exported calendars.
const ProductID = "-//groupcal//EN"

// Options configures an export.
type Options struct {
	// Location resolves events without a zone label.
	Location *time.Location
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
	// Name is written as X-WR-CALNAME when set.
	Name string
}

// PropCalendarName is the calendar display name understood by most clients.
const PropCalendarName = "X-WR-CALNAME"

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// Calendar builds a VCALENDAR holding one VEVENT per event. Drafts and events
// without a resolvable start or end are skipped; the number of skipped events
// is returned.
func Calendar(events []calendar.Event, opts Options) (*ical.Calendar, int) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now().UTC()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	if opts.Name != "" {
		// written without a VALUE parameter, unlike SetText
		name := ical.NewProp(PropCalendarName)
		name.Value = textEscaper.Replace(opts.Name)
		cal.Props.Set(name)
	}

	skipped := 0
	for _, ev := range events {
		ve, err := component(ev, opts.Location, stamp)
		if err != nil {
			skipped++
			continue
		}
		cal.Children = append(cal.Children, ve)
	}
	return cal, skipped
}

// Write encodes events to w.
func Write(w io.Writer, events []calendar.Event, opts Options) (int, error) {
	cal, skipped := Calendar(events, opts)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return skipped, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return skipped, nil
}

func component(ev calendar.Event, loc *time.Location, stamp time.Time) (*ical.Component, error) {
	if ev.IsDraft() {
		return nil, fmt.Errorf("event is not persisted")
	}
	start, err := ev.Start.Time(loc)
	if err != nil {
		return nil, err
	}
	end, err := ev.End.Time(loc)
	if err != nil {
		return nil, err
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, ev.ID)
	ve.Props.SetText(ical.PropSummary, ev.Subject)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())

	if ev.Location != "" {
		ve.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Body.Content != "" {
		ve.Props.SetText(ical.PropDescription, ev.Body.Content)
	}
	if ev.WebLink != "" {
		p := ical.NewProp(ical.PropURL)
		p.Value = ev.WebLink
		ve.Props.Set(p)
	}
	if class := classOf(ev.Sensitivity); class != "" {
		ve.Props.SetText(ical.PropClass, class)
	}
	for _, a := range ev.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.Value = "mailto:" + a.Address
		role := "REQ-PARTICIPANT"
		if strings.EqualFold(a.Type, calendar.AttendeeOptional) {
			role = "OPT-PARTICIPANT"
		}
		p.Params.Set("ROLE", role)
		ve.Props.Add(p)
	}
	return ve, nil
}

func classOf(sensitivity string) string {
	switch strings.ToLower(sensitivity) {
	case calendar.SensitivityNormal:
		return "PUBLIC"
	case calendar.SensitivityPrivate, calendar.SensitivityPersonal:
		return "PRIVATE"
	case calendar.SensitivityConfidential:
		return "CONFIDENTIAL"
	}
	return ""
}
