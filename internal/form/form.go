// Package form mirrors a calendar event into editable text fields and turns
// them back into an event once the user submits.
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/groupcal/internal/calendar"
)

// ErrValidationRejected is returned by Submit when required fields are
// missing or malformed. It never leaves the form.
var ErrValidationRejected = errors.New("validation rejected")

// DeletePrompt is asked before a delete is dispatched.
const DeletePrompt = "Are you sure you want to delete this event?"

// Field identifies an editable field.
type Field int

const (
	FieldSubject Field = iota
	FieldStart
	FieldEnd
	FieldLocation
	FieldAttendees
	FieldBody
	FieldOnline
)

// Fields lists the editable fields in display order.
var Fields = []Field{
	FieldSubject, FieldStart, FieldEnd, FieldLocation, FieldAttendees, FieldBody, FieldOnline,
}

func (f Field) String() string {
	switch f {
	case FieldSubject:
		return "Subject"
	case FieldStart:
		return "Start Time"
	case FieldEnd:
		return "End Time"
	case FieldLocation:
		return "Location"
	case FieldAttendees:
		return "Attendees (comma-separated emails)"
	case FieldBody:
		return "Description"
	case FieldOnline:
		return "Create Teams Meeting (y/n)"
	default:
		return "unknown"
	}
}

// State is the edit form. Start and End hold minute-precision wall-clock
// text in calendar.FormLayout.
type State struct {
	ID              string
	Subject         string
	Start           string
	End             string
	TimeZone        string
	Location        string
	Attendees       string
	Body            string
	BodyType        string
	IsOnlineMeeting bool
	Sensitivity     string
	WebLink         string
	IsNew           bool
}

// FromEvent initializes a form from ev. Nothing of a previously edited event
// survives; callers re-run it whenever the selection changes.
func FromEvent(ev calendar.Event) State {
	return State{
		ID:              ev.ID,
		Subject:         ev.Subject,
		Start:           minutes(ev.Start.DateTime),
		End:             minutes(ev.End.DateTime),
		TimeZone:        ev.Start.TimeZone,
		Location:        ev.Location,
		Attendees:       strings.Join(ev.AttendeeAddresses(), ", "),
		Body:            ev.Body.Content,
		BodyType:        ev.Body.ContentType,
		IsOnlineMeeting: ev.IsOnlineMeeting,
		Sensitivity:     ev.Sensitivity,
		WebLink:         ev.WebLink,
		IsNew:           ev.IsNew,
	}
}

func minutes(s string) string {
	if len(s) > len(calendar.FormLayout) {
		return s[:len(calendar.FormLayout)]
	}
	return s
}

// Title is the heading shown above the form.
func (s State) Title() string {
	if s.ID != "" {
		return "Edit Event"
	}
	return "Create New Event"
}

// Persisted reports whether the form edits a stored event.
func (s State) Persisted() bool {
	return s.ID != ""
}

// Value returns the text of f.
func (s State) Value(f Field) string {
	switch f {
	case FieldSubject:
		return s.Subject
	case FieldStart:
		return s.Start
	case FieldEnd:
		return s.End
	case FieldLocation:
		return s.Location
	case FieldAttendees:
		return s.Attendees
	case FieldBody:
		return s.Body
	case FieldOnline:
		if s.IsOnlineMeeting {
			return "y"
		}
		return "n"
	}
	return ""
}

// Set stores v into f.
func (s *State) Set(f Field, v string) {
	switch f {
	case FieldSubject:
		s.Subject = v
	case FieldStart:
		s.Start = v
	case FieldEnd:
		s.End = v
	case FieldLocation:
		s.Location = v
	case FieldAttendees:
		s.Attendees = v
	case FieldBody:
		s.Body = v
	case FieldOnline:
		s.IsOnlineMeeting = parseBool(v)
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes":
		return true
	}
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}

// ParseAttendees splits a comma separated address list. Blank entries are
// dropped and every attendee is required.
func ParseAttendees(s string) []calendar.Attendee {
	out := []calendar.Attendee{}
	for _, part := range strings.Split(s, ",") {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		out = append(out, calendar.Attendee{Address: addr, Type: calendar.AttendeeRequired})
	}
	return out
}

// Submit validates the form and assembles the event. Subject, start and end
// are required and the end may not precede the start.
func (s State) Submit() (calendar.Event, error) {
	var missing []string
	if strings.TrimSpace(s.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(s.Start) == "" {
		missing = append(missing, "start")
	}
	if strings.TrimSpace(s.End) == "" {
		missing = append(missing, "end")
	}
	if len(missing) > 0 {
		return calendar.Event{}, fmt.Errorf("%w: %s required", ErrValidationRejected, strings.Join(missing, ", "))
	}

	start, err := calendar.ParseWallClock(s.Start, time.UTC)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("%w: start: %w", ErrValidationRejected, err)
	}
	end, err := calendar.ParseWallClock(s.End, time.UTC)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("%w: end: %w", ErrValidationRejected, err)
	}
	if end.Before(start) {
		return calendar.Event{}, fmt.Errorf("%w: end is before start", ErrValidationRejected)
	}

	ev := calendar.Event{
		ID:              s.ID,
		Subject:         strings.TrimSpace(s.Subject),
		Start:           calendar.DateTimeZone{DateTime: strings.TrimSpace(s.Start), TimeZone: s.TimeZone},
		End:             calendar.DateTimeZone{DateTime: strings.TrimSpace(s.End), TimeZone: s.TimeZone},
		Location:        strings.TrimSpace(s.Location),
		Attendees:       ParseAttendees(s.Attendees),
		IsOnlineMeeting: s.IsOnlineMeeting,
		Sensitivity:     s.Sensitivity,
		WebLink:         s.WebLink,
		IsNew:           s.IsNew,
	}
	if s.Body != "" || s.BodyType != "" {
		ct := s.BodyType
		if ct == "" {
			ct = calendar.ContentTypeText
		}
		ev.Body = calendar.Body{Content: s.Body, ContentType: ct}
	}
	return ev, nil
}

// ConfirmDelete asks confirm with DeletePrompt and returns the id to delete.
// Drafts have nothing to delete.
func ConfirmDelete(s State, confirm func(prompt string) bool) (string, bool) {
	if !s.Persisted() {
		return "", false
	}
	if confirm == nil || !confirm(DeletePrompt) {
		return "", false
	}
	return s.ID, true
}
