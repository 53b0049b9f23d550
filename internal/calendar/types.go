package calendar

import (
	"fmt"
	"time"
)

// Attendee types.
const (
	AttendeeRequired = "required"
	AttendeeOptional = "optional"
)

// Body content types.
const (
	ContentTypeText = "text"
	ContentTypeHTML = "html"
)

// Sensitivity values as used by Graph.
const (
	SensitivityNormal       = "normal"
	SensitivityPersonal     = "personal"
	SensitivityPrivate      = "private"
	SensitivityConfidential = "confidential"
)

// DateTimeZone is a wall-clock timestamp paired with the label of the zone it
// is expressed in, e.g. {"2024-06-01T09:00:00", "SE Asia Standard Time"}.
type DateTimeZone struct {
	DateTime string
	TimeZone string
}

// IsZero reports whether no timestamp is set.
func (d DateTimeZone) IsZero() bool {
	return d.DateTime == ""
}

// Time resolves the wall-clock timestamp to an instant. The zone label is
// resolved with LoadLocation; when it is empty or unknown, fallback is used.
func (d DateTimeZone) Time(fallback *time.Location) (time.Time, error) {
	if d.DateTime == "" {
		return time.Time{}, fmt.Errorf("empty date-time")
	}
	loc := fallback
	if d.TimeZone != "" {
		if l, err := LoadLocation(d.TimeZone); err == nil {
			loc = l
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return ParseWallClock(d.DateTime, loc)
}

// At returns the wall-clock representation of t in the given zone label.
func At(t time.Time, zone string) (DateTimeZone, error) {
	loc, err := LoadLocation(zone)
	if err != nil {
		return DateTimeZone{}, err
	}
	return DateTimeZone{
		DateTime: t.In(loc).Format(WallClockLayout),
		TimeZone: zone,
	}, nil
}

// Attendee is an event participant.
type Attendee struct {
	Address string
	Type    string
}

// Body is the event description.
type Body struct {
	Content     string
	ContentType string
}

// Event is a group calendar event. An event without an ID is a draft that has
// not been persisted yet.
type Event struct {
	ID              string
	Subject         string
	Start           DateTimeZone
	End             DateTimeZone
	Location        string
	Attendees       []Attendee
	Body            Body
	IsOnlineMeeting bool
	Sensitivity     string
	WebLink         string

	// IsNew marks a draft created from a slot selection. It only drives
	// highlighting and is never sent to Graph.
	IsNew bool
}

// IsDraft reports whether the event has not been persisted.
func (e Event) IsDraft() bool {
	return e.ID == ""
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	c := e
	if e.Attendees != nil {
		c.Attendees = make([]Attendee, len(e.Attendees))
		copy(c.Attendees, e.Attendees)
	}
	return c
}

// AttendeeAddresses returns the attendee email addresses in order.
func (e Event) AttendeeAddresses() []string {
	out := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		out = append(out, a.Address)
	}
	return out
}

// Patch is a partial update. Nil fields are not sent. A nil Attendees slice
// leaves attendees untouched; an empty non-nil slice clears them.
type Patch struct {
	Subject         *string
	Start           *DateTimeZone
	End             *DateTimeZone
	Location        *string
	Attendees       []Attendee
	Body            *Body
	IsOnlineMeeting *bool
	Sensitivity     *string
}

// IsEmpty reports whether the patch carries no field at all.
func (p Patch) IsEmpty() bool {
	return p.Subject == nil && p.Start == nil && p.End == nil && p.Location == nil &&
		p.Attendees == nil && p.Body == nil && p.IsOnlineMeeting == nil && p.Sensitivity == nil
}

// PatchFromEvent builds a patch that supplies every editable field of ev.
func PatchFromEvent(ev Event) Patch {
	p := Patch{
		Subject:         &ev.Subject,
		Location:        &ev.Location,
		IsOnlineMeeting: &ev.IsOnlineMeeting,
		Attendees:       make([]Attendee, len(ev.Attendees)),
	}
	copy(p.Attendees, ev.Attendees)
	if !ev.Start.IsZero() {
		start := ev.Start
		p.Start = &start
	}
	if !ev.End.IsZero() {
		end := ev.End
		p.End = &end
	}
	if ev.Body.Content != "" || ev.Body.ContentType != "" {
		body := ev.Body
		p.Body = &body
	}
	if ev.Sensitivity != "" {
		s := ev.Sensitivity
		p.Sensitivity = &s
	}
	return p
}

// RemoteCallFailed is returned for every non-success response from Graph.
type RemoteCallFailed struct {
	Status  int
	Message string
}

func (e *RemoteCallFailed) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote call failed: %s", e.Message)
	}
	return fmt.Sprintf("remote call failed (%d): %s", e.Status, e.Message)
}
