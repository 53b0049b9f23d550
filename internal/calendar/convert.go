package calendar

import (
	"fmt"
	"strings"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
)

// eventSelect is the field projection requested when listing events.
var eventSelect = []string{
	"id", "subject", "body", "start", "end", "location",
	"attendees", "isOnlineMeeting", "sensitivity", "webLink",
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fromGraphDateTime(d models.DateTimeTimeZoneable) DateTimeZone {
	if d == nil {
		return DateTimeZone{}
	}
	return DateTimeZone{
		DateTime: deref(d.GetDateTime()),
		TimeZone: deref(d.GetTimeZone()),
	}
}

// fromGraph maps a Graph event to the local representation. Missing fields
// are left at their zero value.
func fromGraph(ev models.Eventable) Event {
	if ev == nil {
		return Event{}
	}

	out := Event{
		ID:      deref(ev.GetId()),
		Subject: deref(ev.GetSubject()),
		Start:   fromGraphDateTime(ev.GetStart()),
		End:     fromGraphDateTime(ev.GetEnd()),
		WebLink: deref(ev.GetWebLink()),
	}
	if loc := ev.GetLocation(); loc != nil {
		out.Location = deref(loc.GetDisplayName())
	}
	if online := ev.GetIsOnlineMeeting(); online != nil {
		out.IsOnlineMeeting = *online
	}
	if s := ev.GetSensitivity(); s != nil {
		out.Sensitivity = s.String()
	}
	if b := ev.GetBody(); b != nil {
		out.Body.Content = deref(b.GetContent())
		if ct := b.GetContentType(); ct != nil {
			out.Body.ContentType = ct.String()
		}
	}
	for _, a := range ev.GetAttendees() {
		if a == nil {
			continue
		}
		att := Attendee{Type: AttendeeRequired}
		if email := a.GetEmailAddress(); email != nil {
			att.Address = deref(email.GetAddress())
		}
		if t := a.GetTypeEscaped(); t != nil {
			att.Type = t.String()
		}
		out.Attendees = append(out.Attendees, att)
	}
	return out
}

func toGraphDateTime(d DateTimeZone) models.DateTimeTimeZoneable {
	out := models.NewDateTimeTimeZone()
	dt, tz := d.DateTime, d.TimeZone
	out.SetDateTime(&dt)
	out.SetTimeZone(&tz)
	return out
}

func toGraphAttendees(in []Attendee) []models.Attendeeable {
	out := make([]models.Attendeeable, 0, len(in))
	for _, a := range in {
		addr := a.Address
		email := models.NewEmailAddress()
		email.SetAddress(&addr)

		att := models.NewAttendee()
		att.SetEmailAddress(email)
		typ := models.REQUIRED_ATTENDEETYPE
		if strings.EqualFold(a.Type, AttendeeOptional) {
			typ = models.OPTIONAL_ATTENDEETYPE
		}
		att.SetTypeEscaped(&typ)
		out = append(out, att)
	}
	return out
}

func toGraphBody(b Body) models.ItemBodyable {
	out := models.NewItemBody()
	content := b.Content
	out.SetContent(&content)
	ct := models.TEXT_BODYTYPE
	if strings.EqualFold(b.ContentType, ContentTypeHTML) {
		ct = models.HTML_BODYTYPE
	}
	out.SetContentType(&ct)
	return out
}

func toGraphLocation(name string) models.Locationable {
	loc := models.NewLocation()
	loc.SetDisplayName(&name)
	return loc
}

func toGraphSensitivity(s string) (*models.Sensitivity, error) {
	var v models.Sensitivity
	switch strings.ToLower(s) {
	case SensitivityNormal:
		v = models.NORMAL_SENSITIVITY
	case SensitivityPersonal:
		v = models.PERSONAL_SENSITIVITY
	case SensitivityPrivate:
		v = models.PRIVATE_SENSITIVITY
	case SensitivityConfidential:
		v = models.CONFIDENTIAL_SENSITIVITY
	default:
		return nil, fmt.Errorf("unknown sensitivity %q", s)
	}
	return &v, nil
}

// toGraphEvent builds the request body for a create. start and end must
// already be stamped with the configured zone.
func toGraphEvent(ev Event) (models.Eventable, error) {
	out := models.NewEvent()
	subject := ev.Subject
	out.SetSubject(&subject)
	out.SetStart(toGraphDateTime(ev.Start))
	out.SetEnd(toGraphDateTime(ev.End))
	if ev.Location != "" {
		out.SetLocation(toGraphLocation(ev.Location))
	}
	if len(ev.Attendees) > 0 {
		out.SetAttendees(toGraphAttendees(ev.Attendees))
	}
	if ev.Body.Content != "" {
		out.SetBody(toGraphBody(ev.Body))
	}
	online := ev.IsOnlineMeeting
	out.SetIsOnlineMeeting(&online)
	if ev.Sensitivity != "" {
		s, err := toGraphSensitivity(ev.Sensitivity)
		if err != nil {
			return nil, err
		}
		out.SetSensitivity(s)
	}
	return out, nil
}

// toGraphPatch builds a sparse request body holding only the supplied fields.
func toGraphPatch(p Patch) (models.Eventable, error) {
	out := models.NewEvent()
	if p.Subject != nil {
		subject := *p.Subject
		out.SetSubject(&subject)
	}
	if p.Start != nil {
		out.SetStart(toGraphDateTime(*p.Start))
	}
	if p.End != nil {
		out.SetEnd(toGraphDateTime(*p.End))
	}
	if p.Location != nil {
		out.SetLocation(toGraphLocation(*p.Location))
	}
	if p.Attendees != nil {
		out.SetAttendees(toGraphAttendees(p.Attendees))
	}
	if p.Body != nil {
		out.SetBody(toGraphBody(*p.Body))
	}
	if p.IsOnlineMeeting != nil {
		online := *p.IsOnlineMeeting
		out.SetIsOnlineMeeting(&online)
	}
	if p.Sensitivity != nil {
		s, err := toGraphSensitivity(*p.Sensitivity)
		if err != nil {
			return nil, err
		}
		out.SetSensitivity(s)
	}
	return out, nil
}
