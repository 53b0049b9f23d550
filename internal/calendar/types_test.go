package calendar

import (
	"testing"
	"time"
)

func TestDateTimeZone_Time(t *testing.T) {
	bangkok, _ := time.LoadLocation("Asia/Bangkok")

	tests := []struct {
		name     string
		in       DateTimeZone
		fallback *time.Location
		want     time.Time
		wantErr  bool
	}{
		{
			name:     "windows zone label",
			in:       DateTimeZone{DateTime: "2024-06-01T09:00:00.0000000", TimeZone: "SE Asia Standard Time"},
			fallback: time.UTC,
			want:     time.Date(2024, 6, 1, 9, 0, 0, 0, bangkok),
		},
		{
			name:     "empty zone uses fallback",
			in:       DateTimeZone{DateTime: "2024-06-01T09:00"},
			fallback: bangkok,
			want:     time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			name:     "unknown zone uses fallback",
			in:       DateTimeZone{DateTime: "2024-06-01T09:00:00", TimeZone: "Nowhere Standard Time"},
			fallback: time.UTC,
			want:     time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "empty date-time",
			in:      DateTimeZone{TimeZone: "UTC"},
			wantErr: true,
		},
		{
			name:    "garbage",
			in:      DateTimeZone{DateTime: "tomorrow-ish"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Time(tt.fallback)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Time() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAt(t *testing.T) {
	instant := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)

	got, err := At(instant, "SE Asia Standard Time")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DateTime != "2024-06-01T09:00:00" || got.TimeZone != "SE Asia Standard Time" {
		t.Errorf("At() = %+v", got)
	}

	if _, err := At(instant, "Atlantis"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestEvent_CloneIsDeep(t *testing.T) {
	ev := Event{ID: "e1", Attendees: []Attendee{{Address: "a@x.com", Type: AttendeeRequired}}}
	c := ev.Clone()
	c.Attendees[0].Address = "b@y.com"

	if ev.Attendees[0].Address != "a@x.com" {
		t.Error("Clone shares the attendee slice")
	}
	if got := c.AttendeeAddresses(); len(got) != 1 || got[0] != "b@y.com" {
		t.Errorf("AttendeeAddresses() = %v", got)
	}
}

func TestEvent_IsDraft(t *testing.T) {
	if !(Event{}).IsDraft() {
		t.Error("event without id should be a draft")
	}
	if (Event{ID: "x"}).IsDraft() {
		t.Error("event with id should not be a draft")
	}
}

func TestPatchFromEvent(t *testing.T) {
	ev := Event{
		Subject: "Planning",
		Start:   DateTimeZone{DateTime: "2024-06-01T09:00"},
		End:     DateTimeZone{DateTime: "2024-06-01T10:00"},
	}
	p := PatchFromEvent(ev)

	if p.IsEmpty() {
		t.Fatal("patch should not be empty")
	}
	if p.Subject == nil || *p.Subject != "Planning" {
		t.Errorf("Subject = %v", p.Subject)
	}
	if p.Start == nil || p.End == nil {
		t.Error("start and end should be supplied")
	}
	if p.Attendees == nil || len(p.Attendees) != 0 {
		t.Errorf("attendees should be supplied and empty, got %v", p.Attendees)
	}
	if p.Body != nil || p.Sensitivity != nil {
		t.Error("unset body and sensitivity should not be supplied")
	}

	ev.Subject = "Changed"
	if *p.Subject != "Planning" {
		t.Error("patch aliases the source event")
	}

	if !(Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}

func TestRemoteCallFailed_Error(t *testing.T) {
	err := &RemoteCallFailed{Status: 404, Message: "not found"}
	if err.Error() != "remote call failed (404): not found" {
		t.Errorf("Error() = %q", err.Error())
	}

	err = &RemoteCallFailed{Message: "connection refused"}
	if err.Error() != "remote call failed: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}
