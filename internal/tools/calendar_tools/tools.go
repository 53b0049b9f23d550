package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/groupcal/internal/calendar"
	"github.com/teemow/groupcal/internal/server"
	"github.com/teemow/groupcal/internal/syncer"
	"github.com/teemow/groupcal/internal/view"
)

// Tool names.
const (
	ToolListEvents  = "group_calendar_list_events"
	ToolGetEvent    = "group_calendar_get_event"
	ToolStatus      = "group_calendar_status"
	ToolExport      = "group_calendar_export_ics"
	ToolSaveEvent   = "group_calendar_save_event"
	ToolDeleteEvent = "group_calendar_delete_event"
)

const dateLayout = "2006-01-02"

// MsgNotElevated is returned by write tools for users outside the
// authorization group.
const MsgNotElevated = "You do not have permission to edit events in this calendar."

// RegisterCalendarTools registers the calendar tools. Write tools are skipped
// when readOnly is set.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}
	registerReadTools(s, sc)
	if !readOnly {
		registerWriteTools(s, sc)
	}
	return nil
}

// ensureLoaded refreshes the controller unless it already holds a window.
func ensureLoaded(ctx context.Context, ctrl *syncer.Controller) (syncer.Snapshot, error) {
	snap := ctrl.Snapshot()
	if snap.State == syncer.StateReady {
		return snap, nil
	}
	return ctrl.Reload(ctx)
}

// errorResult turns a controller failure into a tool error carrying the
// user-facing message.
func errorResult(snap syncer.Snapshot, err error) *mcp.CallToolResult {
	msg := snap.Error
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return mcp.NewToolResultError(msg)
}

// parseDate parses a YYYY-MM-DD day in loc. An empty value is today.
func parseDate(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.In(loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func findEvent(events []calendar.Event, id string) (calendar.Event, bool) {
	for _, ev := range events {
		if ev.ID == id {
			return ev, true
		}
	}
	return calendar.Event{}, false
}

func formatItem(b *strings.Builder, it view.Item, loc *time.Location) {
	ev := it.Event
	subject := ev.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	fmt.Fprintf(b, "- %s\n", subject)
	fmt.Fprintf(b, "  ID: %s\n", ev.ID)
	fmt.Fprintf(b, "  Start: %s\n", it.Start.In(loc).Format(time.RFC3339))
	fmt.Fprintf(b, "  End: %s\n", it.End.In(loc).Format(time.RFC3339))
	if ev.Location != "" {
		fmt.Fprintf(b, "  Location: %s\n", ev.Location)
	}
	if len(ev.Attendees) > 0 {
		fmt.Fprintf(b, "  Attendees: %s\n", strings.Join(ev.AttendeeAddresses(), ", "))
	}
	if ev.IsOnlineMeeting {
		b.WriteString("  Online meeting: yes\n")
	}
}

func formatEvent(ev calendar.Event, loc *time.Location) string {
	var b strings.Builder
	items := view.Displayable([]calendar.Event{ev}, loc)
	if len(items) == 0 {
		fmt.Fprintf(&b, "- %s\n  ID: %s\n  Start: %s (%s)\n  End: %s (%s)\n",
			ev.Subject, ev.ID, ev.Start.DateTime, ev.Start.TimeZone, ev.End.DateTime, ev.End.TimeZone)
	} else {
		formatItem(&b, items[0], loc)
	}
	if ev.Body.Content != "" {
		fmt.Fprintf(&b, "  Body (%s):\n%s\n", ev.Body.ContentType, ev.Body.Content)
	}
	if ev.Sensitivity != "" {
		fmt.Fprintf(&b, "  Sensitivity: %s\n", ev.Sensitivity)
	}
	if ev.WebLink != "" {
		fmt.Fprintf(&b, "  Link: %s\n", ev.WebLink)
	}
	return b.String()
}
