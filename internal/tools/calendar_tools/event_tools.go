package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/groupcal/internal/export"
	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/server"
	"github.com/teemow/groupcal/internal/syncer"
	"github.com/teemow/groupcal/internal/tools/common"
	"github.com/teemow/groupcal/internal/view"
)

func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listEventsTool := mcp.NewTool(ToolListEvents,
		mcp.WithDescription("List group calendar events for a month, week or day"),
		mcp.WithString("view",
			mcp.Description("Range to list: 'month' (default), 'week' or 'day'"),
			mcp.Enum("month", "week", "day"),
		),
		mcp.WithString("date",
			mcp.Description("Day inside the range (YYYY-MM-DD). Defaults to today."),
		),
	)
	s.AddTool(listEventsTool, common.InstrumentedEventToolHandler(ToolListEvents, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	getEventTool := mcp.NewTool(ToolGetEvent,
		mcp.WithDescription("Get the details of an event in the loaded month"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The ID of the event"),
		),
	)
	s.AddTool(getEventTool, common.InstrumentedToolHandler(ToolGetEvent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEvent(ctx, request, sc)
		}))

	statusTool := mcp.NewTool(ToolStatus,
		mcp.WithDescription("Show the signed-in user, the loaded window and whether events can be edited"),
	)
	s.AddTool(statusTool, common.InstrumentedToolHandler(ToolStatus, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleStatus(ctx, request, sc)
		}))

	exportTool := mcp.NewTool(ToolExport,
		mcp.WithDescription("Export the events of a month as an iCalendar (RFC 5545) document"),
		mcp.WithString("date",
			mcp.Description("Day inside the month to export (YYYY-MM-DD). Defaults to today."),
		),
	)
	s.AddTool(exportTool, common.InstrumentedToolHandler(ToolExport, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleExport(ctx, request, sc)
		}))
}

// loadMonth loads the month containing the "date" argument and returns the
// state of that load.
func loadMonth(ctx context.Context, args map[string]any, sc *server.ServerContext) (time.Time, syncer.Snapshot, *mcp.CallToolResult) {
	ctrl := sc.Controller()
	dateStr, _ := common.OptionalString(args, "date")
	anchor, err := parseDate(dateStr, ctrl.Now(), ctrl.Location())
	if err != nil {
		return time.Time{}, syncer.Snapshot{}, mcp.NewToolResultError(err.Error())
	}

	snap, err := ctrl.Load(ctx, anchor)
	if err != nil {
		return time.Time{}, snap, errorResult(snap, err)
	}
	return anchor, snap, nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	mode := view.ModeMonth
	if v, ok := common.OptionalString(args, "view"); ok && v != "" {
		m, ok := view.ParseMode(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid view %q, expected month, week or day", v)), nil
		}
		mode = m
	}

	anchor, snap, failed := loadMonth(ctx, args, sc)
	if failed != nil {
		return failed, nil
	}

	loc := sc.Controller().Location()
	layout := view.BuildLayout(view.Displayable(snap.Events, loc), mode, anchor, loc)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", layout.Title())
	count := 0
	seen := map[string]bool{}
	for _, day := range layout.Days {
		if !day.InFocus || len(day.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", day.Date.Format("Monday, January 2"))
		for _, it := range day.Items {
			formatItem(&b, it, loc)
			if !seen[it.Event.ID] {
				seen[it.Event.ID] = true
				count++
			}
		}
	}
	if count == 0 {
		b.WriteString("\nNo events\n")
	}
	if snap.Error != "" {
		fmt.Fprintf(&b, "\nWarning: %s\n", snap.Error)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Found %d events. %s", count, b.String())), nil
}

func handleGetEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, err := common.RequiredString(request.GetArguments(), "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctrl := sc.Controller()
	snap, err := ensureLoaded(ctx, ctrl)
	if err != nil {
		return errorResult(snap, err), nil
	}
	ev, ok := findEvent(snap.Events, id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("event %s is not in the loaded month (%s)",
			id, snap.Window.Start.Format("January 2006"))), nil
	}
	return mcp.NewToolResultText(formatEvent(ev, ctrl.Location())), nil
}

func handleStatus(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	snap := sc.Controller().Snapshot()

	var b strings.Builder
	if user := sc.User(ctx); user != "" {
		fmt.Fprintf(&b, "Signed in as: %s\n", user)
	} else {
		b.WriteString("Signed in as: nobody\n")
	}
	fmt.Fprintf(&b, "State: %s\n", snap.State)
	if !snap.Window.Start.IsZero() {
		fmt.Fprintf(&b, "Window: %s to %s\n",
			snap.Window.Start.Format(dateLayout), snap.Window.End.Format(dateLayout))
		fmt.Fprintf(&b, "Events: %d\n", len(snap.Events))
	}
	fmt.Fprintf(&b, "Can edit: %t\n", snap.Elevated && !sc.ReadOnly())
	if sc.ReadOnly() {
		b.WriteString("Server mode: read-only\n")
	}
	if snap.Error != "" {
		fmt.Fprintf(&b, "Message: %s\n", snap.Error)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleExport(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	_, snap, failed := loadMonth(ctx, request.GetArguments(), sc)
	if failed != nil {
		return failed, nil
	}

	ctrl := sc.Controller()
	var b strings.Builder
	skipped, err := export.Write(&b, snap.Events, export.Options{
		Location: ctrl.Location(),
		Now:      ctrl.Now,
		Name:     "Group calendar " + snap.Window.Start.Format("January 2006"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode calendar: %v", err)), nil
	}
	if skipped > 0 {
		sc.Logger().WarnContext(ctx, "events skipped during export", "skipped", skipped)
	}
	return mcp.NewToolResultText(b.String()), nil
}
