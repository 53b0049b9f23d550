package calendar_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/groupcal/internal/form"
	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/server"
	"github.com/teemow/groupcal/internal/syncer"
	"github.com/teemow/groupcal/internal/tools/common"
)

func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	saveEventTool := mcp.NewTool(ToolSaveEvent,
		mcp.WithDescription("Create a group calendar event, or update one when id is given. Times are wall-clock in the calendar's time zone."),
		mcp.WithString("id",
			mcp.Description("ID of the event to update. Omit to create a new event."),
		),
		mcp.WithString("subject",
			mcp.Description("Event subject. Required when creating."),
		),
		mcp.WithString("start",
			mcp.Description("Start time (YYYY-MM-DDTHH:MM). Required when creating."),
		),
		mcp.WithString("end",
			mcp.Description("End time (YYYY-MM-DDTHH:MM). Required when creating."),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses. An empty string removes all attendees."),
		),
		mcp.WithString("body",
			mcp.Description("Plain text description"),
		),
		mcp.WithBoolean("online",
			mcp.Description("Create an online meeting for the event"),
		),
	)
	s.AddTool(saveEventTool, common.InstrumentedToolHandler(ToolSaveEvent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveEvent(ctx, request, sc)
		}))

	deleteEventTool := mcp.NewTool(ToolDeleteEvent,
		mcp.WithDescription("Delete a group calendar event"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The ID of the event to delete"),
		),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true. Answers: "+form.DeletePrompt),
		),
	)
	s.AddTool(deleteEventTool, common.InstrumentedEventToolHandler(ToolDeleteEvent, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteEvent(ctx, request, sc)
		}))
}

// requireElevated loads the current window so the role is known and rejects
// users outside the authorization group.
func requireElevated(ctx context.Context, ctrl *syncer.Controller) (syncer.Snapshot, *mcp.CallToolResult) {
	snap, err := ensureLoaded(ctx, ctrl)
	if err != nil {
		return snap, errorResult(snap, err)
	}
	if !snap.Elevated {
		return snap, mcp.NewToolResultError(MsgNotElevated)
	}
	return snap, nil
}

// fillForm builds the form for the request, starting from the stored event
// when id is given. Arguments that are absent leave the field as it was.
func fillForm(args map[string]any, snap syncer.Snapshot, zone string) (form.State, error) {
	var st form.State
	if id, _ := common.OptionalString(args, "id"); id != "" {
		ev, ok := findEvent(snap.Events, id)
		if !ok {
			return form.State{}, fmt.Errorf("event %s is not in the loaded month", id)
		}
		st = form.FromEvent(ev)
	} else {
		st = form.State{TimeZone: zone, IsNew: true}
	}

	fields := []struct {
		key   string
		field form.Field
	}{
		{"subject", form.FieldSubject},
		{"start", form.FieldStart},
		{"end", form.FieldEnd},
		{"location", form.FieldLocation},
		{"attendees", form.FieldAttendees},
		{"body", form.FieldBody},
	}
	for _, f := range fields {
		if v, ok := common.OptionalString(args, f.key); ok {
			st.Set(f.field, v)
		}
	}
	if v, ok := common.OptionalBool(args, "online"); ok {
		st.IsOnlineMeeting = v
	}
	return st, nil
}

func handleSaveEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ctrl := sc.Controller()
	snap, denied := requireElevated(ctx, ctrl)
	if denied != nil {
		return denied, nil
	}

	st, err := fillForm(request.GetArguments(), snap, ctrl.TimeZone())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev, err := st.Submit()
	if errors.Is(err, form.ErrValidationRejected) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return nil, err
	}

	saved, err := ctrl.SaveEvent(ctx, ev)
	if err != nil {
		return errorResult(ctrl.Snapshot(), err), nil
	}

	verb := "Created"
	if st.Persisted() {
		verb = "Updated"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s event:\n%s", verb, formatEvent(saved, ctrl.Location()))), nil
}

func handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, err := common.RequiredString(args, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctrl := sc.Controller()
	if _, denied := requireElevated(ctx, ctrl); denied != nil {
		return denied, nil
	}

	confirmed, _ := common.OptionalBool(args, "confirm")
	target, ok := form.ConfirmDelete(form.State{ID: id}, func(string) bool { return confirmed })
	if !ok {
		return mcp.NewToolResultError("Deletion not confirmed. Set confirm to true to delete the event."), nil
	}

	if err := ctrl.DeleteEvent(ctx, target); err != nil {
		return errorResult(ctrl.Snapshot(), err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted event %s", target)), nil
}
