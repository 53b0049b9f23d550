// Package syncer holds the authoritative event collection for the viewing
// window and runs every read and write against the group calendar.
//
// Operations are serialized: at most one refresh, save or delete is in flight
// at a time. Reads of the state through Snapshot never block on an operation.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/groupcal/internal/calendar"
	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/logging"
	"github.com/teemow/groupcal/internal/session"
)

// TokenSource returns an access token for the current user.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// AccountSource is implemented by token sources that know the signed-in user.
type AccountSource interface {
	Account(ctx context.Context) (session.Account, error)
}

// RoleResolver recomputes whether the user may edit.
type RoleResolver interface {
	Resolve(ctx context.Context, token string) (bool, error)
}

// Remote is the group calendar.
type Remote interface {
	ListEvents(ctx context.Context, token string, start, end time.Time) ([]calendar.Event, error)
	CreateEvent(ctx context.Context, token string, draft calendar.Event) (calendar.Event, error)
	UpdateEvent(ctx context.Context, token, id string, patch calendar.Patch) error
	DeleteEvent(ctx context.Context, token, id string) error
}

// Options configures a Controller.
type Options struct {
	// TimeZone is the configured zone label; Location is its resolution.
	TimeZone string
	Location *time.Location

	// GroupID is only used for audit records.
	GroupID string

	// Now defaults to time.Now.
	Now func() time.Time

	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// Controller is the event sync state machine.
type Controller struct {
	tokens TokenSource
	roles  RoleResolver
	remote Remote

	zone    string
	loc     *time.Location
	groupID string
	now     func() time.Time
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger

	// opMu serializes operations.
	opMu sync.Mutex

	mu       sync.RWMutex
	state    State
	events   []calendar.Event
	window   calendar.Window
	errMsg   string
	elevated bool
	editing  *calendar.Event
	anchor   time.Time
	loadedAt time.Time
}

// New returns an idle Controller.
func New(tokens TokenSource, roles RoleResolver, remote Remote, opts Options) *Controller {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		tokens:  tokens,
		roles:   roles,
		remote:  remote,
		zone:    opts.TimeZone,
		loc:     loc,
		groupID: opts.GroupID,
		now:     now,
		metrics: opts.Metrics,
		audit:   opts.Audit,
		logger:  logger.With(slog.String("component", "syncer")),
	}
}

// Location returns the configured zone.
func (c *Controller) Location() *time.Location {
	return c.loc
}

// Now returns the controller's clock in the configured zone.
func (c *Controller) Now() time.Time {
	return c.now().In(c.loc)
}

// TimeZone returns the configured zone label that new drafts are stamped with.
func (c *Controller) TimeZone() string {
	return c.zone
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		State:    c.state,
		Events:   make([]calendar.Event, len(c.events)),
		Window:   c.window,
		Error:    c.errMsg,
		Elevated: c.elevated,
		LoadedAt: c.loadedAt,
	}
	for i, ev := range c.events {
		s.Events[i] = ev.Clone()
	}
	if c.editing != nil {
		ev := c.editing.Clone()
		s.Editing = &ev
	}
	return s
}

// ShowMonth moves the viewing window to the month containing t. It takes
// effect on the next refresh. A zero t returns to the current month.
func (c *Controller) ShowMonth(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = t
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = msg
}

func message(err error, fallback string) string {
	if errors.Is(err, session.ErrNoActiveSession) {
		return MsgNoSession
	}
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

// Refresh reloads the viewing window. A failed role check leaves a
// permission message but the events are still fetched. A failed fetch
// clears the collection.
func (c *Controller) Refresh(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.refreshLocked(ctx)
}

// Load shows the month containing anchor, reloads it and returns the
// resulting state as one operation, so concurrent callers each see the month
// they asked for. A zero anchor loads the current month.
func (c *Controller) Load(ctx context.Context, anchor time.Time) (Snapshot, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.anchor = anchor
	c.mu.Unlock()

	err := c.refreshLocked(ctx)
	return c.Snapshot(), err
}

// Reload is Refresh returning the state it produced.
func (c *Controller) Reload(ctx context.Context) (Snapshot, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	err := c.refreshLocked(ctx)
	return c.Snapshot(), err
}

func (c *Controller) refreshLocked(ctx context.Context) (err error) {
	ctx, span := instrumentation.StartSpan(ctx, "calendar.refresh")
	defer func() { instrumentation.EndSpan(span, err) }()

	c.mu.Lock()
	c.state = StateLoading
	c.errMsg = ""
	anchor := c.anchor
	c.mu.Unlock()

	fail := func(err error) error {
		c.mu.Lock()
		c.state = StateFailed
		c.events = nil
		c.errMsg = message(err, MsgFetch)
		c.loadedAt = c.now()
		c.mu.Unlock()
		c.metrics.RecordRefresh(ctx, instrumentation.StatusError, 0)
		c.logger.WarnContext(ctx, "refresh failed", logging.Err(err))
		return err
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return fail(err)
	}

	elevated, roleErr := c.roles.Resolve(ctx, token)
	c.mu.Lock()
	c.elevated = elevated
	if roleErr != nil {
		c.errMsg = MsgPermission
	}
	c.mu.Unlock()

	if anchor.IsZero() {
		anchor = c.now()
	}
	window := calendar.CurrentMonth(anchor, c.loc)

	events, err := c.remote.ListEvents(ctx, token, window.Start, window.End)
	if err != nil {
		return fail(err)
	}

	c.mu.Lock()
	c.state = StateReady
	c.events = events
	c.window = window
	c.loadedAt = c.now()
	c.mu.Unlock()

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrCount, len(events)))
	c.metrics.RecordRefresh(ctx, instrumentation.StatusSuccess, len(events))
	c.logger.DebugContext(ctx, "refreshed",
		slog.Int("events", len(events)),
		slog.Bool("elevated", elevated))
	return nil
}

func (c *Controller) userName(ctx context.Context) string {
	src, ok := c.tokens.(AccountSource)
	if !ok {
		return ""
	}
	acct, err := src.Account(ctx)
	if err != nil {
		return ""
	}
	return acct.Username
}

// SaveEvent creates a draft or updates a persisted event. On success the
// editor is closed and the window reloaded; on failure the editor stays open
// and the returned error is also recorded as the state's message.
func (c *Controller) SaveEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setError("")

	op := instrumentation.OperationCreate
	if !ev.IsDraft() {
		op = instrumentation.OperationUpdate
	}

	saved, err := c.save(ctx, ev)
	c.audit.LogEventChange(ctx, instrumentation.EventChange{
		Operation: op,
		GroupID:   c.groupID,
		EventID:   saved.ID,
		Subject:   ev.Subject,
		User:      c.userName(ctx),
		Err:       err,
	})
	if err != nil {
		c.setError(message(err, MsgSave))
		return calendar.Event{}, err
	}

	c.closeEditor()
	// a failed reload is reported through the state
	_ = c.refreshLocked(ctx)
	return saved, nil
}

func (c *Controller) save(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return calendar.Event{}, err
	}
	if ev.IsDraft() {
		return c.remote.CreateEvent(ctx, token, ev)
	}
	if err := c.remote.UpdateEvent(ctx, token, ev.ID, calendar.PatchFromEvent(ev)); err != nil {
		return calendar.Event{}, err
	}
	return ev, nil
}

// DeleteEvent removes an event. On success the editor is closed and the
// window reloaded. On failure the collection is left as it was.
func (c *Controller) DeleteEvent(ctx context.Context, id string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setError("")

	err := c.delete(ctx, id)
	c.audit.LogEventChange(ctx, instrumentation.EventChange{
		Operation: instrumentation.OperationDelete,
		GroupID:   c.groupID,
		EventID:   id,
		User:      c.userName(ctx),
		Err:       err,
	})
	if err != nil {
		c.setError(message(err, MsgDelete))
		return err
	}

	c.closeEditor()
	_ = c.refreshLocked(ctx)
	return nil
}

func (c *Controller) delete(ctx context.Context, id string) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	return c.remote.DeleteEvent(ctx, token, id)
}

// SelectExisting opens ev in the editor. It does nothing unless the user is
// elevated.
func (c *Controller) SelectExisting(ev calendar.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.elevated {
		return false
	}
	clone := ev.Clone()
	clone.IsNew = false
	c.editing = &clone
	return true
}

// SelectSlot opens a new draft spanning [start, end) in the editor. It does
// nothing unless the user is elevated.
func (c *Controller) SelectSlot(start, end time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.elevated {
		return false
	}
	c.editing = &calendar.Event{
		Start: calendar.DateTimeZone{DateTime: start.In(c.loc).Format(calendar.FormLayout), TimeZone: c.zone},
		End:   calendar.DateTimeZone{DateTime: end.In(c.loc).Format(calendar.FormLayout), TimeZone: c.zone},
		IsNew: true,
	}
	return true
}

// NewEvent opens a one hour draft starting now.
func (c *Controller) NewEvent() bool {
	now := c.now()
	return c.SelectSlot(now, now.Add(time.Hour))
}

// CloseEditor discards the open draft.
func (c *Controller) CloseEditor() {
	c.closeEditor()
}

func (c *Controller) closeEditor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = nil
}

// ClearError dismisses the current message.
func (c *Controller) ClearError() {
	c.setError("")
}

// Reset forgets all loaded state, e.g. after sign-out.
func (c *Controller) Reset() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.events = nil
	c.errMsg = ""
	c.elevated = false
	c.editing = nil
	c.window = calendar.Window{}
}
