package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoft/kiota-abstractions-go/authentication"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/groups"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/logging"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Options configures a Client.
type Options struct {
	// GroupID is the Microsoft 365 group whose calendar is used.
	GroupID string

	// TimeZone is the zone label stamped onto every write and requested for
	// every read, e.g. "SE Asia Standard Time".
	TimeZone string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string

	// HTTPClient is the transport under the bearer token. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

func (o Options) validate() error {
	if o.GroupID == "" {
		return errors.New("group id is required")
	}
	if _, err := LoadLocation(o.TimeZone); err != nil {
		return err
	}
	return nil
}

// Client talks to the group calendar with a single access token.
type Client struct {
	graph   *msgraphsdk.GraphServiceClient
	adapter *msgraphsdk.GraphRequestAdapter
	baseURL string
	groupID string
	zone    string
	loc     *time.Location
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	prefer  string
}

// NewClient builds a Client that authenticates every request with token.
func NewClient(ctx context.Context, token string, opts Options) (*Client, error) {
	if token == "" {
		return nil, errors.New("access token is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	loc, _ := LoadLocation(opts.TimeZone)

	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	adapter, err := msgraphsdk.NewGraphRequestAdapterWithParseNodeFactoryAndSerializationWriterFactoryAndHttpClient(
		&authentication.AnonymousAuthenticationProvider{}, nil, nil, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph request adapter: %w", err)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	adapter.SetBaseUrl(baseURL)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		graph:   msgraphsdk.NewGraphServiceClient(adapter),
		adapter: adapter,
		baseURL: strings.TrimRight(baseURL, "/"),
		groupID: opts.GroupID,
		zone:    opts.TimeZone,
		loc:     loc,
		metrics: opts.Metrics,
		logger:  logging.WithGroup(logger, opts.GroupID),
		prefer:  fmt.Sprintf("outlook.timezone=%q", opts.TimeZone),
	}, nil
}

// Location returns the resolved configured zone.
func (c *Client) Location() *time.Location {
	return c.loc
}

func (c *Client) headers() *abstractions.RequestHeaders {
	h := abstractions.NewRequestHeaders()
	h.Add("Prefer", c.prefer)
	return h
}

// observe starts a span for one Graph call and returns the function that
// finishes it.
func (c *Client) observe(ctx context.Context, resource, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	attrs = append(attrs, attribute.String(instrumentation.SpanAttrGroupID, c.groupID))
	ctx, span := instrumentation.StartGraphSpan(ctx, resource, operation, attrs...)

	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		duration := time.Since(start)
		c.metrics.RecordGraphOperation(ctx, resource, operation, status, duration)
		instrumentation.EndSpan(span, err)
		c.logger.DebugContext(ctx, "graph call",
			slog.String("resource", resource),
			logging.Operation(operation),
			logging.Status(status),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
	}
}

// stamp re-expresses d in the configured zone. A timestamp without a zone
// label is read as wall-clock time in the configured zone.
func (c *Client) stamp(d DateTimeZone) (DateTimeZone, error) {
	t, err := d.Time(c.loc)
	if err != nil {
		return DateTimeZone{}, err
	}
	return At(t, c.zone)
}

// ListEvents returns the events overlapping [start, end) ordered by start.
// Returned times are expressed in the configured zone.
func (c *Client) ListEvents(ctx context.Context, start, end time.Time) (events []Event, err error) {
	ctx, done := c.observe(ctx, instrumentation.ResourceEvents, instrumentation.OperationList)
	defer func() { done(err) }()

	filter := fmt.Sprintf("start/dateTime lt '%s' and end/dateTime gt '%s'",
		formatFilterTime(end), formatFilterTime(start))

	builder := c.graph.Groups().ByGroupId(c.groupID).Calendar().Events()
	resp, err := builder.Get(ctx, &groups.ItemCalendarEventsRequestBuilderGetRequestConfiguration{
		Headers: c.headers(),
		QueryParameters: &groups.ItemCalendarEventsRequestBuilderGetQueryParameters{
			Filter:  &filter,
			Select:  eventSelect,
			Orderby: []string{"start/dateTime"},
		},
	})
	for {
		if err != nil {
			return nil, remoteError(ctx, err)
		}
		for _, ev := range resp.GetValue() {
			events = append(events, fromGraph(ev))
		}
		next := resp.GetOdataNextLink()
		if next == nil || *next == "" {
			break
		}
		resp, err = builder.WithUrl(*next).Get(ctx, &groups.ItemCalendarEventsRequestBuilderGetRequestConfiguration{
			Headers: c.headers(),
		})
	}
	return events, nil
}

// CreateEvent persists a draft and returns the stored event.
func (c *Client) CreateEvent(ctx context.Context, draft Event) (created Event, err error) {
	ctx, done := c.observe(ctx, instrumentation.ResourceEvents, instrumentation.OperationCreate)
	defer func() { done(err) }()

	if draft.Start, err = c.stamp(draft.Start); err != nil {
		return Event{}, fmt.Errorf("invalid start: %w", err)
	}
	if draft.End, err = c.stamp(draft.End); err != nil {
		return Event{}, fmt.Errorf("invalid end: %w", err)
	}

	body, err := toGraphEvent(draft)
	if err != nil {
		return Event{}, err
	}
	txID := uuid.NewString()
	body.SetTransactionId(&txID)

	resp, err := c.graph.Groups().ByGroupId(c.groupID).Events().Post(ctx, body,
		&groups.ItemEventsRequestBuilderPostRequestConfiguration{Headers: c.headers()})
	if err != nil {
		return Event{}, remoteError(ctx, err)
	}
	return fromGraph(resp), nil
}

// UpdateEvent applies a partial update. Start and end, when present, are
// re-stamped with the configured zone.
func (c *Client) UpdateEvent(ctx context.Context, id string, patch Patch) (err error) {
	ctx, done := c.observe(ctx, instrumentation.ResourceEvents, instrumentation.OperationUpdate,
		attribute.String(instrumentation.SpanAttrEventID, id))
	defer func() { done(err) }()

	if id == "" {
		return errors.New("event id is required")
	}
	if patch.Start != nil {
		start, err := c.stamp(*patch.Start)
		if err != nil {
			return fmt.Errorf("invalid start: %w", err)
		}
		patch.Start = &start
	}
	if patch.End != nil {
		end, err := c.stamp(*patch.End)
		if err != nil {
			return fmt.Errorf("invalid end: %w", err)
		}
		patch.End = &end
	}

	body, err := toGraphPatch(patch)
	if err != nil {
		return err
	}
	_, err = c.graph.Groups().ByGroupId(c.groupID).Events().ByEventId(id).Patch(ctx, body,
		&groups.ItemEventsEventItemRequestBuilderPatchRequestConfiguration{Headers: c.headers()})
	if err != nil {
		return remoteError(ctx, err)
	}
	return nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id string) (err error) {
	ctx, done := c.observe(ctx, instrumentation.ResourceEvents, instrumentation.OperationDelete,
		attribute.String(instrumentation.SpanAttrEventID, id))
	defer func() { done(err) }()

	if id == "" {
		return errors.New("event id is required")
	}
	err = c.graph.Groups().ByGroupId(c.groupID).Events().ByEventId(id).Delete(ctx,
		&groups.ItemEventsEventItemRequestBuilderDeleteRequestConfiguration{Headers: c.headers()})
	if err != nil {
		return remoteError(ctx, err)
	}
	return nil
}

// ListMembership returns the ids of the directory objects the signed-in user
// is a direct member of.
func (c *Client) ListMembership(ctx context.Context) (ids map[string]struct{}, err error) {
	ctx, done := c.observe(ctx, instrumentation.ResourceMemberships, instrumentation.OperationList)
	defer func() { done(err) }()

	// Me() expands to /users/me-token-to-replace, which only Graph's default
	// middleware rewrites. The client runs without it, so address /me directly.
	builder := users.NewItemMemberOfRequestBuilder(c.baseURL+"/me/memberOf?%24select=id", c.adapter)
	resp, err := builder.Get(ctx, &users.ItemMemberOfRequestBuilderGetRequestConfiguration{
		Headers: c.headers(),
	})

	ids = make(map[string]struct{})
	for {
		if err != nil {
			return nil, remoteError(ctx, err)
		}
		for _, obj := range resp.GetValue() {
			if obj == nil {
				continue
			}
			if id := deref(obj.GetId()); id != "" {
				ids[id] = struct{}{}
			}
		}
		next := resp.GetOdataNextLink()
		if next == nil || *next == "" {
			break
		}
		resp, err = builder.WithUrl(*next).Get(ctx, &users.ItemMemberOfRequestBuilderGetRequestConfiguration{
			Headers: c.headers(),
		})
	}
	return ids, nil
}

// remoteError maps SDK failures onto RemoteCallFailed. Context cancellation is
// returned unchanged.
func remoteError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var rcf *RemoteCallFailed
	if errors.As(err, &rcf) {
		return rcf
	}

	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		msg := odataErr.Error()
		if main := odataErr.GetErrorEscaped(); main != nil && main.GetMessage() != nil {
			msg = *main.GetMessage()
		}
		return &RemoteCallFailed{Status: odataErr.ResponseStatusCode, Message: msg}
	}

	var apiErr *abstractions.ApiError
	if errors.As(err, &apiErr) {
		return &RemoteCallFailed{Status: apiErr.ResponseStatusCode, Message: apiErr.Error()}
	}

	// no response at all
	return fmt.Errorf("graph request failed: %w", err)
}
