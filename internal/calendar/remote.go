package calendar

import (
	"context"
	"sync"
	"time"
)

// Remote hands out a Client for the current access token. It holds at most
// one Client and replaces it whenever the token string changes.
type Remote struct {
	opts Options

	mu     sync.Mutex
	token  string
	client *Client
}

// NewRemote returns a Remote for the given options. Options are validated on
// first use.
func NewRemote(opts Options) *Remote {
	return &Remote{opts: opts}
}

// GroupID returns the configured group.
func (r *Remote) GroupID() string {
	return r.opts.GroupID
}

// TimeZone returns the configured zone label.
func (r *Remote) TimeZone() string {
	return r.opts.TimeZone
}

func (r *Remote) clientFor(ctx context.Context, token string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil && r.token == token {
		return r.client, nil
	}

	c, err := NewClient(ctx, token, r.opts)
	if err != nil {
		return nil, err
	}
	r.token = token
	r.client = c
	return c, nil
}

// ListEvents lists the events overlapping [start, end).
func (r *Remote) ListEvents(ctx context.Context, token string, start, end time.Time) ([]Event, error) {
	c, err := r.clientFor(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.ListEvents(ctx, start, end)
}

// CreateEvent persists a draft.
func (r *Remote) CreateEvent(ctx context.Context, token string, draft Event) (Event, error) {
	c, err := r.clientFor(ctx, token)
	if err != nil {
		return Event{}, err
	}
	return c.CreateEvent(ctx, draft)
}

// UpdateEvent applies a partial update.
func (r *Remote) UpdateEvent(ctx context.Context, token, id string, patch Patch) error {
	c, err := r.clientFor(ctx, token)
	if err != nil {
		return err
	}
	return c.UpdateEvent(ctx, id, patch)
}

// DeleteEvent removes an event.
func (r *Remote) DeleteEvent(ctx context.Context, token, id string) error {
	c, err := r.clientFor(ctx, token)
	if err != nil {
		return err
	}
	return c.DeleteEvent(ctx, id)
}

// ListMembership returns the directory objects the user is a member of.
func (r *Remote) ListMembership(ctx context.Context, token string) (map[string]struct{}, error) {
	c, err := r.clientFor(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.ListMembership(ctx)
}
