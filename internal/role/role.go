// Package role decides whether the signed-in user may edit the calendar.
//
// The check is a UI affordance only. It runs in the client against the
// user's own group memberships and is not a security boundary; Graph
// enforces the real permissions on every write.
package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/groupcal/internal/logging"
)

// ErrPermissionCheckFailed is returned when memberships could not be read.
var ErrPermissionCheckFailed = errors.New("permission check failed")

// MembershipLister lists the directory objects the token's user belongs to.
type MembershipLister interface {
	ListMembership(ctx context.Context, token string) (map[string]struct{}, error)
}

// Resolver maps a token to the elevated flag.
type Resolver struct {
	lister  MembershipLister
	groupID string
	logger  *slog.Logger

	mu       sync.Mutex
	elevated bool
}

// NewResolver returns a Resolver checking membership of groupID. With an
// empty groupID every user is elevated.
func NewResolver(lister MembershipLister, groupID string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		lister:  lister,
		groupID: groupID,
		logger:  logger.With(slog.String("component", "role")),
	}
	if groupID == "" {
		r.logger.Warn("no authorization group configured, every signed-in user can edit events")
	}
	return r
}

// Bypassed reports whether no authorization group is configured.
func (r *Resolver) Bypassed() bool {
	return r.groupID == ""
}

// Elevated returns the last resolved role.
func (r *Resolver) Elevated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elevated || r.groupID == ""
}

// Resolve recomputes the role. On failure it returns an error wrapping
// ErrPermissionCheckFailed together with the previous role, which is kept.
func (r *Resolver) Resolve(ctx context.Context, token string) (bool, error) {
	if r.groupID == "" {
		return true, nil
	}

	ids, err := r.lister.ListMembership(ctx, token)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.logger.WarnContext(ctx, "membership lookup failed", logging.Err(err))
		return r.elevated, fmt.Errorf("%w: %w", ErrPermissionCheckFailed, err)
	}

	_, r.elevated = ids[r.groupID]
	r.logger.DebugContext(ctx, "role resolved", slog.Bool("elevated", r.elevated))
	return r.elevated, nil
}
