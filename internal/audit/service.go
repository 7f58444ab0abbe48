// Package audit keeps an append-only trail of billing lifecycle events
// so on-call can reconstruct what happened to a subscription without
// replaying provider webhooks.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: no Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Event) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Event, error)
}

var ErrInvalidEvent = errors.New("audit: invalid event")

const defaultListLimit = 50

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if e.UserID == "" || e.Kind == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Trail returns the most recent events for a tenant, newest first.
func (s *Service) Trail(ctx context.Context, userID string, limit int) ([]Event, error) {
	if userID == "" {
		return nil, ErrInvalidEvent
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
