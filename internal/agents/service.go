package agents

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("agent not found")
	ErrDuplicate       = errors.New("duplicate agent")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Service owns agent lifecycle rules.
//
// Invariants:
// - exactly one ANTI_THEFT agent per tenant
// - agents are created deactivated; activation is an explicit step
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CreateRequest struct {
	Name string    `json:"name"`
	Type AgentType `json:"type"`
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (Agent, error) {
	if userID == "" || strings.TrimSpace(req.Name) == "" {
		return Agent{}, ErrInvalidArgument
	}
	if !req.Type.Valid() {
		return Agent{}, ErrInvalidArgument
	}

	if req.Type == TypeAntiTheft {
		n, err := s.repo.CountByType(ctx, userID, TypeAntiTheft)
		if err != nil {
			return Agent{}, err
		}
		if n > 0 {
			return Agent{}, ErrDuplicate
		}
	}

	a := Agent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Type:      req.Type,
		Activated: false,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, userID, agentID string) (Agent, error) {
	if userID == "" || agentID == "" {
		return Agent{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, userID, agentID)
}

func (s *Service) List(ctx context.Context, userID string) ([]Agent, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) SetActivated(ctx context.Context, userID, agentID string, activated bool) (Agent, error) {
	a, err := s.Get(ctx, userID, agentID)
	if err != nil {
		return Agent{}, err
	}
	a.Activated = activated
	if err := s.repo.Update(ctx, a); err != nil {
		return Agent{}, err
	}
	return a, nil
}

func (s *Service) UpdateSettings(ctx context.Context, userID, agentID string, settings Settings) error {
	if userID == "" || agentID == "" {
		return ErrInvalidArgument
	}
	if strings.TrimSpace(settings.Name) == "" {
		return ErrInvalidArgument
	}
	return s.repo.UpdateSettings(ctx, userID, agentID, settings)
}

func (s *Service) Delete(ctx context.Context, userID, agentID string) error {
	if userID == "" || agentID == "" {
		return ErrInvalidArgument
	}
	return s.repo.Delete(ctx, userID, agentID)
}
