package numbers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Benrobo/nexusai-sub000/pkg/logger"
	"github.com/Benrobo/nexusai-sub000/pkg/retry"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("phone number not found")
	ErrInvalidArg   = errors.New("invalid argument")
	ErrProvisioning = errors.New("ERROR_PROVISIONING_NUMBER")
)

// ProvisionedNumber is what the provider hands back on a successful rental.
// BundleSid is the regulatory bundle the purchase was made under; empty for
// countries that do not require one.
type ProvisionedNumber struct {
	Phone     string
	Sid       string
	BundleSid string
}

// Provider is the slice of the telephony adapter this service needs.
type Provider interface {
	BuyNumber(ctx context.Context, country string) (ProvisionedNumber, error)
	ReleaseNumber(ctx context.Context, sid string) error
}

// Service provisions and releases provider phone numbers for agents.
//
// Provider number-creation can transiently fail, so Provision retries with
// backoff before giving up.
type Service struct {
	repo     Repository
	provider Provider
	policy   retry.Policy
	clock    func() time.Time
}

func NewService(repo Repository, provider Provider) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		policy:   retry.ProvisioningPolicy(),
		clock:    time.Now,
	}
}

type ProvisionRequest struct {
	UserID  string
	AgentID string
	SubID   string
	Country string
}

// Provision rents a number with the provider and records both the purchased
// row and the routing link.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (PurchasedPhoneNumber, error) {
	if req.UserID == "" || req.AgentID == "" || req.SubID == "" {
		return PurchasedPhoneNumber{}, ErrInvalidArg
	}
	if req.Country == "" {
		req.Country = "US"
	}

	var rented ProvisionedNumber
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		rented, err = s.provider.BuyNumber(ctx, req.Country)
		return err
	})
	if err != nil {
		return PurchasedPhoneNumber{}, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	p := PurchasedPhoneNumber{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		AgentID:        req.AgentID,
		Phone:          rented.Phone,
		PhoneNumberSid: rented.Sid,
		BundleSid:      rented.BundleSid,
		SubID:          req.SubID,
		Country:        req.Country,
		CreatedAt:      s.clock().UTC(),
	}
	if err := s.repo.SaveWithLink(ctx, p); err != nil {
		// The provider number is rented but unrecorded; release it so it
		// does not leak billing.
		if relErr := s.provider.ReleaseNumber(ctx, rented.Sid); relErr != nil {
			logger.From(ctx).Error("orphaned provider number", "sid", rented.Sid, "err", relErr)
		}
		return PurchasedPhoneNumber{}, err
	}
	return p, nil
}

// Release returns the number to the provider and removes both rows.
func (s *Service) Release(ctx context.Context, phone string) error {
	if phone == "" {
		return ErrInvalidArg
	}
	p, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if err := s.provider.ReleaseNumber(ctx, p.PhoneNumberSid); err != nil {
		return err
	}
	return s.repo.DeleteWithLink(ctx, phone)
}

// ReleaseBySubID is the sweep-side entry point: it resolves the number from
// the subscription id recorded at provision time.
func (s *Service) ReleaseBySubID(ctx context.Context, subID string) error {
	if subID == "" {
		return ErrInvalidArg
	}
	p, err := s.repo.GetBySubID(ctx, subID)
	if err != nil {
		return err
	}
	return s.Release(ctx, p.Phone)
}

func (s *Service) GetByAgent(ctx context.Context, userID, agentID string) (PurchasedPhoneNumber, error) {
	if userID == "" || agentID == "" {
		return PurchasedPhoneNumber{}, ErrInvalidArg
	}
	return s.repo.GetByAgent(ctx, userID, agentID)
}
