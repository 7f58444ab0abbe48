// Package billing owns the subscription lifecycle: hosted checkout
// creation, provider webhooks, grace periods, and the sweep that releases
// numbers for lapsed subscriptions.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/internal/audit"
	"github.com/Benrobo/nexusai-sub000/internal/numbers"
	"github.com/Benrobo/nexusai-sub000/pkg/logger"
	"github.com/Benrobo/nexusai-sub000/pkg/retry"
	"github.com/Benrobo/nexusai-sub000/pkg/utils"
)

// gracePeriod is how long a lapsed subscription keeps its number before
// the sweep releases it.
const gracePeriod = 24 * time.Hour

const pendingPurchaseTTL = time.Hour

var ErrInvalidArgument = errors.New("invalid argument")

// NumberService is the slice of the numbers service billing drives.
type NumberService interface {
	Provision(ctx context.Context, req numbers.ProvisionRequest) (numbers.PurchasedPhoneNumber, error)
	ReleaseBySubID(ctx context.Context, subID string) error
	GetByAgent(ctx context.Context, userID, agentID string) (numbers.PurchasedPhoneNumber, error)
}

// Checkouter opens hosted checkout sessions. Implemented by LemonClient.
type Checkouter interface {
	CreateCheckout(ctx context.Context, in CheckoutInput) (string, error)
}

// Notifier delivers billing notices to tenants and operators.
type Notifier interface {
	SendMail(ctx context.Context, to, subject, html string) error
	SendAlert(ctx context.Context, text string) error
}

// Auditor records subscription lifecycle transitions. Writes are
// best-effort; a nil Auditor disables the trail.
type Auditor interface {
	Append(ctx context.Context, e audit.Event) error
}

type Service struct {
	repo     Repository
	agents   agents.Repository
	numbers  NumberService
	checkout Checkouter
	notifier Notifier
	auditor  Auditor
	cache    utils.Cmdable

	mailPolicy retry.Policy
	clock      func() time.Time
}

func NewService(
	repo Repository,
	agentsRepo agents.Repository,
	numberSvc NumberService,
	checkout Checkouter,
	notifier Notifier,
	auditor Auditor,
	cache utils.Cmdable,
) *Service {
	return &Service{
		repo:       repo,
		agents:     agentsRepo,
		numbers:    numberSvc,
		checkout:   checkout,
		notifier:   notifier,
		auditor:    auditor,
		cache:      cache,
		mailPolicy: retry.MailPolicy(),
		clock:      time.Now,
	}
}

// record appends one audit event; failures are logged, never surfaced.
func (s *Service) record(ctx context.Context, kind audit.Kind, userID, subID, agentID, message string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Append(ctx, audit.Event{
		UserID:  userID,
		Kind:    kind,
		SubID:   subID,
		AgentID: agentID,
		Message: message,
	})
	if err != nil {
		logger.From(ctx).Warn("audit append failed", "kind", kind, "sub_id", subID, "err", err)
	}
}

func pendingPurchaseKey(userID, agentID string) string {
	return "pending_purchase_" + userID + "_" + agentID
}

// CreateCheckout opens a checkout session for renting a number for one of
// the tenant's agents. The selected country is parked in Redis until the
// provider webhook confirms payment.
func (s *Service) CreateCheckout(ctx context.Context, userID, agentID, variantID, country, email string) (string, error) {
	if userID == "" || agentID == "" || variantID == "" {
		return "", fmt.Errorf("%w: user, agent and variant are required", ErrInvalidArgument)
	}
	if _, err := s.agents.Get(ctx, userID, agentID); err != nil {
		return "", err
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = "US"
	}

	pending := PendingPurchase{UserID: userID, AgentID: agentID, Country: country}
	if err := utils.SetJSON(ctx, s.cache, pendingPurchaseKey(userID, agentID), pending, pendingPurchaseTTL); err != nil {
		return "", fmt.Errorf("billing: park purchase intent: %w", err)
	}

	url, err := s.checkout.CreateCheckout(ctx, CheckoutInput{
		VariantID: variantID,
		Email:     email,
		UserID:    userID,
		AgentID:   agentID,
		Country:   country,
	})
	if err != nil {
		return "", err
	}

	s.record(ctx, audit.KindCheckoutCreated, userID, "", agentID, "checkout session opened for "+country)
	return url, nil
}

// HandleSubscriptionState applies one verified subscription webhook.
//
// A returned error means local state may be behind the provider's and the
// caller should answer non-2xx so the event is redelivered.
func (s *Service) HandleSubscriptionState(ctx context.Context, evt SubscriptionEvent) error {
	log := logger.From(ctx)

	existing, err := s.repo.GetBySubID(ctx, evt.SubID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		return s.adoptSubscription(ctx, evt)
	}

	switch {
	case evt.Status.atRisk():
		grace := existing.GracePeriodEndsAt
		if grace == nil {
			g := s.clock().Add(gracePeriod)
			grace = &g
			s.record(ctx, audit.KindGraceStarted, existing.UserID, evt.SubID, existing.AgentID,
				fmt.Sprintf("status %s, number held until %s", evt.Status, g.Format(time.RFC3339)))
		}
		if err := s.repo.SetState(ctx, evt.SubID, evt.Status, grace, evt.EndsAt); err != nil {
			return err
		}
		s.sendGraceWarning(ctx, existing, evt, *grace)
		return nil

	case evt.Status == StatusActive:
		// The agent may have been deleted while the subscription lapsed.
		// A paid-up subscription with nothing behind it must not have its
		// grace period cleared silently; tell the tenant and leave the
		// row alone.
		if _, err := s.agents.Get(ctx, existing.UserID, existing.AgentID); err != nil {
			if !errors.Is(err, agents.ErrNotFound) {
				return err
			}
			s.sendOrphanNotice(ctx, existing, evt)
			return nil
		}
		if err := s.repo.SetState(ctx, evt.SubID, StatusActive, nil, evt.EndsAt); err != nil {
			return err
		}
		if existing.GracePeriodEndsAt != nil {
			s.record(ctx, audit.KindReactivated, existing.UserID, evt.SubID, existing.AgentID, "grace period cleared")
		}
		if _, err := s.numbers.GetByAgent(ctx, existing.UserID, existing.AgentID); errors.Is(err, numbers.ErrNotFound) {
			// Paid-up subscription with no number behind it; someone has
			// to look at this one.
			alert := fmt.Sprintf("subscription %s is active but agent %s has no phone number", evt.SubID, existing.AgentID)
			if alertErr := s.notifier.SendAlert(ctx, alert); alertErr != nil {
				log.Warn("orphaned agent alert failed", "sub_id", evt.SubID, "err", alertErr)
			}
		}
		return nil

	default:
		log.Info("subscription event ignored", "sub_id", evt.SubID, "status", evt.Status)
		return nil
	}
}

// adoptSubscription records a newly confirmed subscription and rents its
// phone number. Redelivered created events hit the GetBySubID guard in the
// caller and never reach this path twice.
func (s *Service) adoptSubscription(ctx context.Context, evt SubscriptionEvent) error {
	if evt.UserID == "" || evt.AgentID == "" {
		return fmt.Errorf("billing: subscription %s missing purchase identity", evt.SubID)
	}

	country := evt.Country
	var pending PendingPurchase
	if err := utils.GetJSON(ctx, s.cache, pendingPurchaseKey(evt.UserID, evt.AgentID), &pending); err == nil && country == "" {
		country = pending.Country
	}

	now := s.clock()
	sub := Subscription{
		ID:        uuid.NewString(),
		SubID:     evt.SubID,
		UserID:    evt.UserID,
		AgentID:   evt.AgentID,
		Email:     evt.Email,
		Status:    evt.Status,
		EndsAt:    evt.EndsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return err
	}

	if _, err := s.numbers.Provision(ctx, numbers.ProvisionRequest{
		UserID:  evt.UserID,
		AgentID: evt.AgentID,
		SubID:   evt.SubID,
		Country: country,
	}); err != nil {
		return fmt.Errorf("billing: provision for subscription %s: %w", evt.SubID, err)
	}

	if _, err := s.cache.Del(ctx, pendingPurchaseKey(evt.UserID, evt.AgentID)).Result(); err != nil {
		logger.From(ctx).Warn("pending purchase cleanup failed", "sub_id", evt.SubID, "err", err)
	}

	s.record(ctx, audit.KindSubscriptionAdopted, evt.UserID, evt.SubID, evt.AgentID, "subscription confirmed, number rented")
	return nil
}

func (s *Service) sendGraceWarning(ctx context.Context, sub Subscription, evt SubscriptionEvent, graceEnds time.Time) {
	to := evt.Email
	if to == "" {
		to = sub.Email
	}
	if to == "" {
		logger.From(ctx).Warn("no email on file for grace warning", "sub_id", sub.SubID)
		return
	}

	subject := "Your AI agent's phone number is about to be released"
	html := fmt.Sprintf(
		"<p>Your subscription is now <b>%s</b>. The phone number attached to your agent will be released on %s unless the subscription becomes active again.</p>",
		evt.Status, graceEnds.Format(time.RFC1123),
	)

	err := retry.Do(ctx, s.mailPolicy, func(ctx context.Context) error {
		return s.notifier.SendMail(ctx, to, subject, html)
	})
	if err != nil {
		logger.From(ctx).Error("grace warning email failed", "sub_id", sub.SubID, "err", err)
	}
}

// sendOrphanNotice tells the tenant their subscription resumed but the
// agent it paid for no longer exists.
func (s *Service) sendOrphanNotice(ctx context.Context, sub Subscription, evt SubscriptionEvent) {
	to := evt.Email
	if to == "" {
		to = sub.Email
	}
	if to == "" {
		logger.From(ctx).Warn("no email on file for orphan notice", "sub_id", sub.SubID)
		return
	}

	subject := "Your subscription resumed, but its agent is gone"
	html := fmt.Sprintf(
		"<p>Your subscription is active again, but the agent it was paying for (%s) no longer exists. Create a new agent or cancel the subscription from your dashboard.</p>",
		sub.AgentID,
	)

	err := retry.Do(ctx, s.mailPolicy, func(ctx context.Context) error {
		return s.notifier.SendMail(ctx, to, subject, html)
	})
	if err != nil {
		logger.From(ctx).Error("orphan notice email failed", "sub_id", sub.SubID, "err", err)
	}
}

// SweepGracePeriods releases numbers for subscriptions whose grace period
// has lapsed. Each row is handled independently so one provider failure
// does not stall the rest.
func (s *Service) SweepGracePeriods(ctx context.Context) (int, error) {
	expired, err := s.repo.ListGraceExpired(ctx, s.clock())
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, sub := range expired {
		if err := s.repo.SetState(ctx, sub.SubID, StatusDeleted, sub.GracePeriodEndsAt, sub.EndsAt); err != nil {
			logger.From(ctx).Error("grace sweep state update failed", "sub_id", sub.SubID, "err", err)
			continue
		}
		if err := s.numbers.ReleaseBySubID(ctx, sub.SubID); err != nil && !errors.Is(err, numbers.ErrNotFound) {
			logger.From(ctx).Warn("grace sweep number release failed", "sub_id", sub.SubID, "err", err)
		}
		s.record(ctx, audit.KindSubscriptionExpired, sub.UserID, sub.SubID, sub.AgentID, "grace period lapsed, number released")
		swept++
	}
	return swept, nil
}

// GetByAgent returns the subscription backing an agent, for the dashboard.
func (s *Service) GetByAgent(ctx context.Context, userID, agentID string) (Subscription, error) {
	return s.repo.GetByAgent(ctx, userID, agentID)
}
