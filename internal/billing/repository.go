package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("subscription not found")

// Repository is the storage contract for subscriptions.
type Repository interface {
	Create(ctx context.Context, s Subscription) error
	GetBySubID(ctx context.Context, subID string) (Subscription, error)
	GetByAgent(ctx context.Context, userID, agentID string) (Subscription, error)
	SetState(ctx context.Context, subID string, status SubscriptionStatus, grace, endsAt *time.Time) error
	ListGraceExpired(ctx context.Context, now time.Time) ([]Subscription, error)
}

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const subColumns = `id, sub_id, user_id, agent_id, email, status, grace_period_ends_at, ends_at, created_at, updated_at`

func (r *SQLRepository) Create(ctx context.Context, s Subscription) error {
	const q = `
INSERT INTO subscriptions (id, sub_id, user_id, agent_id, email, status, grace_period_ends_at, ends_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.SubID, s.UserID, s.AgentID, s.Email, s.Status, s.GracePeriodEndsAt, s.EndsAt, s.CreatedAt)
	return err
}

func (r *SQLRepository) GetBySubID(ctx context.Context, subID string) (Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE sub_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, subID))
}

func (r *SQLRepository) GetByAgent(ctx context.Context, userID, agentID string) (Subscription, error) {
	const q = `
SELECT ` + subColumns + ` FROM subscriptions
WHERE user_id = $1 AND agent_id = $2
ORDER BY created_at DESC LIMIT 1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, userID, agentID))
}

func (r *SQLRepository) SetState(ctx context.Context, subID string, status SubscriptionStatus, grace, endsAt *time.Time) error {
	const q = `
UPDATE subscriptions
SET status = $2, grace_period_ends_at = $3, ends_at = $4, updated_at = now()
WHERE sub_id = $1
`
	res, err := r.db.ExecContext(ctx, q, subID, status, grace, endsAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) ListGraceExpired(ctx context.Context, now time.Time) ([]Subscription, error) {
	const q = `
SELECT ` + subColumns + ` FROM subscriptions
WHERE status <> $1 AND grace_period_ends_at IS NOT NULL AND grace_period_ends_at < $2
ORDER BY grace_period_ends_at
`
	rows, err := r.db.QueryContext(ctx, q, StatusDeleted, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.SubID, &s.UserID, &s.AgentID, &s.Email, &s.Status, &s.GracePeriodEndsAt, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLRepository) scanOne(row *sql.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.SubID, &s.UserID, &s.AgentID, &s.Email, &s.Status, &s.GracePeriodEndsAt, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, err
	}
	return s, nil
}
