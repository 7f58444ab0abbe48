package agents

import (
	"context"
	"database/sql"
	"errors"
)

// Repository is the storage contract for agents.
// All reads are tenant-scoped except GetAny, which serves inbound-call routing.
type Repository interface {
	Create(ctx context.Context, a Agent) error
	Get(ctx context.Context, userID, agentID string) (Agent, error)
	GetAny(ctx context.Context, agentID string) (Agent, error)
	ListByUser(ctx context.Context, userID string) ([]Agent, error)
	CountByType(ctx context.Context, userID string, t AgentType) (int, error)
	Update(ctx context.Context, a Agent) error
	UpdateSettings(ctx context.Context, userID, agentID string, s Settings) error
	Delete(ctx context.Context, userID, agentID string) error
}

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const agentColumns = `id, user_id, name, type, activated, welcome_message, escalation_number, created_at, updated_at`

func (r *SQLRepository) Create(ctx context.Context, a Agent) error {
	const q = `
INSERT INTO agents (id, user_id, name, type, activated, welcome_message, escalation_number, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.UserID, a.Name, a.Type, a.Activated, a.WelcomeMessage, a.EscalationNumber, a.CreatedAt)
	return err
}

func (r *SQLRepository) Get(ctx context.Context, userID, agentID string) (Agent, error) {
	const q = `SELECT ` + agentColumns + ` FROM agents WHERE user_id = $1 AND id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, q, userID, agentID))
}

func (r *SQLRepository) GetAny(ctx context.Context, agentID string) (Agent, error) {
	const q = `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, agentID))
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]Agent, error) {
	const q = `SELECT ` + agentColumns + ` FROM agents WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Activated, &a.WelcomeMessage, &a.EscalationNumber, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLRepository) CountByType(ctx context.Context, userID string, t AgentType) (int, error) {
	const q = `SELECT COUNT(*) FROM agents WHERE user_id = $1 AND type = $2`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID, t).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLRepository) Update(ctx context.Context, a Agent) error {
	const q = `
UPDATE agents SET name = $3, activated = $4, updated_at = now()
WHERE user_id = $1 AND id = $2
`
	return r.execExpectingRow(ctx, q, a.UserID, a.ID, a.Name, a.Activated)
}

func (r *SQLRepository) UpdateSettings(ctx context.Context, userID, agentID string, s Settings) error {
	const q = `
UPDATE agents
SET name = $3, welcome_message = $4, escalation_number = $5, updated_at = now()
WHERE user_id = $1 AND id = $2
`
	return r.execExpectingRow(ctx, q, userID, agentID, s.Name, s.WelcomeMessage, s.EscalationNumber)
}

func (r *SQLRepository) Delete(ctx context.Context, userID, agentID string) error {
	const q = `DELETE FROM agents WHERE user_id = $1 AND id = $2`
	return r.execExpectingRow(ctx, q, userID, agentID)
}

func (r *SQLRepository) execExpectingRow(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
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

func (r *SQLRepository) scanOne(row *sql.Row) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Activated, &a.WelcomeMessage, &a.EscalationNumber, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, err
	}
	return a, nil
}
