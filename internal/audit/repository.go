package audit

import (
	"context"
	"database/sql"
)

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, user_id, kind, sub_id, agent_id, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.UserID, e.Kind, e.SubID, e.AgentID, e.Message, e.CreatedAt)
	return err
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Event, error) {
	const q = `
SELECT id, user_id, kind, sub_id, agent_id, message, created_at
FROM audit_events
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.SubID, &e.AgentID, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
