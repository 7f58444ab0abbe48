package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Benrobo/nexusai-sub000/pkg/utils"
)

var (
	ErrNotFound  = errors.New("knowledge base not found")
	ErrDuplicate = errors.New("knowledge base already linked")
)

// Repository is the storage contract for knowledge bases, their data
// sources and agent links.
type Repository interface {
	Create(ctx context.Context, b KnowledgeBase, sources []DataSource) error
	Get(ctx context.Context, userID, kbID string) (KnowledgeBase, error)
	ListByUser(ctx context.Context, userID string) ([]KnowledgeBase, error)
	SetStatus(ctx context.Context, kbID string, st Status) error
	SetEmbedding(ctx context.Context, sourceID string, embedding []float32) error
	ListSources(ctx context.Context, kbIDs []string) ([]DataSource, error)
	Delete(ctx context.Context, userID, kbID string) error

	Link(ctx context.Context, agentID, kbID string) error
	Unlink(ctx context.Context, agentID, kbID string) error
	LinkedKbIDs(ctx context.Context, agentID string) ([]string, error)
}

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, b KnowledgeBase, sources []DataSource) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const qb = `
INSERT INTO knowledge_bases (id, user_id, name, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
`
		if _, err := tx.ExecContext(ctx, qb, b.ID, b.UserID, b.Name, b.Status, b.CreatedAt); err != nil {
			return err
		}
		const qs = `
INSERT INTO kb_data_sources (id, kb_id, title, url, content, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, NULL, $6)
`
		for _, s := range sources {
			if _, err := tx.ExecContext(ctx, qs, s.ID, s.KbID, s.Title, s.URL, s.Content, s.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLRepository) Get(ctx context.Context, userID, kbID string) (KnowledgeBase, error) {
	const q = `
SELECT id, user_id, name, status, created_at, updated_at
FROM knowledge_bases WHERE user_id = $1 AND id = $2
`
	var b KnowledgeBase
	err := r.db.QueryRowContext(ctx, q, userID, kbID).
		Scan(&b.ID, &b.UserID, &b.Name, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return KnowledgeBase{}, ErrNotFound
		}
		return KnowledgeBase{}, err
	}
	return b, nil
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]KnowledgeBase, error) {
	const q = `
SELECT id, user_id, name, status, created_at, updated_at
FROM knowledge_bases WHERE user_id = $1 ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KnowledgeBase
	for rows.Next() {
		var b KnowledgeBase
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLRepository) SetStatus(ctx context.Context, kbID string, st Status) error {
	const q = `UPDATE knowledge_bases SET status = $2, updated_at = now() WHERE id = $1`
	return r.execExpectingRow(ctx, q, kbID, st)
}

func (r *SQLRepository) SetEmbedding(ctx context.Context, sourceID string, embedding []float32) error {
	raw, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	const q = `UPDATE kb_data_sources SET embedding = $2 WHERE id = $1`
	return r.execExpectingRow(ctx, q, sourceID, raw)
}

func (r *SQLRepository) ListSources(ctx context.Context, kbIDs []string) ([]DataSource, error) {
	if len(kbIDs) == 0 {
		return nil, nil
	}
	const q = `
SELECT id, kb_id, title, url, content, embedding, created_at
FROM kb_data_sources WHERE kb_id = ANY($1)
`
	rows, err := r.db.QueryContext(ctx, q, kbIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DataSource
	for rows.Next() {
		var (
			s   DataSource
			raw []byte
		)
		if err := rows.Scan(&s.ID, &s.KbID, &s.Title, &s.URL, &s.Content, &raw, &s.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &s.Embedding); err != nil {
				return nil, err
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLRepository) Delete(ctx context.Context, userID, kbID string) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM agent_knowledge_bases WHERE kb_id = $1`, kbID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM kb_data_sources WHERE kb_id = $1`, kbID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM knowledge_bases WHERE user_id = $1 AND id = $2`, userID, kbID)
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
	})
}

func (r *SQLRepository) Link(ctx context.Context, agentID, kbID string) error {
	const q = `
INSERT INTO agent_knowledge_bases (agent_id, kb_id, created_at)
VALUES ($1, $2, now())
ON CONFLICT (agent_id, kb_id) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, q, agentID, kbID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *SQLRepository) Unlink(ctx context.Context, agentID, kbID string) error {
	const q = `DELETE FROM agent_knowledge_bases WHERE agent_id = $1 AND kb_id = $2`
	return r.execExpectingRow(ctx, q, agentID, kbID)
}

func (r *SQLRepository) LinkedKbIDs(ctx context.Context, agentID string) ([]string, error) {
	const q = `SELECT kb_id FROM agent_knowledge_bases WHERE agent_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
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
