package phrase

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("phrase not found")

// Repository is the storage contract for memoized speech clips.
type Repository interface {
	GetByHash(ctx context.Context, hash string) (Phrase, error)
	Create(ctx context.Context, p Phrase) error
	MarkReady(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, usedAt time.Time) error
	ListStale(ctx context.Context, lastUsedBefore time.Time) ([]Phrase, error)
	Delete(ctx context.Context, id string) error
}

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const phraseColumns = `id, hash, agent_name, text, filename, pending, last_used_at, created_at`

func (r *SQLRepository) GetByHash(ctx context.Context, hash string) (Phrase, error) {
	const q = `SELECT ` + phraseColumns + ` FROM used_phrases WHERE hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, hash))
}

func (r *SQLRepository) Create(ctx context.Context, p Phrase) error {
	const q = `
INSERT INTO used_phrases (id, hash, agent_name, text, filename, pending, last_used_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.Hash, p.AgentName, p.Text, p.Filename, p.Pending, p.CreatedAt)
	return err
}

func (r *SQLRepository) MarkReady(ctx context.Context, id string) error {
	const q = `UPDATE used_phrases SET pending = false WHERE id = $1`
	return r.execExpectingRow(ctx, q, id)
}

func (r *SQLRepository) Touch(ctx context.Context, id string, usedAt time.Time) error {
	const q = `UPDATE used_phrases SET last_used_at = $2 WHERE id = $1`
	return r.execExpectingRow(ctx, q, id, usedAt)
}

func (r *SQLRepository) ListStale(ctx context.Context, lastUsedBefore time.Time) ([]Phrase, error) {
	const q = `
SELECT ` + phraseColumns + ` FROM used_phrases
WHERE pending = false AND last_used_at < $1
ORDER BY last_used_at
`
	rows, err := r.db.QueryContext(ctx, q, lastUsedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Phrase
	for rows.Next() {
		var p Phrase
		if err := rows.Scan(&p.ID, &p.Hash, &p.AgentName, &p.Text, &p.Filename, &p.Pending, &p.LastUsedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM used_phrases WHERE id = $1`
	return r.execExpectingRow(ctx, q, id)
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

func (r *SQLRepository) scanOne(row *sql.Row) (Phrase, error) {
	var p Phrase
	err := row.Scan(&p.ID, &p.Hash, &p.AgentName, &p.Text, &p.Filename, &p.Pending, &p.LastUsedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Phrase{}, ErrNotFound
		}
		return Phrase{}, err
	}
	return p, nil
}
