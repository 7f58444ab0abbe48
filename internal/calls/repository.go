package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Benrobo/nexusai-sub000/pkg/utils"
)

var ErrNotFound = errors.New("call log not found")

// Repository is the storage contract for call logs, transcripts and
// analyses.
type Repository interface {
	Create(ctx context.Context, l CallLog) error
	GetByRef(ctx context.Context, refID string) (CallLog, error)
	Get(ctx context.Context, userID, logID string) (CallLog, error)
	ListByUser(ctx context.Context, userID string) ([]CallLog, error)
	MarkRead(ctx context.Context, userID, logID string) error
	Delete(ctx context.Context, userID, logID string) error
	Stats(ctx context.Context, userID string) (Stats, error)

	AppendMessage(ctx context.Context, m Message) error
	ListMessages(ctx context.Context, logID string) ([]Message, error)

	UpsertAnalysis(ctx context.Context, a Analysis) error
	GetAnalysis(ctx context.Context, logID string) (Analysis, error)
}

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const callLogColumns = `id, ref_id, user_id, agent_id, caller_phone, called_phone, country_code, zipcode, read, created_at`

func (r *SQLRepository) Create(ctx context.Context, l CallLog) error {
	const q = `
INSERT INTO call_logs (id, ref_id, user_id, agent_id, caller_phone, called_phone, country_code, zipcode, read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9)
`
	_, err := r.db.ExecContext(ctx, q, l.ID, l.RefID, l.UserID, l.AgentID, l.CallerPhone, l.CalledPhone, l.CountryCode, l.Zipcode, l.CreatedAt)
	return err
}

func (r *SQLRepository) GetByRef(ctx context.Context, refID string) (CallLog, error) {
	const q = `SELECT ` + callLogColumns + ` FROM call_logs WHERE ref_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, refID))
}

func (r *SQLRepository) Get(ctx context.Context, userID, logID string) (CallLog, error) {
	const q = `SELECT ` + callLogColumns + ` FROM call_logs WHERE user_id = $1 AND id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, q, userID, logID))
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]CallLog, error) {
	const q = `SELECT ` + callLogColumns + ` FROM call_logs WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallLog
	for rows.Next() {
		var l CallLog
		if err := rows.Scan(&l.ID, &l.RefID, &l.UserID, &l.AgentID, &l.CallerPhone, &l.CalledPhone, &l.CountryCode, &l.Zipcode, &l.Read, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SQLRepository) MarkRead(ctx context.Context, userID, logID string) error {
	const q = `UPDATE call_logs SET read = true WHERE user_id = $1 AND id = $2`
	return r.execExpectingRow(ctx, q, userID, logID)
}

func (r *SQLRepository) Delete(ctx context.Context, userID, logID string) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM call_log_analyses WHERE call_log_id = $1`, logID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM call_log_messages WHERE call_log_id = $1`, logID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM call_logs WHERE user_id = $1 AND id = $2`, userID, logID)
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

func (r *SQLRepository) Stats(ctx context.Context, userID string) (Stats, error) {
	const q = `
SELECT agent_id, COUNT(*), COUNT(*) FILTER (WHERE NOT read)
FROM call_logs WHERE user_id = $1 GROUP BY agent_id
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	s := Stats{ByAgent: map[string]int{}}
	for rows.Next() {
		var (
			agentID       string
			total, unread int
		)
		if err := rows.Scan(&agentID, &total, &unread); err != nil {
			return Stats{}, err
		}
		s.ByAgent[agentID] = total
		s.Total += total
		s.Unread += unread
	}
	return s, rows.Err()
}

func (r *SQLRepository) AppendMessage(ctx context.Context, m Message) error {
	const q = `
INSERT INTO call_log_messages (id, call_log_id, role, content, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.CallLogID, m.Role, m.Content, m.CreatedAt)
	return err
}

func (r *SQLRepository) ListMessages(ctx context.Context, logID string) ([]Message, error) {
	const q = `
SELECT id, call_log_id, role, content, created_at
FROM call_log_messages WHERE call_log_id = $1 ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, logID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.CallLogID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLRepository) UpsertAnalysis(ctx context.Context, a Analysis) error {
	flags, err := json.Marshal(a.RedFlags)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO call_log_analyses (call_log_id, sentiment, red_flags, confidence, summary, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (call_log_id) DO UPDATE SET
  sentiment = EXCLUDED.sentiment,
  red_flags = EXCLUDED.red_flags,
  confidence = EXCLUDED.confidence,
  summary = EXCLUDED.summary,
  updated_at = EXCLUDED.updated_at
`
	_, err = r.db.ExecContext(ctx, q, a.CallLogID, a.Sentiment, flags, a.Confidence, a.Summary, a.UpdatedAt)
	return err
}

func (r *SQLRepository) GetAnalysis(ctx context.Context, logID string) (Analysis, error) {
	const q = `
SELECT call_log_id, sentiment, red_flags, confidence, summary, updated_at
FROM call_log_analyses WHERE call_log_id = $1
`
	var (
		a   Analysis
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, q, logID).
		Scan(&a.CallLogID, &a.Sentiment, &raw, &a.Confidence, &a.Summary, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.RedFlags); err != nil {
			return Analysis{}, err
		}
	}
	return a, nil
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

func (r *SQLRepository) scanOne(row *sql.Row) (CallLog, error) {
	var l CallLog
	err := row.Scan(&l.ID, &l.RefID, &l.UserID, &l.AgentID, &l.CallerPhone, &l.CalledPhone, &l.CountryCode, &l.Zipcode, &l.Read, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallLog{}, ErrNotFound
		}
		return CallLog{}, err
	}
	return l, nil
}
