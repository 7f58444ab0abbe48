package numbers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Benrobo/nexusai-sub000/pkg/utils"
)

// Repository persists purchased numbers and their routing links.
// Writes that touch both tables run inside a single transaction.
type Repository interface {
	GetByPhone(ctx context.Context, phone string) (PurchasedPhoneNumber, error)
	GetByAgent(ctx context.Context, userID, agentID string) (PurchasedPhoneNumber, error)
	GetBySubID(ctx context.Context, subID string) (PurchasedPhoneNumber, error)
	GetLink(ctx context.Context, phone string) (UsedPhoneNumber, error)
	SaveWithLink(ctx context.Context, p PurchasedPhoneNumber) error
	DeleteWithLink(ctx context.Context, phone string) error
}

type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const purchasedColumns = `id, user_id, agent_id, phone, phone_number_sid, bundle_sid, sub_id, country, created_at`

func (r *SQLRepository) GetByPhone(ctx context.Context, phone string) (PurchasedPhoneNumber, error) {
	const q = `SELECT ` + purchasedColumns + ` FROM purchased_phone_numbers WHERE phone = $1`
	return scanPurchased(r.db.QueryRowContext(ctx, q, phone))
}

func (r *SQLRepository) GetByAgent(ctx context.Context, userID, agentID string) (PurchasedPhoneNumber, error) {
	const q = `SELECT ` + purchasedColumns + ` FROM purchased_phone_numbers WHERE user_id = $1 AND agent_id = $2`
	return scanPurchased(r.db.QueryRowContext(ctx, q, userID, agentID))
}

func (r *SQLRepository) GetBySubID(ctx context.Context, subID string) (PurchasedPhoneNumber, error) {
	const q = `SELECT ` + purchasedColumns + ` FROM purchased_phone_numbers WHERE sub_id = $1`
	return scanPurchased(r.db.QueryRowContext(ctx, q, subID))
}

func (r *SQLRepository) GetLink(ctx context.Context, phone string) (UsedPhoneNumber, error) {
	const q = `SELECT phone, user_id, agent_id FROM used_phone_numbers WHERE phone = $1`
	var l UsedPhoneNumber
	err := r.db.QueryRowContext(ctx, q, phone).Scan(&l.Phone, &l.UserID, &l.AgentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UsedPhoneNumber{}, ErrNotFound
		}
		return UsedPhoneNumber{}, err
	}
	return l, nil
}

// SaveWithLink upserts the purchased row and its routing link atomically.
// The (user_id, agent_id) unique constraint makes a re-provision for the
// same agent an update, not a second row.
func (r *SQLRepository) SaveWithLink(ctx context.Context, p PurchasedPhoneNumber) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const insPurchased = `
INSERT INTO purchased_phone_numbers (id, user_id, agent_id, phone, phone_number_sid, bundle_sid, sub_id, country, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id, agent_id) DO UPDATE
SET phone = EXCLUDED.phone,
    phone_number_sid = EXCLUDED.phone_number_sid,
    bundle_sid = EXCLUDED.bundle_sid,
    sub_id = EXCLUDED.sub_id,
    country = EXCLUDED.country
`
		if _, err := tx.ExecContext(ctx, insPurchased,
			p.ID, p.UserID, p.AgentID, p.Phone, p.PhoneNumberSid, p.BundleSid, p.SubID, p.Country, p.CreatedAt,
		); err != nil {
			return err
		}

		const insLink = `
INSERT INTO used_phone_numbers (phone, user_id, agent_id)
VALUES ($1, $2, $3)
ON CONFLICT (phone) DO UPDATE
SET user_id = EXCLUDED.user_id, agent_id = EXCLUDED.agent_id
`
		_, err := tx.ExecContext(ctx, insLink, p.Phone, p.UserID, p.AgentID)
		return err
	})
}

func (r *SQLRepository) DeleteWithLink(ctx context.Context, phone string) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM used_phone_numbers WHERE phone = $1`, phone); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM purchased_phone_numbers WHERE phone = $1`, phone)
		return err
	})
}

func scanPurchased(row *sql.Row) (PurchasedPhoneNumber, error) {
	var p PurchasedPhoneNumber
	err := row.Scan(
		&p.ID, &p.UserID, &p.AgentID, &p.Phone, &p.PhoneNumberSid,
		&p.BundleSid, &p.SubID, &p.Country, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PurchasedPhoneNumber{}, ErrNotFound
		}
		return PurchasedPhoneNumber{}, err
	}
	return p, nil
}
