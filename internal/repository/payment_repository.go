package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/ecowriter/internal/models"
)

// Conn hands out the shared database handle.
type Conn interface {
	DB(ctx context.Context) (*sql.DB, error)
}

type PaymentRepository struct {
	conn Conn
}

func NewPaymentRepository(conn Conn) *PaymentRepository {
	return &PaymentRepository{conn: conn}
}

const paymentColumns = `id, name, email, upi_id, COALESCE(transaction_id, ''), amount, currency, plan, screenshot_url, status, COALESCE(admin_note, ''), created_at, updated_at, verified_at`

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO payments (name, email, upi_id, transaction_id, amount, currency, plan, screenshot_url, status)
VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, query, payment.Name, payment.Email, payment.UPIID, payment.TransactionID, payment.Amount, payment.Currency, payment.Plan, payment.ScreenshotURL, payment.Status)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	created, err := r.getByID(ctx, db, id)
	if err != nil {
		return err
	}
	if created != nil {
		*payment = *created
	} else {
		payment.ID = id
	}
	return nil
}

func (r *PaymentRepository) List(ctx context.Context) ([]models.Payment, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, err
	}
	return r.getByID(ctx, db, id)
}

func (r *PaymentRepository) getByID(ctx context.Context, db *sql.DB, id int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	p, err := scanPayment(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// UpdateReview stores the reviewed status, note and verification time.
func (r *PaymentRepository) UpdateReview(ctx context.Context, payment *models.Payment) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	const query = `
UPDATE payments SET status = ?, admin_note = NULLIF(?, ''), verified_at = ?, updated_at = NOW(3)
WHERE id = ?`
	var verifiedAt any
	if payment.VerifiedAt != nil {
		verifiedAt = payment.VerifiedAt.UTC()
	}
	if _, err := db.ExecContext(ctx, query, payment.Status, payment.AdminNote, verifiedAt, payment.ID); err != nil {
		return fmt.Errorf("update payment review: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var verifiedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.UPIID, &p.TransactionID, &p.Amount, &p.Currency, &p.Plan, &p.ScreenshotURL, &p.Status, &p.AdminNote, &p.CreatedAt, &p.UpdatedAt, &verifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time.In(time.UTC)
		p.VerifiedAt = &t
	}
	return &p, nil
}
