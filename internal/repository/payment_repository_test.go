package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/digkill/ecowriter/internal/models"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *int:
			*p = r.values[i].(int)
		case *string:
			*p = r.values[i].(string)
		case *models.PlanID:
			*p = models.PlanID(r.values[i].(string))
		case *models.PaymentStatus:
			*p = models.PaymentStatus(r.values[i].(string))
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *sql.NullTime:
			if t, ok := r.values[i].(time.Time); ok {
				*p = sql.NullTime{Time: t, Valid: true}
			}
		}
	}
	return nil
}

func paymentRow(verifiedAt any) fakeRow {
	created := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	return fakeRow{values: []any{
		int64(12), "Asha", "asha@example.com", "asha@okaxis", "", 49900, "INR", "pro",
		"https://cdn.example.com/payments/a.jpg", "approved", "ok", created, created, verifiedAt,
	}}
}

func TestScanPayment(t *testing.T) {
	verified := time.Date(2026, 4, 3, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	p, err := scanPayment(paymentRow(verified))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 12 || p.Plan != models.PlanPro || p.Status != models.PaymentApproved || p.Amount != 49900 {
		t.Fatalf("unexpected payment %+v", p)
	}
	if p.VerifiedAt == nil || p.VerifiedAt.Location() != time.UTC || !p.VerifiedAt.Equal(verified) {
		t.Fatalf("unexpected verifiedAt %v", p.VerifiedAt)
	}

	p, err = scanPayment(paymentRow(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.VerifiedAt != nil {
		t.Fatalf("expected nil verifiedAt, got %v", p.VerifiedAt)
	}
}

func TestScanPaymentNoRows(t *testing.T) {
	if _, err := scanPayment(fakeRow{err: sql.ErrNoRows}); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

type failingConn struct{ err error }

func (c failingConn) DB(context.Context) (*sql.DB, error) { return nil, c.err }

func TestRepositoryPropagatesConnectError(t *testing.T) {
	connErr := errors.New("dial tcp: connection refused")
	repo := NewPaymentRepository(failingConn{err: connErr})
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Payment{}); !errors.Is(err, connErr) {
		t.Fatalf("create: expected connect error, got %v", err)
	}
	if _, err := repo.List(ctx); !errors.Is(err, connErr) {
		t.Fatalf("list: expected connect error, got %v", err)
	}
	if _, err := repo.GetByID(ctx, 1); !errors.Is(err, connErr) {
		t.Fatalf("get: expected connect error, got %v", err)
	}
	if err := repo.UpdateReview(ctx, &models.Payment{ID: 1}); !errors.Is(err, connErr) {
		t.Fatalf("update: expected connect error, got %v", err)
	}
}

type mockConn struct{ db *sql.DB }

func (c mockConn) DB(context.Context) (*sql.DB, error) { return c.db, nil }

func newMockRepository(t *testing.T) (*PaymentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		db.Close()
	})
	return NewPaymentRepository(mockConn{db: db}), mock
}

var paymentColumnNames = []string{
	"id", "name", "email", "upi_id", "transaction_id", "amount", "currency", "plan",
	"screenshot_url", "status", "admin_note", "created_at", "updated_at", "verified_at",
}

func addPaymentRow(rows *sqlmock.Rows, id int64, status string, created time.Time, verifiedAt any) *sqlmock.Rows {
	return rows.AddRow(id, "Asha", "asha@example.com", "asha@okaxis", "", int64(49900), "INR", "pro",
		"https://cdn.example.com/payments/a.jpg", status, "", created, created, verifiedAt)
}

func TestListOrdersNewestFirst(t *testing.T) {
	repo, mock := newMockRepository(t)
	newer := time.Date(2026, 4, 3, 9, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	rows := sqlmock.NewRows(paymentColumnNames)
	addPaymentRow(rows, 2, "pending", newer, nil)
	addPaymentRow(rows, 1, "approved", older, older)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments ORDER BY created_at DESC, id DESC")).WillReturnRows(rows)

	payments, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 2 || payments[0].ID != 2 || payments[1].ID != 1 {
		t.Fatalf("unexpected payments %+v", payments)
	}
	if payments[0].VerifiedAt != nil || payments[1].VerifiedAt == nil {
		t.Fatalf("unexpected verifiedAt values %+v", payments)
	}
}

func TestCreateReadsBackStoredRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2026, 4, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments (name, email, upi_id, transaction_id, amount, currency, plan, screenshot_url, status)")).
		WithArgs("Asha", "asha@example.com", "asha@okaxis", "", 49900, "INR", models.PlanPro, "https://cdn.example.com/payments/a.jpg", models.PaymentPending).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(addPaymentRow(sqlmock.NewRows(paymentColumnNames), 7, "pending", created, nil))

	payment := &models.Payment{
		Name: "Asha", Email: "asha@example.com", UPIID: "asha@okaxis", Amount: 49900, Currency: "INR",
		Plan: models.PlanPro, ScreenshotURL: "https://cdn.example.com/payments/a.jpg", Status: models.PaymentPending,
	}
	if err := repo.Create(context.Background(), payment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.ID != 7 || !payment.CreatedAt.Equal(created) {
		t.Fatalf("row not read back: %+v", payment)
	}
}

func TestGetByIDMissingRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(paymentColumnNames))

	payment, err := repo.GetByID(context.Background(), 99)
	if err != nil || payment != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", payment, err)
	}
}

const updateReviewSQL = "UPDATE payments SET status = ?, admin_note = NULLIF(?, ''), verified_at = ?, updated_at = NOW(3) WHERE id = ?"

func TestUpdateReviewApproveBindsVerifiedAt(t *testing.T) {
	repo, mock := newMockRepository(t)
	verified := time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(updateReviewSQL)).
		WithArgs(models.PaymentApproved, "matched bank statement", verified, int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateReview(context.Background(), &models.Payment{
		ID: 12, Status: models.PaymentApproved, AdminNote: "matched bank statement", VerifiedAt: &verified,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateReviewRejectStoresNullVerifiedAtAndKeepsNote(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(updateReviewSQL)).
		WithArgs(models.PaymentRejected, "first look", nil, int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateReview(context.Background(), &models.Payment{
		ID: 12, Status: models.PaymentRejected, AdminNote: "first look",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateReviewWrapsExecError(t *testing.T) {
	repo, mock := newMockRepository(t)
	dbErr := errors.New("lock wait timeout")
	mock.ExpectExec(regexp.QuoteMeta(updateReviewSQL)).WillReturnError(dbErr)

	if err := repo.UpdateReview(context.Background(), &models.Payment{ID: 1, Status: models.PaymentRejected}); !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}

func TestUpdateReviewEmptyNoteBindsEmptyString(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(updateReviewSQL)).
		WithArgs(models.PaymentRejected, "", nil, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateReview(context.Background(), &models.Payment{ID: 3, Status: models.PaymentRejected}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
