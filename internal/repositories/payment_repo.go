package repositories

import (
	"context"
	"time"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository interface {
	CreateSchedule(ctx context.Context, payments []*models.RentPayment) error
	GetRentPayment(ctx context.Context, id uuid.UUID) (*models.RentPayment, error)
	ListByLease(ctx context.Context, leaseID uuid.UUID) ([]*models.RentPayment, error)
	UpdateRentPaymentStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error
	MarkOverdue(ctx context.Context, before time.Time) ([]*models.RentPayment, error)
	NextDue(ctx context.Context, tenantID uuid.UUID) (*models.RentPayment, error)
	History(ctx context.Context, tenantID uuid.UUID) (*models.PaymentHistory, error)
	SumPaidForOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (float64, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
}

const rentPaymentColumns = `id, lease_id, tenant_id, amount, currency, due_date, status, paid_at, created_at, updated_at`

const transactionColumns = `id, payment_id, user_id, provider, reference, provider_tx_id, amount, currency, phone, status, failure_reason, created_at, updated_at`

type paymentRepo struct {
	db DBTX
}

func NewPaymentRepo(db DBTX) PaymentRepository {
	return &paymentRepo{db: db}
}

func scanRentPayment(row pgx.Row) (*models.RentPayment, error) {
	p := &models.RentPayment{}
	err := row.Scan(&p.ID, &p.LeaseID, &p.TenantID, &p.Amount, &p.Currency, &p.DueDate, &p.Status, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) listRentPayments(ctx context.Context, query string, args ...any) ([]*models.RentPayment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.RentPayment
	for rows.Next() {
		p, err := scanRentPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// CreateSchedule inserts every instalment of a lease or none of them
func (r *paymentRepo) CreateSchedule(ctx context.Context, payments []*models.RentPayment) error {
	query := `
		INSERT INTO rent_payments (id, lease_id, tenant_id, amount, currency, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, p := range payments {
			if _, err := tx.Exec(ctx, query, p.ID, p.LeaseID, p.TenantID, p.Amount, p.Currency, p.DueDate, p.Status); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *paymentRepo) GetRentPayment(ctx context.Context, id uuid.UUID) (*models.RentPayment, error) {
	return scanRentPayment(r.db.QueryRow(ctx, `SELECT `+rentPaymentColumns+` FROM rent_payments WHERE id = $1`, id))
}

func (r *paymentRepo) ListByLease(ctx context.Context, leaseID uuid.UUID) ([]*models.RentPayment, error) {
	return r.listRentPayments(ctx, `SELECT `+rentPaymentColumns+` FROM rent_payments WHERE lease_id = $1 ORDER BY due_date ASC`, leaseID)
}

func (r *paymentRepo) UpdateRentPaymentStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error {
	query := `UPDATE rent_payments SET status = $1, paid_at = $2, updated_at = NOW() WHERE id = $3`
	return requireRow(r.db.Exec(ctx, query, status, paidAt, id))
}

// MarkOverdue flags unpaid instalments due before the given time and returns them
func (r *paymentRepo) MarkOverdue(ctx context.Context, before time.Time) ([]*models.RentPayment, error) {
	query := `
		UPDATE rent_payments SET status = 'overdue', updated_at = NOW()
		WHERE status IN ('due', 'failed') AND due_date < $1
		RETURNING ` + rentPaymentColumns
	return r.listRentPayments(ctx, query, before)
}

func (r *paymentRepo) NextDue(ctx context.Context, tenantID uuid.UUID) (*models.RentPayment, error) {
	query := `
		SELECT ` + rentPaymentColumns + `
		FROM rent_payments
		WHERE tenant_id = $1 AND status IN ('due', 'overdue', 'failed')
		ORDER BY due_date ASC
		LIMIT 1
	`
	return scanRentPayment(r.db.QueryRow(ctx, query, tenantID))
}

// History counts instalments that have fallen due and those paid by their due date
func (r *paymentRepo) History(ctx context.Context, tenantID uuid.UUID) (*models.PaymentHistory, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'paid' OR due_date < NOW()),
			COUNT(*) FILTER (WHERE status = 'paid' AND paid_at < due_date + INTERVAL '1 day')
		FROM rent_payments
		WHERE tenant_id = $1
	`
	h := &models.PaymentHistory{}
	if err := r.db.QueryRow(ctx, query, tenantID).Scan(&h.Total, &h.OnTime); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *paymentRepo) SumPaidForOwner(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(rp.amount), 0)
		FROM rent_payments rp
		JOIN leases l ON l.id = rp.lease_id
		WHERE l.owner_id = $1 AND rp.status = 'paid' AND rp.paid_at >= $2 AND rp.paid_at < $3
	`
	var total float64
	err := r.db.QueryRow(ctx, query, ownerID, from, to).Scan(&total)
	return total, err
}

func (r *paymentRepo) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, payment_id, user_id, provider, reference, amount, currency, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, t.ID, t.PaymentID, t.UserID, t.Provider, t.Reference, t.Amount, t.Currency, t.Phone, t.Status)
	return err
}

func (r *paymentRepo) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	t := &models.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	err := r.db.QueryRow(ctx, query, reference).Scan(&t.ID, &t.PaymentID, &t.UserID, &t.Provider, &t.Reference, &t.ProviderTxID,
		&t.Amount, &t.Currency, &t.Phone, &t.Status, &t.FailureReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *paymentRepo) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `
		UPDATE transactions
		SET status = $1, provider_tx_id = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $4
	`
	return requireRow(r.db.Exec(ctx, query, t.Status, t.ProviderTxID, t.FailureReason, t.ID))
}
