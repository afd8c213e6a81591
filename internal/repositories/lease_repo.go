package repositories

import (
	"context"
	"time"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LeaseRepository interface {
	Create(ctx context.Context, lease *models.Lease) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error)
	Update(ctx context.Context, lease *models.Lease) error
	RecordSignature(ctx context.Context, sig *models.LeaseSignature) (*models.Lease, error)
	ListSignatures(ctx context.Context, leaseID uuid.UUID) ([]*models.LeaseSignature, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Lease, error)
	ListPendingCertification(ctx context.Context) ([]*models.Lease, error)
	ExpireEnded(ctx context.Context, now time.Time) ([]*models.Lease, error)
	CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	CountActiveByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountPendingCertification(ctx context.Context) (int, error)
}

const leaseColumns = `id, property_id, owner_id, tenant_id, application_id, monthly_rent, deposit, currency, start_date, end_date, payment_day, status, tenant_signed_at, owner_signed_at, document_object, certification_status, certification_notes, certification_requested_at, certified_at, terminated_at, termination_reason, created_at, updated_at`

type leaseRepo struct {
	db DBTX
}

func NewLeaseRepo(db DBTX) LeaseRepository {
	return &leaseRepo{db: db}
}

func scanLease(row pgx.Row) (*models.Lease, error) {
	l := &models.Lease{}
	err := row.Scan(&l.ID, &l.PropertyID, &l.OwnerID, &l.TenantID, &l.ApplicationID, &l.MonthlyRent, &l.Deposit, &l.Currency,
		&l.StartDate, &l.EndDate, &l.PaymentDay, &l.Status, &l.TenantSignedAt, &l.OwnerSignedAt, &l.DocumentObject,
		&l.CertificationStatus, &l.CertificationNotes, &l.CertificationRequestedAt, &l.CertifiedAt, &l.TerminatedAt,
		&l.TerminationReason, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *leaseRepo) list(ctx context.Context, query string, args ...any) ([]*models.Lease, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leases []*models.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, l)
	}
	return leases, rows.Err()
}

func (r *leaseRepo) Create(ctx context.Context, lease *models.Lease) error {
	query := `
		INSERT INTO leases (id, property_id, owner_id, tenant_id, application_id, monthly_rent, deposit, currency, start_date, end_date, payment_day, status, certification_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, lease.ID, lease.PropertyID, lease.OwnerID, lease.TenantID, lease.ApplicationID,
		lease.MonthlyRent, lease.Deposit, lease.Currency, lease.StartDate, lease.EndDate, lease.PaymentDay, lease.Status,
		lease.CertificationStatus)
	return err
}

func (r *leaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lease, error) {
	return scanLease(r.db.QueryRow(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = $1`, id))
}

const updateLeaseQuery = `
	UPDATE leases
	SET status = $1, tenant_signed_at = $2, owner_signed_at = $3, document_object = $4, certification_status = $5,
		certification_notes = $6, certification_requested_at = $7, certified_at = $8, terminated_at = $9,
		termination_reason = $10, updated_at = NOW()
	WHERE id = $11
`

func updateLeaseArgs(lease *models.Lease) []any {
	return []any{lease.Status, lease.TenantSignedAt, lease.OwnerSignedAt, lease.DocumentObject, lease.CertificationStatus,
		lease.CertificationNotes, lease.CertificationRequestedAt, lease.CertifiedAt, lease.TerminatedAt,
		lease.TerminationReason, lease.ID}
}

func (r *leaseRepo) Update(ctx context.Context, lease *models.Lease) error {
	return requireRow(r.db.Exec(ctx, updateLeaseQuery, updateLeaseArgs(lease)...))
}

// signLeaseQuery stamps the signer's column only while the lease awaits that
// signer, and activates it in the same statement once both parties have signed
const signLeaseQuery = `
	UPDATE leases
	SET owner_signed_at = CASE WHEN $2::text = 'owner' THEN $3::timestamptz ELSE owner_signed_at END,
		tenant_signed_at = CASE WHEN $2::text = 'tenant' THEN $3::timestamptz ELSE tenant_signed_at END,
		status = CASE
			WHEN (owner_signed_at IS NOT NULL OR $2::text = 'owner') AND (tenant_signed_at IS NOT NULL OR $2::text = 'tenant')
			THEN 'active' ELSE status END,
		updated_at = NOW()
	WHERE id = $1
		AND status = 'pending_signature'
		AND CASE WHEN $2::text = 'owner' THEN owner_signed_at IS NULL ELSE tenant_signed_at IS NULL END
	RETURNING ` + leaseColumns

// RecordSignature stores sig and stamps the lease in one transaction, returning
// the lease as written. pgx.ErrNoRows means the lease no longer awaits this signer.
func (r *leaseRepo) RecordSignature(ctx context.Context, sig *models.LeaseSignature) (*models.Lease, error) {
	var lease *models.Lease
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		lease, err = scanLease(tx.QueryRow(ctx, signLeaseQuery, sig.LeaseID, sig.SignerRole, sig.SignedAt))
		if err != nil {
			return err
		}
		insert := `
			INSERT INTO lease_signatures (id, lease_id, signer_id, signer_role, signature_hash, ip_address, signed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err = tx.Exec(ctx, insert, sig.ID, sig.LeaseID, sig.SignerID, sig.SignerRole, sig.SignatureHash, sig.IPAddress, sig.SignedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

func (r *leaseRepo) ListSignatures(ctx context.Context, leaseID uuid.UUID) ([]*models.LeaseSignature, error) {
	query := `
		SELECT id, lease_id, signer_id, signer_role, signature_hash, ip_address, signed_at
		FROM lease_signatures
		WHERE lease_id = $1
		ORDER BY signed_at ASC
	`
	rows, err := r.db.Query(ctx, query, leaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []*models.LeaseSignature
	for rows.Next() {
		s := &models.LeaseSignature{}
		if err := rows.Scan(&s.ID, &s.LeaseID, &s.SignerID, &s.SignerRole, &s.SignatureHash, &s.IPAddress, &s.SignedAt); err != nil {
			return nil, err
		}
		sigs = append(sigs, s)
	}
	return sigs, rows.Err()
}

func (r *leaseRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Lease, error) {
	return r.list(ctx, `SELECT `+leaseColumns+` FROM leases WHERE owner_id = $1 OR tenant_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *leaseRepo) ListPendingCertification(ctx context.Context) ([]*models.Lease, error) {
	return r.list(ctx, `SELECT `+leaseColumns+` FROM leases WHERE certification_status = 'pending' ORDER BY certification_requested_at ASC`)
}

// ExpireEnded moves active leases whose end date has passed to expired and returns them
func (r *leaseRepo) ExpireEnded(ctx context.Context, now time.Time) ([]*models.Lease, error) {
	query := `
		UPDATE leases SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_date < $1
		RETURNING ` + leaseColumns
	return r.list(ctx, query, now)
}

func (r *leaseRepo) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *leaseRepo) CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM leases WHERE owner_id = $1 AND status = 'active'`, ownerID)
}

func (r *leaseRepo) CountActiveByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM leases WHERE tenant_id = $1 AND status = 'active'`, tenantID)
}

func (r *leaseRepo) CountPendingCertification(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM leases WHERE certification_status = 'pending'`)
}
