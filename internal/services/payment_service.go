package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"
)

type InitiatePaymentRequest struct {
	Provider string `json:"provider"`
	Phone    string `json:"phone"`
}

type InitiatePaymentResponse struct {
	Transaction  *models.Transaction `json:"transaction"`
	Instructions string              `json:"instructions,omitempty"`
}

// WebhookPayload is the body the mobile money aggregator posts back
type WebhookPayload struct {
	Reference    string  `json:"reference"`
	Status       string  `json:"status"` // success, failed, pending
	Provider     string  `json:"provider"`
	Amount       float64 `json:"amount"`
	ProviderTxID string  `json:"provider_tx_id"`
	Reason       string  `json:"reason,omitempty"`
}

type PaymentService interface {
	// GenerateSchedule creates the monthly rent instalments of a lease once
	GenerateSchedule(ctx context.Context, lease *models.Lease) error
	ListForLease(ctx context.Context, actor Actor, leaseID uuid.UUID) ([]*models.RentPayment, error)
	Initiate(ctx context.Context, actor Actor, paymentID uuid.UUID, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	// MarkOverdue flags unpaid instalments due before today and reminds the tenants
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

type paymentService struct {
	repo          repositories.PaymentRepository
	leaseRepo     repositories.LeaseRepository
	provider      MobileMoneyClient
	mandates      MandateService
	rateLimit     RateLimitService
	notifications NotificationService
	webhookSecret string
	logger        *zap.Logger
	now           func() time.Time
}

func NewPaymentService(
	repo repositories.PaymentRepository,
	leaseRepo repositories.LeaseRepository,
	provider MobileMoneyClient,
	mandates MandateService,
	rateLimit RateLimitService,
	notifications NotificationService,
	webhookSecret string,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		repo:          repo,
		leaseRepo:     leaseRepo,
		provider:      provider,
		mandates:      mandates,
		rateLimit:     rateLimit,
		notifications: notifications,
		webhookSecret: webhookSecret,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RentDueDates lists one instalment per lease month: the start date for the
// first month, then the payment day of each following billing month
func RentDueDates(start, end time.Time, paymentDay int) []time.Time {
	var dates []time.Time
	for i := 0; ; i++ {
		if !monthAfter(start, i).Before(end) {
			return dates
		}
		if i == 0 {
			dates = append(dates, start)
			continue
		}
		dates = append(dates, time.Date(start.Year(), start.Month()+time.Month(i), paymentDay, 0, 0, 0, 0, time.UTC))
	}
}

// monthAfter shifts t by n months, clamping the day to the target month's length
func monthAfter(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

func (s *paymentService) GenerateSchedule(ctx context.Context, lease *models.Lease) error {
	existing, err := s.repo.ListByLease(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to check schedule: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	now := s.now()
	dates := RentDueDates(lease.StartDate, lease.EndDate, lease.PaymentDay)
	payments := make([]*models.RentPayment, 0, len(dates))
	for _, due := range dates {
		payments = append(payments, &models.RentPayment{
			ID:        uuid.New(),
			LeaseID:   lease.ID,
			TenantID:  lease.TenantID,
			Amount:    lease.MonthlyRent,
			Currency:  lease.Currency,
			DueDate:   due,
			Status:    models.PaymentDue,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.repo.CreateSchedule(ctx, payments); err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	s.logger.Info("rent schedule generated",
		zap.String("lease_id", lease.ID.String()),
		zap.Int("instalments", len(payments)))
	return nil
}

func (s *paymentService) ListForLease(ctx context.Context, actor Actor, leaseID uuid.UUID) ([]*models.RentPayment, error) {
	lease, err := s.leaseRepo.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !lease.IsParty(actor.ID) {
		allowed := false
		if actor.Role == common.RoleAgency {
			if allowed, err = s.mandates.HasPermission(ctx, actor.ID, lease.PropertyID, models.PermCollectPayments); err != nil {
				return nil, fmt.Errorf("failed to check mandate: %w", err)
			}
		}
		if !allowed {
			return nil, common.NotFoundError("lease")
		}
	}
	return s.repo.ListByLease(ctx, leaseID)
}

func newPaymentReference() string {
	return "MT" + time.Now().UTC().Format("060102") + random.String(10, random.Uppercase, random.Numeric)
}

func (s *paymentService) Initiate(ctx context.Context, actor Actor, paymentID uuid.UUID, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	if !models.MobileMoneyProviders[req.Provider] {
		return nil, common.ValidationError("provider must be one of: orange_money, mtn_money, moov_money, wave")
	}
	if err := common.ValidateIvorianPhone(req.Phone); err != nil {
		return nil, common.ValidationError(err.Error())
	}

	identifier := "user:" + actor.ID.String()
	if limit := s.rateLimit.Check(ctx, identifier, ActionPaymentInitiate); !limit.Allowed {
		return nil, common.NewError(common.KindRateLimited, "Too many payment attempts, please try again later", nil)
	}

	payment, err := s.repo.GetRentPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.TenantID != actor.ID {
		return nil, common.NotFoundError("payment")
	}
	switch payment.Status {
	case models.PaymentDue, models.PaymentOverdue, models.PaymentFailed:
	case models.PaymentPaid:
		return nil, common.ConflictError("this rent is already paid")
	default:
		return nil, common.ConflictError("a payment is already in progress")
	}
	s.rateLimit.Record(ctx, identifier, ActionPaymentInitiate)

	tx := &models.Transaction{
		ID:        uuid.New(),
		PaymentID: &payment.ID,
		UserID:    actor.ID,
		Provider:  req.Provider,
		Reference: newPaymentReference(),
		Amount:    payment.Amount,
		Currency:  common.Currency,
		Phone:     common.NormalizePhone(req.Phone),
		Status:    models.TransactionPending,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	previousStatus := payment.Status
	if err := s.repo.UpdateRentPaymentStatus(ctx, payment.ID, models.PaymentPending, nil); err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	resp, err := s.provider.Collect(ctx, &CollectRequest{
		Reference:   tx.Reference,
		Provider:    tx.Provider,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Phone:       tx.Phone,
		Description: "Loyer " + payment.DueDate.Format("01/2006"),
	})
	if err != nil {
		s.logger.Error("payment collection failed",
			zap.String("reference", tx.Reference),
			zap.String("provider", tx.Provider),
			zap.Error(err))

		tx.Status = models.TransactionFailed
		tx.FailureReason = common.StringPtr(err.Error())
		if updErr := s.repo.UpdateTransaction(ctx, tx); updErr != nil {
			s.logger.Error("failed to mark transaction failed", zap.String("reference", tx.Reference), zap.Error(updErr))
		}
		if updErr := s.repo.UpdateRentPaymentStatus(ctx, payment.ID, previousStatus, nil); updErr != nil {
			s.logger.Error("failed to restore payment status", zap.String("payment_id", payment.ID.String()), zap.Error(updErr))
		}
		return nil, common.NewError(common.KindNetwork, "The payment provider is unavailable, please try again", err)
	}

	if resp.ProviderTxID != "" {
		tx.ProviderTxID = &resp.ProviderTxID
		if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
			s.logger.Warn("failed to store provider transaction id", zap.String("reference", tx.Reference), zap.Error(err))
		}
	}

	s.logger.Info("payment initiated",
		zap.String("reference", tx.Reference),
		zap.String("provider", tx.Provider),
		zap.Float64("amount", tx.Amount))
	return &InitiatePaymentResponse{Transaction: tx, Instructions: resp.Instructions}, nil
}

// VerifyWebhookSignature checks a hex HMAC-SHA256 of body in constant time
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(signature))), []byte(expected))
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !VerifyWebhookSignature(s.webhookSecret, body, signature) {
		return common.NewError(common.KindUnauthorized, "Invalid webhook signature", nil)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return common.ValidationError("invalid webhook payload")
	}
	if payload.Reference == "" {
		return common.ValidationError("reference is required")
	}
	switch payload.Status {
	case models.TransactionSuccess, models.TransactionFailed, models.TransactionPending:
	default:
		return common.ValidationError("status must be one of: success, failed, pending")
	}

	tx, err := s.repo.GetTransactionByReference(ctx, payload.Reference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("transaction")
		}
		return err
	}

	if tx.IsFinal() || payload.Status == models.TransactionPending {
		s.logger.Info("webhook acknowledged without change",
			zap.String("reference", tx.Reference),
			zap.String("current_status", tx.Status),
			zap.String("reported_status", payload.Status))
		return nil
	}

	tx.Status = payload.Status
	if payload.ProviderTxID != "" {
		tx.ProviderTxID = &payload.ProviderTxID
	}
	if payload.Status == models.TransactionSuccess && payload.Amount > 0 && math.Abs(payload.Amount-tx.Amount) >= 1 {
		tx.Status = models.TransactionFailed
		payload.Reason = fmt.Sprintf("amount mismatch: expected %.0f, received %.0f", tx.Amount, payload.Amount)
	}
	if tx.Status == models.TransactionFailed {
		tx.FailureReason = common.StringPtr(payload.Reason)
	}
	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	s.logger.Info("payment settled",
		zap.String("reference", tx.Reference),
		zap.String("status", tx.Status))

	if tx.PaymentID == nil {
		return nil
	}
	return s.settleRentPayment(ctx, tx)
}

func (s *paymentService) settleRentPayment(ctx context.Context, tx *models.Transaction) error {
	payment, err := s.repo.GetRentPayment(ctx, *tx.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to load rent payment: %w", err)
	}

	if tx.Status != models.TransactionSuccess {
		if err := s.repo.UpdateRentPaymentStatus(ctx, payment.ID, models.PaymentFailed, nil); err != nil {
			return fmt.Errorf("failed to update rent payment: %w", err)
		}
		s.notify(ctx, payment.TenantID, models.KindPaymentFailed,
			"Paiement échoué",
			fmt.Sprintf("Votre paiement de %s (réf. %s) a échoué.", formatXOF(tx.Amount), tx.Reference),
			tx)
		return nil
	}

	paidAt := s.now()
	if err := s.repo.UpdateRentPaymentStatus(ctx, payment.ID, models.PaymentPaid, &paidAt); err != nil {
		return fmt.Errorf("failed to update rent payment: %w", err)
	}

	s.notify(ctx, payment.TenantID, models.KindPaymentReceived,
		"Paiement reçu",
		fmt.Sprintf("Votre loyer de %s a bien été reçu (réf. %s).", formatXOF(tx.Amount), tx.Reference),
		tx)

	lease, err := s.leaseRepo.GetByID(ctx, payment.LeaseID)
	if err != nil {
		s.logger.Warn("failed to load lease for owner notification", zap.String("lease_id", payment.LeaseID.String()), zap.Error(err))
		return nil
	}
	s.notify(ctx, lease.OwnerID, models.KindPaymentReceived,
		"Loyer encaissé",
		fmt.Sprintf("Un loyer de %s a été encaissé.", formatXOF(tx.Amount)),
		tx)
	return nil
}

func (s *paymentService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	overdue, err := s.repo.MarkOverdue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue payments: %w", err)
	}

	for _, p := range overdue {
		body := fmt.Sprintf("Votre loyer de %s dû le %s est en retard.", formatXOF(p.Amount), p.DueDate.Format("02/01/2006"))
		data := models.JSONB{"payment_id": p.ID.String(), "lease_id": p.LeaseID.String()}
		channels := []models.Channel{models.ChannelEmail, models.ChannelSMS}
		if err := s.notifications.Notify(ctx, p.TenantID, models.KindPaymentOverdue, "Loyer en retard", body, channels, data); err != nil {
			s.logger.Warn("overdue reminder failed", zap.String("payment_id", p.ID.String()), zap.Error(err))
		}
	}
	return len(overdue), nil
}

func (s *paymentService) notify(ctx context.Context, userID uuid.UUID, kind, title, body string, tx *models.Transaction) {
	data := models.JSONB{"reference": tx.Reference, "status": tx.Status, "amount": tx.Amount}
	channels := []models.Channel{models.ChannelEmail, models.ChannelSMS}
	if err := s.notifications.Notify(ctx, userID, kind, title, body, channels, data); err != nil {
		s.logger.Warn("payment notification failed", zap.String("reference", tx.Reference), zap.Error(err))
	}
}
