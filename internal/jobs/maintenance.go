package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"montoit/internal/models"
	"montoit/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job names accepted by the scheduler and montoitctl run-job
const (
	JobLeaseExpiry       = "lease-expiry"
	JobRentOverdue       = "rent-overdue"
	JobMandateExpiry     = "mandate-expiry"
	JobMFAGraceReminders = "mfa-grace-reminders"
	JobRateLimitPurge    = "rate-limit-purge"
)

// RateLimitRetention is how long rate limit events are kept; it covers the widest window
const RateLimitRetention = 48 * time.Hour

type LeaseExpirer interface {
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

type MandateExpirer interface {
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

type MFAAuditor interface {
	Audit(ctx context.Context) ([]services.MFAAuditEntry, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, channels []models.Channel, data models.JSONB) error
}

type EventPurger interface {
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

// MaintenanceTasks holds the periodic work of the platform
type MaintenanceTasks struct {
	leases        LeaseExpirer
	payments      OverdueMarker
	mandates      MandateExpirer
	mfa           MFAAuditor
	notifications Notifier
	rateLimits    EventPurger
	logger        *zap.Logger
	now           func() time.Time
}

func NewMaintenanceTasks(leases LeaseExpirer, payments OverdueMarker, mandates MandateExpirer,
	mfa MFAAuditor, notifications Notifier, rateLimits EventPurger, logger *zap.Logger) *MaintenanceTasks {
	return &MaintenanceTasks{
		leases:        leases,
		payments:      payments,
		mandates:      mandates,
		mfa:           mfa,
		notifications: notifications,
		rateLimits:    rateLimits,
		logger:        logger,
		now:           time.Now,
	}
}

// Tasks maps every job name to its function
func (t *MaintenanceTasks) Tasks() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		JobLeaseExpiry:       t.ExpireLeases,
		JobRentOverdue:       t.MarkOverdueRent,
		JobMandateExpiry:     t.ExpireMandates,
		JobMFAGraceReminders: t.RemindMFAGrace,
		JobRateLimitPurge:    t.PurgeRateLimitEvents,
	}
}

// Names returns the job names in a stable order
func (t *MaintenanceTasks) Names() []string {
	names := make([]string, 0, len(t.Tasks()))
	for name := range t.Tasks() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one job by name
func (t *MaintenanceTasks) Run(ctx context.Context, name string) error {
	task, ok := t.Tasks()[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return task(ctx)
}

func (t *MaintenanceTasks) ExpireLeases(ctx context.Context) error {
	n, err := t.leases.ExpireEnded(ctx, t.now())
	if err != nil {
		return fmt.Errorf("expire leases: %w", err)
	}
	t.logger.Info("expired ended leases", zap.Int("count", n))
	return nil
}

func (t *MaintenanceTasks) MarkOverdueRent(ctx context.Context) error {
	n, err := t.payments.MarkOverdue(ctx, t.now())
	if err != nil {
		return fmt.Errorf("mark overdue rent: %w", err)
	}
	t.logger.Info("marked overdue rent payments", zap.Int("count", n))
	return nil
}

func (t *MaintenanceTasks) ExpireMandates(ctx context.Context) error {
	n, err := t.mandates.ExpireEnded(ctx, t.now())
	if err != nil {
		return fmt.Errorf("expire mandates: %w", err)
	}
	t.logger.Info("expired ended mandates", zap.Int("count", n))
	return nil
}

// RemindMFAGrace notifies privileged users still inside their grace period
func (t *MaintenanceTasks) RemindMFAGrace(ctx context.Context) error {
	entries, err := t.mfa.Audit(ctx)
	if err != nil {
		return fmt.Errorf("mfa audit: %w", err)
	}

	reminded := 0
	for _, entry := range entries {
		if entry.Compliance.Status != services.MFAGracePeriod {
			continue
		}
		body := fmt.Sprintf("Activez la double authentification. Il vous reste %d jour(s) avant la restriction de votre compte.", entry.Compliance.DaysRemaining)
		err := t.notifications.Notify(ctx, entry.User.ID, models.KindMFAReminder, "Double authentification requise", body,
			[]models.Channel{models.ChannelInApp, models.ChannelEmail},
			models.JSONB{"days_remaining": entry.Compliance.DaysRemaining})
		if err != nil {
			t.logger.Warn("failed to send MFA reminder", zap.String("user_id", entry.User.ID.String()), zap.Error(err))
			continue
		}
		reminded++
	}
	t.logger.Info("sent MFA grace reminders", zap.Int("count", reminded))
	return nil
}

func (t *MaintenanceTasks) PurgeRateLimitEvents(ctx context.Context) error {
	n, err := t.rateLimits.PurgeBefore(ctx, t.now().Add(-RateLimitRetention))
	if err != nil {
		return fmt.Errorf("purge rate limit events: %w", err)
	}
	t.logger.Info("purged rate limit events", zap.Int64("count", n))
	return nil
}
