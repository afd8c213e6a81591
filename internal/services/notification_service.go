package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"montoit/internal/common"
	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService handles in-app notifications and outbound email/SMS
type NotificationService interface {
	// Notify writes the in-app row then delivers on the requested channels.
	// Delivery failures are logged and recorded on the row, never returned.
	Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, channels []models.Channel, data models.JSONB) error

	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error

	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, message string) error
}

type notificationService struct {
	repo     repositories.NotificationRepository
	userRepo repositories.UserRepository
	email    EmailSender
	sms      SMSSender
	logger   *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo repositories.NotificationRepository, userRepo repositories.UserRepository, email EmailSender, sms SMSSender, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:     repo,
		userRepo: userRepo,
		email:    email,
		sms:      sms,
		logger:   logger,
	}
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, kind, title, body string, channels []models.Channel, data models.JSONB) error {
	names := make([]string, 0, len(channels)+1)
	names = append(names, string(models.ChannelInApp))
	for _, ch := range channels {
		if ch != models.ChannelInApp {
			names = append(names, string(ch))
		}
	}

	n := &models.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		Kind:     kind,
		Title:    title,
		Body:     body,
		Channels: names,
		Data:     data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if len(names) == 1 {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.recordFailure(ctx, n, fmt.Errorf("load recipient: %w", err))
		return nil
	}

	var failures []error
	for _, ch := range names[1:] {
		switch models.Channel(ch) {
		case models.ChannelEmail:
			if err := s.email.SendEmail(ctx, user.Email, title, "<p>"+html.EscapeString(body)+"</p>"); err != nil {
				failures = append(failures, fmt.Errorf("email: %w", err))
			}
		case models.ChannelSMS:
			if user.Phone == nil {
				failures = append(failures, errors.New("sms: no phone number on file"))
				continue
			}
			if err := s.sms.SendSMS(ctx, *user.Phone, title+": "+body); err != nil {
				failures = append(failures, fmt.Errorf("sms: %w", err))
			}
		}
	}

	if len(failures) > 0 {
		s.recordFailure(ctx, n, errors.Join(failures...))
	}
	return nil
}

func (s *notificationService) recordFailure(ctx context.Context, n *models.Notification, err error) {
	s.logger.Warn("notification delivery failed",
		zap.String("notification_id", n.ID.String()),
		zap.String("user_id", n.UserID.String()),
		zap.String("kind", n.Kind),
		zap.Error(err))
	msg := strings.ReplaceAll(err.Error(), "\n", "; ")
	if dbErr := s.repo.SetDeliveryError(ctx, n.ID, msg); dbErr != nil {
		s.logger.Error("failed to record delivery error", zap.String("notification_id", n.ID.String()), zap.Error(dbErr))
	}
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int, error) {
	items, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

func (s *notificationService) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := common.ValidateEmail(to); err != nil {
		return common.ValidationError(err.Error())
	}
	if err := common.ValidateRequiredString(subject, "subject"); err != nil {
		return common.ValidationError(err.Error())
	}
	if err := s.email.SendEmail(ctx, to, subject, body); err != nil {
		return common.NewError(common.KindNetwork, "email delivery failed", err)
	}
	return nil
}

func (s *notificationService) SendSMS(ctx context.Context, to, message string) error {
	if err := common.ValidateIvorianPhone(to); err != nil {
		return common.ValidationError(err.Error())
	}
	if err := common.ValidateRequiredString(message, "message"); err != nil {
		return common.ValidationError(err.Error())
	}
	if err := s.sms.SendSMS(ctx, common.NormalizePhone(to), message); err != nil {
		return common.NewError(common.KindNetwork, "SMS delivery failed", err)
	}
	return nil
}
