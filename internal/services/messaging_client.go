package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// EmailSender delivers transactional email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// SMSSender delivers text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type httpMessagingClient struct {
	email     *resty.Client
	sms       *resty.Client
	emailFrom string
	smsSender string
	logger    *zap.Logger
}

// NewMessagingClient builds an email and SMS client. A channel with no API key only logs messages.
func NewMessagingClient(emailURL, emailKey, emailFrom, smsURL, smsKey, smsSender string, logger *zap.Logger) *httpMessagingClient {
	c := &httpMessagingClient{emailFrom: emailFrom, smsSender: smsSender, logger: logger}
	if emailKey != "" && emailURL != "" {
		c.email = newProviderClient(emailURL, emailKey)
	}
	if smsKey != "" && smsURL != "" {
		c.sms = newProviderClient(smsURL, smsKey)
	}
	return c
}

func newProviderClient(url, key string) *resty.Client {
	return resty.New().
		SetBaseURL(url).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetAuthToken(key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

func (c *httpMessagingClient) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if c.email == nil {
		c.logger.Info("email provider not configured, message logged only",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	resp, err := c.email.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"from":    c.emailFrom,
			"to":      []string{to},
			"subject": subject,
			"html":    htmlBody,
		}).
		Post("")
	if err != nil {
		return fmt.Errorf("failed to call email provider: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("email provider returned %s", resp.Status())
	}
	return nil
}

func (c *httpMessagingClient) SendSMS(ctx context.Context, to, message string) error {
	if c.sms == nil {
		c.logger.Info("SMS provider not configured, message logged only",
			zap.String("to", to), zap.Int("length", len(message)))
		return nil
	}

	resp, err := c.sms.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"from": c.smsSender,
			"to":   to,
			"text": message,
		}).
		Post("")
	if err != nil {
		return fmt.Errorf("failed to call SMS provider: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("SMS provider returned %s", resp.Status())
	}
	return nil
}
