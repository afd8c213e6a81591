package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// FactorEnrollment is returned when a TOTP factor is created
type FactorEnrollment struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	TOTP struct {
		QRCode string `json:"qr_code"`
		Secret string `json:"secret"`
		URI    string `json:"uri"`
	} `json:"totp"`
}

type FactorChallenge struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type backendError struct {
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *backendError) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.ErrorDescription != "":
		return e.ErrorDescription
	}
	return e.Error
}

// BackendAuthClient talks to the managed backend's auth service on behalf of a user
type BackendAuthClient interface {
	EnrollTOTP(ctx context.Context, userToken, friendlyName string) (*FactorEnrollment, error)
	Challenge(ctx context.Context, userToken, factorID string) (*FactorChallenge, error)
	Verify(ctx context.Context, userToken, factorID, challengeID, code string) error
	Unenroll(ctx context.Context, userToken, factorID string) error
}

type backendAuthClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewBackendAuthClient(baseURL, anonKey string, logger *zap.Logger) BackendAuthClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", anonKey)

	return &backendAuthClient{httpClient: client, logger: logger}
}

func (c *backendAuthClient) request(ctx context.Context, userToken string) *resty.Request {
	return c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(userToken).
		SetError(&backendError{})
}

func (c *backendAuthClient) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Error("backend auth call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("failed to call backend auth: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if be, ok := resp.Error().(*backendError); ok && be.text() != "" {
			msg = be.text()
		}
		c.logger.Warn("backend auth returned error",
			zap.String("op", op), zap.Int("status_code", resp.StatusCode()), zap.String("msg", msg))
		return fmt.Errorf("backend auth %s failed: %s", op, msg)
	}
	return nil
}

func (c *backendAuthClient) EnrollTOTP(ctx context.Context, userToken, friendlyName string) (*FactorEnrollment, error) {
	var enrollment FactorEnrollment
	resp, err := c.request(ctx, userToken).
		SetBody(map[string]string{"factor_type": "totp", "friendly_name": friendlyName}).
		SetResult(&enrollment).
		Post("/auth/v1/factors")
	if err := c.check("enroll", resp, err); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (c *backendAuthClient) Challenge(ctx context.Context, userToken, factorID string) (*FactorChallenge, error) {
	var challenge FactorChallenge
	resp, err := c.request(ctx, userToken).
		SetPathParam("factorID", factorID).
		SetResult(&challenge).
		Post("/auth/v1/factors/{factorID}/challenge")
	if err := c.check("challenge", resp, err); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (c *backendAuthClient) Verify(ctx context.Context, userToken, factorID, challengeID, code string) error {
	resp, err := c.request(ctx, userToken).
		SetPathParam("factorID", factorID).
		SetBody(map[string]string{"challenge_id": challengeID, "code": code}).
		Post("/auth/v1/factors/{factorID}/verify")
	return c.check("verify", resp, err)
}

func (c *backendAuthClient) Unenroll(ctx context.Context, userToken, factorID string) error {
	resp, err := c.request(ctx, userToken).
		SetPathParam("factorID", factorID).
		Delete("/auth/v1/factors/{factorID}")
	return c.check("unenroll", resp, err)
}
