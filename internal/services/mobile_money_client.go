package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CollectRequest asks a mobile money provider to debit a subscriber
type CollectRequest struct {
	Reference   string  `json:"reference"`
	Provider    string  `json:"provider"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Phone       string  `json:"phone"`
	Description string  `json:"description"`
}

type CollectResponse struct {
	ProviderTxID string `json:"provider_tx_id"`
	Status       string `json:"status"`
	// Instructions is shown to the payer, e.g. the USSD code to confirm
	Instructions string `json:"instructions,omitempty"`
}

// MobileMoneyClient starts collections; the outcome arrives later through the webhook
type MobileMoneyClient interface {
	Collect(ctx context.Context, req *CollectRequest) (*CollectResponse, error)
}

type mobileMoneyClient struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewMobileMoneyClient builds the aggregator client. Without a URL collections are simulated.
func NewMobileMoneyClient(baseURL, apiKey string, logger *zap.Logger) MobileMoneyClient {
	c := &mobileMoneyClient{logger: logger}
	if baseURL != "" {
		c.http = resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15*time.Second).
			SetRetryCount(1).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
	}
	return c
}

func (c *mobileMoneyClient) Collect(ctx context.Context, req *CollectRequest) (*CollectResponse, error) {
	if c.http == nil {
		c.logger.Info("payment provider not configured, collection simulated",
			zap.String("reference", req.Reference),
			zap.String("provider", req.Provider))
		return &CollectResponse{
			ProviderTxID: "sim_" + req.Reference,
			Status:       "pending",
			Instructions: "Confirmez le paiement sur votre téléphone.",
		}, nil
	}

	var out CollectResponse
	var apiErr struct {
		Message string `json:"message"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/collections")
	if err != nil {
		return nil, fmt.Errorf("failed to call payment provider: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return nil, fmt.Errorf("payment provider returned %s: %s", resp.Status(), apiErr.Message)
		}
		return nil, fmt.Errorf("payment provider returned %s", resp.Status())
	}
	return &out, nil
}
