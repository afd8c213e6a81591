package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"montoit/internal/common"
	"montoit/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Moderation verdict sources
const (
	ModerationSourceAI    = "ai"
	ModerationSourceRules = "rules"
)

const moderationPrompt = `You moderate rental listings for an Ivorian property marketplace.
Reject listings that contain contact details (phone numbers, emails, URLs), requests for payment outside the platform,
discriminatory wording, or content unrelated to renting a property.
Answer only with JSON: {"approved": true|false, "reasons": ["..."]}.`

var (
	contactPhonePattern = regexp.MustCompile(`(\+?225[\s.-]?)?\b(0[157]|2[157])([\s.-]?\d{2}){4}\b`)
	contactURLPattern   = regexp.MustCompile(`(?i)(https?://|www\.)\S+|\b[\w.+-]+@[\w-]+\.[\w.]+\b`)
	bannedTerms         = []string{"western union", "moneygram", "avance de frais", "paiement hors plateforme", "arnaque", "pas d'étrangers", "ethnie"}
)

type ModerationResult struct {
	Status  string   `json:"status"` // approved, rejected, pending
	Reasons []string `json:"reasons"`
	Source  string   `json:"source"`
}

type GeneratedImage struct {
	Object string `json:"object"`
	URL    string `json:"url"`
}

type AIService interface {
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
	GenerateImage(ctx context.Context, userID uuid.UUID, prompt string) (*GeneratedImage, error)
}

type aiService struct {
	client     *resty.Client
	model      string
	imageModel string
	storage    MinioService
	rateLimit  RateLimitService
	logger     *zap.Logger
}

// NewAIService builds the moderation and image client. An empty apiURL or apiKey disables remote calls.
func NewAIService(apiURL, apiKey, model, imageModel string, timeout time.Duration, storage MinioService, rateLimit RateLimitService, logger *zap.Logger) AIService {
	s := &aiService{
		model:      model,
		imageModel: imageModel,
		storage:    storage,
		rateLimit:  rateLimit,
		logger:     logger,
	}
	if apiURL != "" && apiKey != "" {
		s.client = resty.New().
			SetBaseURL(apiURL).
			SetTimeout(timeout).
			SetRetryCount(1).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json")
	}
	return s
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type aiVerdict struct {
	Approved bool     `json:"approved"`
	Reasons  []string `json:"reasons"`
}

// Moderate asks the AI endpoint for a verdict and falls back to local rules
func (s *aiService) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.ValidationError("text is required")
	}

	rules := moderateWithRules(text)
	if s.client == nil {
		return rules, nil
	}

	verdict, err := s.askModeration(ctx, text)
	if err != nil {
		s.logger.Warn("AI moderation failed, using local rules", zap.Error(err))
		if rules.Status == models.ModerationApproved {
			rules.Status = models.ModerationPending
			rules.Reasons = append(rules.Reasons, "automatic moderation unavailable, manual review required")
		}
		return rules, nil
	}

	result := &ModerationResult{Status: models.ModerationApproved, Reasons: verdict.Reasons, Source: ModerationSourceAI}
	if !verdict.Approved || rules.Status == models.ModerationRejected {
		result.Status = models.ModerationRejected
		result.Reasons = append(result.Reasons, rules.Reasons...)
	}
	if result.Reasons == nil {
		result.Reasons = []string{}
	}
	return result, nil
}

func (s *aiService) askModeration(ctx context.Context, text string) (*aiVerdict, error) {
	var out chatResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: s.model,
			Messages: []chatMessage{
				{Role: "system", Content: moderationPrompt},
				{Role: "user", Content: text},
			},
			ResponseFormat: map[string]string{"type": "json_object"},
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("moderation endpoint returned %s", resp.Status())
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("moderation endpoint returned no choices")
	}

	var verdict aiVerdict
	if err := json.Unmarshal([]byte(out.Choices[0].Message.Content), &verdict); err != nil {
		return nil, fmt.Errorf("invalid moderation verdict: %w", err)
	}
	return &verdict, nil
}

func moderateWithRules(text string) *ModerationResult {
	reasons := []string{}
	if contactPhonePattern.MatchString(text) {
		reasons = append(reasons, "contains a phone number")
	}
	if contactURLPattern.MatchString(text) {
		reasons = append(reasons, "contains a link or email address")
	}
	lower := strings.ToLower(text)
	for _, term := range bannedTerms {
		if strings.Contains(lower, term) {
			reasons = append(reasons, fmt.Sprintf("contains banned term %q", term))
		}
	}

	status := models.ModerationApproved
	if len(reasons) > 0 {
		status = models.ModerationRejected
	}
	return &ModerationResult{Status: status, Reasons: reasons, Source: ModerationSourceRules}
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage renders prompt, stores the PNG and returns a presigned link
func (s *aiService) GenerateImage(ctx context.Context, userID uuid.UUID, prompt string) (*GeneratedImage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || len(prompt) > 1000 {
		return nil, common.ValidationError("prompt is required and cannot exceed 1000 characters")
	}
	if s.client == nil {
		return nil, common.NewError(common.KindNetwork, "image generation is not configured", nil)
	}

	identifier := "user:" + userID.String()
	if limit := s.rateLimit.Check(ctx, identifier, ActionAIGeneration); !limit.Allowed {
		return nil, common.NewError(common.KindRateLimited, "Daily image generation limit reached", nil)
	}
	s.rateLimit.Record(ctx, identifier, ActionAIGeneration)

	var out imageResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model":  s.imageModel,
			"prompt": prompt,
			"n":      1,
			"size":   "1024x1024",
		}).
		SetResult(&out).
		Post("/images/generations")
	if err != nil {
		return nil, common.NewError(common.KindNetwork, "image generation failed", err)
	}
	if resp.IsError() || len(out.Data) == 0 {
		return nil, common.NewError(common.KindNetwork, "image generation failed", fmt.Errorf("status %s", resp.Status()))
	}

	png, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return nil, common.NewError(common.KindNetwork, "image generation returned invalid data", err)
	}

	object := fmt.Sprintf("%s/%s.png", userID.String(), uuid.NewString())
	if err := s.storage.Upload(ctx, BucketGeneratedImages, object, bytes.NewReader(png), int64(len(png)), "image/png"); err != nil {
		return nil, fmt.Errorf("failed to store generated image: %w", err)
	}

	url, err := s.storage.PresignedURL(ctx, BucketGeneratedImages, object, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to sign generated image URL: %w", err)
	}

	s.logger.Info("image generated", zap.String("user_id", userID.String()), zap.String("object", object))
	return &GeneratedImage{Object: object, URL: url}, nil
}
