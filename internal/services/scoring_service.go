package services

import (
	"context"
	"fmt"
	"math"

	"montoit/internal/models"
	"montoit/internal/repositories"

	"github.com/google/uuid"
)

// Score recommendations
const (
	RecommendApprove     = "approve"
	RecommendConditional = "conditional"
	RecommendReject      = "reject"
)

// ScoreProfile holds the facts a tenant score is computed from
type ScoreProfile struct {
	IdentityVerified   bool
	EmploymentVerified bool
	PaymentHistory     *models.PaymentHistory
	MonthlyIncome      float64
	MonthlyRent        float64
	DocumentsOnFile    bool
	ProfileComplete    bool
}

type ScoreFactor struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Max    int    `json:"max"`
	Detail string `json:"detail,omitempty"`
}

type ScoreResult struct {
	Score          int           `json:"score"`
	Recommendation string        `json:"recommendation"`
	Factors        []ScoreFactor `json:"factors"`
}

// ComputeScore rates a tenant from 0 to 100
func ComputeScore(p ScoreProfile) ScoreResult {
	var factors []ScoreFactor

	identity := 0
	if p.IdentityVerified {
		identity = 25
	}
	factors = append(factors, ScoreFactor{Name: "identity_verified", Points: identity, Max: 25})

	employment := 0
	if p.EmploymentVerified {
		employment = 20
	}
	factors = append(factors, ScoreFactor{Name: "employment_verified", Points: employment, Max: 20})

	history := ScoreFactor{Name: "payment_history", Max: 20, Detail: "no history"}
	if p.PaymentHistory != nil && p.PaymentHistory.Total > 0 {
		ratio := float64(p.PaymentHistory.OnTime) / float64(p.PaymentHistory.Total)
		history.Detail = fmt.Sprintf("%d/%d on time", p.PaymentHistory.OnTime, p.PaymentHistory.Total)
		switch {
		case ratio >= 0.90:
			history.Points = 20
		case ratio >= 0.75:
			history.Points = 15
		case ratio >= 0.50:
			history.Points = 10
		}
	}
	factors = append(factors, history)

	income := ScoreFactor{Name: "income_ratio", Max: 15}
	if p.MonthlyRent > 0 {
		ratio := p.MonthlyIncome / p.MonthlyRent
		income.Detail = fmt.Sprintf("%.2fx rent", ratio)
		switch {
		case ratio >= 3.0:
			income.Points = 15
		case ratio >= 2.0:
			income.Points = 10
		case ratio >= 1.5:
			income.Points = 5
		}
	}
	factors = append(factors, income)

	documents := 0
	if p.DocumentsOnFile {
		documents = 10
	}
	factors = append(factors, ScoreFactor{Name: "documents", Points: documents, Max: 10})

	profile := 0
	if p.ProfileComplete {
		profile = 10
	}
	factors = append(factors, ScoreFactor{Name: "profile_complete", Points: profile, Max: 10})

	total := 0
	for _, f := range factors {
		total += f.Points
	}
	total = int(math.Max(0, math.Min(100, float64(total))))

	return ScoreResult{Score: total, Recommendation: recommendationFor(total), Factors: factors}
}

func recommendationFor(score int) string {
	switch {
	case score >= 70:
		return RecommendApprove
	case score >= 50:
		return RecommendConditional
	default:
		return RecommendReject
	}
}

type ScoringService interface {
	ScoreApplicant(ctx context.Context, userID uuid.UUID, monthlyRent float64) (*ScoreResult, error)
}

type scoringService struct {
	userRepo         repositories.UserRepository
	paymentRepo      repositories.PaymentRepository
	verificationRepo repositories.VerificationRepository
}

func NewScoringService(userRepo repositories.UserRepository, paymentRepo repositories.PaymentRepository, verificationRepo repositories.VerificationRepository) ScoringService {
	return &scoringService{
		userRepo:         userRepo,
		paymentRepo:      paymentRepo,
		verificationRepo: verificationRepo,
	}
}

// ScoreApplicant gathers the applicant's facts and scores them against monthlyRent
func (s *scoringService) ScoreApplicant(ctx context.Context, userID uuid.UUID, monthlyRent float64) (*ScoreResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load applicant: %w", err)
	}

	history, err := s.paymentRepo.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment history: %w", err)
	}

	approved, err := s.verificationRepo.CountApprovedTypes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count verifications: %w", err)
	}

	income := 0.0
	if user.MonthlyIncome != nil {
		income = *user.MonthlyIncome
	}

	result := ComputeScore(ScoreProfile{
		IdentityVerified:   user.IdentityVerified,
		EmploymentVerified: user.EmploymentVerified,
		PaymentHistory:     history,
		MonthlyIncome:      income,
		MonthlyRent:        monthlyRent,
		DocumentsOnFile:    approved > 0,
		ProfileComplete:    user.ProfileCompleted,
	})
	return &result, nil
}
