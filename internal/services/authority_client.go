package services

import (
	"context"
	"time"

	"montoit/internal/models"

	"go.uber.org/zap"
)

// AuthorityCheck is what is sent to ONECI, CNAM or the passport registry
type AuthorityCheck struct {
	Type           string
	DocumentNumber string
	FirstName      string
	LastName       string
	BirthDate      time.Time
}

// AuthorityClient queries the issuing authority of an identity document
type AuthorityClient interface {
	Check(ctx context.Context, check *AuthorityCheck) (models.JSONB, error)
}

type simulatedAuthorityClient struct {
	logger *zap.Logger
}

// NewSimulatedAuthorityClient answers every check locally; the authorities expose no public API yet
func NewSimulatedAuthorityClient(logger *zap.Logger) AuthorityClient {
	return &simulatedAuthorityClient{logger: logger}
}

func (c *simulatedAuthorityClient) Check(ctx context.Context, check *AuthorityCheck) (models.JSONB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	authority := map[string]string{
		models.VerificationONECI:    "ONECI",
		models.VerificationCNAM:     "CNAM",
		models.VerificationPassport: "DGE",
	}[check.Type]

	c.logger.Debug("simulated authority check",
		zap.String("authority", authority),
		zap.String("type", check.Type))

	return models.JSONB{
		"authority":  authority,
		"simulated":  true,
		"match":      true,
		"checked_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}
