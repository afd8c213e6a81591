package services

import (
	"context"
	"errors"
	"testing"

	"montoit/internal/common"
	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type ApplicationServiceTestSuite struct {
	suite.Suite
	repo          *MockApplicationRepository
	properties    *MockPropertyRepository
	scoring       *MockScoringService
	leases        *MockLeaseService
	mandates      *MockMandateService
	limiter       *MockRateLimitService
	notifications *MockNotificationService
	service       ApplicationService
	ctx           context.Context
	owner         Actor
	tenant        Actor
	property      *models.Property
}

func (suite *ApplicationServiceTestSuite) SetupTest() {
	suite.repo = &MockApplicationRepository{}
	suite.properties = &MockPropertyRepository{}
	suite.scoring = &MockScoringService{}
	suite.leases = &MockLeaseService{}
	suite.mandates = &MockMandateService{}
	suite.limiter = &MockRateLimitService{}
	suite.notifications = &MockNotificationService{}
	suite.service = NewApplicationService(suite.repo, suite.properties, suite.scoring, suite.leases,
		suite.mandates, suite.limiter, suite.notifications, zap.NewNop())
	suite.ctx = context.Background()

	suite.owner = Actor{ID: uuid.New(), Role: common.RoleOwner}
	suite.tenant = Actor{ID: uuid.New(), Role: common.RoleTenant}
	suite.property = &models.Property{
		ID:               uuid.New(),
		OwnerID:          suite.owner.ID,
		Title:            "Studio Marcory Zone 4",
		MonthlyRent:      120000,
		Status:           models.PropertyStatusAvailable,
		ModerationStatus: models.ModerationApproved,
	}
	suite.properties.On("GetByID", suite.ctx, suite.property.ID).Return(suite.property, nil).Maybe()
}

func (suite *ApplicationServiceTestSuite) TearDownTest() {
	suite.repo.AssertExpectations(suite.T())
	suite.leases.AssertExpectations(suite.T())
	suite.notifications.AssertExpectations(suite.T())
}

func TestApplicationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ApplicationServiceTestSuite))
}

func (suite *ApplicationServiceTestSuite) pending() *models.RentalApplication {
	app := &models.RentalApplication{
		ID:         uuid.New(),
		PropertyID: suite.property.ID,
		TenantID:   suite.tenant.ID,
		Status:     models.ApplicationPending,
	}
	suite.repo.On("GetByID", suite.ctx, app.ID).Return(app, nil)
	return app
}

func (suite *ApplicationServiceTestSuite) TestSubmit_SnapshotsScore() {
	identifier := "user:" + suite.tenant.ID.String()
	suite.limiter.On("Check", suite.ctx, identifier, ActionApplicationSubmit).Return(allowAll())
	suite.limiter.On("Record", suite.ctx, identifier, ActionApplicationSubmit).Return()
	suite.repo.On("HasOpen", suite.ctx, suite.tenant.ID, suite.property.ID).Return(false, nil)
	suite.scoring.On("ScoreApplicant", suite.ctx, suite.tenant.ID, 120000.0).Return(&ScoreResult{Score: 85, Recommendation: RecommendApprove}, nil)
	suite.repo.On("Create", suite.ctx, mock.AnythingOfType("*models.RentalApplication")).Return(nil)
	suite.notifications.On("Notify", suite.ctx, suite.owner.ID, models.KindApplicationReceived, "Nouvelle candidature",
		"Vous avez reçu une candidature pour « Studio Marcory Zone 4 ».", []models.Channel{models.ChannelEmail}, mock.Anything).Return(nil)

	app, err := suite.service.Submit(suite.ctx, suite.tenant, suite.property.ID, &SubmitApplicationRequest{Message: common.StringPtr("Bonjour")})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ApplicationPending, app.Status)
	require.NotNil(suite.T(), app.Score)
	assert.Equal(suite.T(), 85, *app.Score)
	assert.Equal(suite.T(), RecommendApprove, *app.Recommendation)
	suite.limiter.AssertExpectations(suite.T())
}

func (suite *ApplicationServiceTestSuite) TestSubmit_ScoringFailureStillSubmits() {
	suite.limiter.On("Check", suite.ctx, mock.Anything, ActionApplicationSubmit).Return(allowAll())
	suite.limiter.On("Record", suite.ctx, mock.Anything, ActionApplicationSubmit).Return()
	suite.repo.On("HasOpen", suite.ctx, suite.tenant.ID, suite.property.ID).Return(false, nil)
	suite.scoring.On("ScoreApplicant", suite.ctx, suite.tenant.ID, 120000.0).Return(nil, errors.New("db down"))
	suite.repo.On("Create", suite.ctx, mock.Anything).Return(nil)
	suite.notifications.On("Notify", suite.ctx, suite.owner.ID, models.KindApplicationReceived, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	app, err := suite.service.Submit(suite.ctx, suite.tenant, suite.property.ID, &SubmitApplicationRequest{})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), app.Score)
}

func (suite *ApplicationServiceTestSuite) TestSubmit_Rejections() {
	_, err := suite.service.Submit(suite.ctx, suite.owner, suite.property.ID, &SubmitApplicationRequest{})
	assert.Equal(suite.T(), common.KindForbidden, common.Classify(err), "owners cannot apply")

	suite.limiter.On("Check", suite.ctx, mock.Anything, ActionApplicationSubmit).Return(allowAll())
	suite.repo.On("HasOpen", suite.ctx, suite.tenant.ID, suite.property.ID).Return(true, nil)
	_, err = suite.service.Submit(suite.ctx, suite.tenant, suite.property.ID, &SubmitApplicationRequest{})
	assert.Equal(suite.T(), common.KindConflict, common.Classify(err), "duplicate open application")

	hidden := &models.Property{ID: uuid.New(), OwnerID: suite.owner.ID, Status: models.PropertyStatusAvailable, ModerationStatus: models.ModerationPending}
	suite.properties.On("GetByID", suite.ctx, hidden.ID).Return(hidden, nil)
	_, err = suite.service.Submit(suite.ctx, suite.tenant, hidden.ID, &SubmitApplicationRequest{})
	assert.Equal(suite.T(), common.KindConflict, common.Classify(err), "listing awaiting moderation")
}

func (suite *ApplicationServiceTestSuite) TestSubmit_RateLimited() {
	suite.limiter.On("Check", suite.ctx, mock.Anything, ActionApplicationSubmit).Return(RateLimitResult{Allowed: false, Limit: 10})

	_, err := suite.service.Submit(suite.ctx, suite.tenant, suite.property.ID, &SubmitApplicationRequest{})
	assert.Equal(suite.T(), common.KindRateLimited, common.Classify(err))
}

func (suite *ApplicationServiceTestSuite) TestApprove_CreatesLease() {
	app := suite.pending()
	lease := &models.Lease{ID: uuid.New(), Status: models.LeaseDraft}
	suite.repo.On("UpdateReview", suite.ctx, app).Return(nil)
	suite.notifications.On("Notify", suite.ctx, suite.tenant.ID, models.KindApplicationApproved, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	suite.leases.On("Create", suite.ctx, suite.owner, mock.MatchedBy(func(req *CreateLeaseRequest) bool {
		return req.ApplicationID == app.ID && req.PaymentDay == 10
	})).Return(lease, nil)

	result, err := suite.service.Approve(suite.ctx, suite.owner, app.ID, &ApproveApplicationRequest{
		CreateLease: true,
		Lease:       &CreateLeaseRequest{PaymentDay: 10},
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ApplicationApproved, result.Application.Status)
	assert.Equal(suite.T(), suite.owner.ID, *result.Application.ReviewedBy)
	assert.Equal(suite.T(), lease, result.Lease)
	assert.Empty(suite.T(), result.LeaseWarning)
}

func (suite *ApplicationServiceTestSuite) TestApprove_LeaseFailureKeepsApproval() {
	app := suite.pending()
	suite.repo.On("UpdateReview", suite.ctx, app).Return(nil)
	suite.notifications.On("Notify", suite.ctx, suite.tenant.ID, models.KindApplicationApproved, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	suite.leases.On("Create", suite.ctx, suite.owner, mock.Anything).Return(nil, common.ValidationError("payment_day must be between 1 and 28"))

	result, err := suite.service.Approve(suite.ctx, suite.owner, app.ID, &ApproveApplicationRequest{CreateLease: true})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), result.Lease)
	assert.Equal(suite.T(), models.ApplicationApproved, result.Application.Status)
	assert.Equal(suite.T(), "application approved but the lease was not created: payment_day must be between 1 and 28", result.LeaseWarning)
	suite.repo.AssertCalled(suite.T(), "UpdateReview", suite.ctx, app)
}

func (suite *ApplicationServiceTestSuite) TestApprove_AgencyWithMandate() {
	agency := Actor{ID: uuid.New(), Role: common.RoleAgency}
	app := suite.pending()
	suite.mandates.On("HasPermission", suite.ctx, agency.ID, suite.property.ID, models.PermManageApplications).Return(true, nil)
	suite.repo.On("UpdateReview", suite.ctx, app).Return(nil)
	suite.notifications.On("Notify", suite.ctx, suite.tenant.ID, models.KindApplicationApproved, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := suite.service.Approve(suite.ctx, agency, app.ID, &ApproveApplicationRequest{})
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), result.Lease)
	assert.Equal(suite.T(), agency.ID, *result.Application.ReviewedBy)
}

func (suite *ApplicationServiceTestSuite) TestReject_AlreadyDecided() {
	app := suite.pending()
	app.Status = models.ApplicationWithdrawn

	_, err := suite.service.Reject(suite.ctx, suite.owner, app.ID, nil)
	assert.Equal(suite.T(), common.KindConflict, common.Classify(err))
}

func (suite *ApplicationServiceTestSuite) TestWithdraw() {
	app := suite.pending()
	suite.repo.On("UpdateReview", suite.ctx, app).Return(nil)

	_, err := suite.service.Withdraw(suite.ctx, Actor{ID: uuid.New(), Role: common.RoleTenant}, app.ID)
	assert.Equal(suite.T(), common.KindForbidden, common.Classify(err))

	withdrawn, err := suite.service.Withdraw(suite.ctx, suite.tenant, app.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ApplicationWithdrawn, withdrawn.Status)
}

func (suite *ApplicationServiceTestSuite) TestScore_StrangerForbidden() {
	app := suite.pending()

	_, err := suite.service.Score(suite.ctx, Actor{ID: uuid.New(), Role: common.RoleOwner}, app.ID)
	assert.Equal(suite.T(), common.KindForbidden, common.Classify(err))
}
