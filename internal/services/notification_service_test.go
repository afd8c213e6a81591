package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"montoit/internal/common"
	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type NotificationServiceTestSuite struct {
	suite.Suite
	repo      *MockNotificationRepository
	users     *MockUserRepository
	messenger *MockMessenger
	service   NotificationService
	ctx       context.Context
	user      *models.User
}

func (suite *NotificationServiceTestSuite) SetupTest() {
	suite.repo = &MockNotificationRepository{}
	suite.users = &MockUserRepository{}
	suite.messenger = &MockMessenger{}
	suite.service = NewNotificationService(suite.repo, suite.users, suite.messenger, suite.messenger, zap.NewNop())
	suite.ctx = context.Background()

	phone := "+2250701020304"
	suite.user = &models.User{ID: uuid.New(), Email: "kouame@example.ci", Phone: &phone}
}

func (suite *NotificationServiceTestSuite) TearDownTest() {
	suite.repo.AssertExpectations(suite.T())
	suite.messenger.AssertExpectations(suite.T())
}

func TestNotificationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceTestSuite))
}

func (suite *NotificationServiceTestSuite) TestNotify_InAppOnly() {
	suite.repo.On("Create", suite.ctx, mock.AnythingOfType("*models.Notification")).Return(nil).Run(func(args mock.Arguments) {
		n := args.Get(1).(*models.Notification)
		assert.Equal(suite.T(), []string{"in_app"}, n.Channels)
		assert.Equal(suite.T(), models.KindMandateUpdate, n.Kind)
	})

	err := suite.service.Notify(suite.ctx, suite.user.ID, models.KindMandateUpdate, "Mandat accepté", "ok", nil, nil)
	assert.NoError(suite.T(), err)
	suite.users.AssertNotCalled(suite.T(), "GetByID", mock.Anything, mock.Anything)
}

func (suite *NotificationServiceTestSuite) TestNotify_SendsEmailAndSMS() {
	suite.repo.On("Create", suite.ctx, mock.AnythingOfType("*models.Notification")).Return(nil)
	suite.users.On("GetByID", suite.ctx, suite.user.ID).Return(suite.user, nil)
	suite.messenger.On("SendEmail", suite.ctx, "kouame@example.ci", "Loyer en retard", "<p>Votre loyer est en retard.</p>").Return(nil)
	suite.messenger.On("SendSMS", suite.ctx, "+2250701020304", "Loyer en retard: Votre loyer est en retard.").Return(nil)

	channels := []models.Channel{models.ChannelEmail, models.ChannelSMS}
	err := suite.service.Notify(suite.ctx, suite.user.ID, models.KindPaymentOverdue, "Loyer en retard", "Votre loyer est en retard.", channels, nil)
	assert.NoError(suite.T(), err)
}

func (suite *NotificationServiceTestSuite) TestNotify_RecordsDeliveryFailure() {
	suite.user.Phone = nil
	suite.repo.On("Create", suite.ctx, mock.AnythingOfType("*models.Notification")).Return(nil)
	suite.users.On("GetByID", suite.ctx, suite.user.ID).Return(suite.user, nil)
	suite.messenger.On("SendEmail", suite.ctx, suite.user.Email, mock.Anything, mock.Anything).Return(errors.New("503 Service Unavailable"))
	suite.repo.On("SetDeliveryError", suite.ctx, mock.AnythingOfType("uuid.UUID"), mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "email: 503") && strings.Contains(msg, "no phone number")
	})).Return(nil)

	channels := []models.Channel{models.ChannelEmail, models.ChannelSMS}
	err := suite.service.Notify(suite.ctx, suite.user.ID, models.KindPaymentFailed, "Paiement échoué", "x", channels, nil)
	assert.NoError(suite.T(), err, "delivery failures are never returned")
}

func (suite *NotificationServiceTestSuite) TestNotify_StoreFailureIsReturned() {
	suite.repo.On("Create", suite.ctx, mock.Anything).Return(errors.New("db down"))

	err := suite.service.Notify(suite.ctx, suite.user.ID, models.KindLeaseToSign, "t", "b", nil, nil)
	assert.Error(suite.T(), err)
}

func (suite *NotificationServiceTestSuite) TestSendSMS_ValidatesPhone() {
	err := suite.service.SendSMS(suite.ctx, "+33612345678", "Bonjour")
	assert.Equal(suite.T(), common.KindValidation, common.Classify(err))
}

func (suite *NotificationServiceTestSuite) TestSendSMS_NormalizesPhone() {
	suite.messenger.On("SendSMS", suite.ctx, "+2250501020304", "Bonjour").Return(nil)

	err := suite.service.SendSMS(suite.ctx, "05 01 02 03 04", "Bonjour")
	assert.NoError(suite.T(), err)
}
