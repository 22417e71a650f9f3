package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, email, name string) (models.User, error) {
	args := m.Called(ctx, email, name)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

func (m *UserRepositoryMock) FindByEmailAndName(ctx context.Context, email, name string) (models.User, error) {
	args := m.Called(ctx, email, name)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) DeleteUser(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) SendMessage(ctx context.Context, senderID uuid.UUID, subject *string, content string, recipientIDs []uuid.UUID) (models.Message, error) {
	args := m.Called(ctx, senderID, subject, content, recipientIDs)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, deliveryID, userID uuid.UUID) (models.Delivery, error) {
	args := m.Called(ctx, deliveryID, userID)
	var d models.Delivery
	if val := args.Get(0); val != nil {
		d = val.(models.Delivery)
	}
	return d, args.Error(1)
}

type DeliveryQueryRepositoryMock struct {
	mock.Mock
}

func (m *DeliveryQueryRepositoryMock) SentView(ctx context.Context, userID uuid.UUID) ([]models.SentMessageView, error) {
	args := m.Called(ctx, userID)
	var list []models.SentMessageView
	if val := args.Get(0); val != nil {
		list = val.([]models.SentMessageView)
	}
	return list, args.Error(1)
}

func (m *DeliveryQueryRepositoryMock) InboxView(ctx context.Context, userID uuid.UUID) ([]models.InboxMessageView, error) {
	args := m.Called(ctx, userID)
	var list []models.InboxMessageView
	if val := args.Get(0); val != nil {
		list = val.([]models.InboxMessageView)
	}
	return list, args.Error(1)
}

func (m *DeliveryQueryRepositoryMock) UnreadView(ctx context.Context, userID uuid.UUID) ([]models.InboxMessageView, error) {
	args := m.Called(ctx, userID)
	var list []models.InboxMessageView
	if val := args.Get(0); val != nil {
		list = val.([]models.InboxMessageView)
	}
	return list, args.Error(1)
}

func (m *DeliveryQueryRepositoryMock) MessageView(ctx context.Context, messageID, userID uuid.UUID) (models.SentMessageView, error) {
	args := m.Called(ctx, messageID, userID)
	var view models.SentMessageView
	if val := args.Get(0); val != nil {
		view = val.(models.SentMessageView)
	}
	return view, args.Error(1)
}

var (
	_ repositories.UserRepository          = (*UserRepositoryMock)(nil)
	_ repositories.MessageRepository       = (*MessageRepositoryMock)(nil)
	_ repositories.DeliveryQueryRepository = (*DeliveryQueryRepositoryMock)(nil)
)
