package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/service"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, params service.RegisterParams) (model.Profile, error) {
	ret := m.Called(ctx, params)
	return ret.Get(0).(model.Profile), ret.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (service.Session, error) {
	ret := m.Called(ctx, email, password)
	return ret.Get(0).(service.Session), ret.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	ret := m.Called(ctx, refreshToken)
	return ret.String(0), ret.Error(1)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, identity model.Identity, currentPassword, newPassword, refreshToken string) (service.PasswordChanged, error) {
	ret := m.Called(ctx, identity, currentPassword, newPassword, refreshToken)
	return ret.Get(0).(service.PasswordChanged), ret.Error(1)
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, email, secret, newPassword string) (model.Profile, error) {
	ret := m.Called(ctx, email, secret, newPassword)
	return ret.Get(0).(model.Profile), ret.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, identity model.Identity, accessToken, refreshToken string) error {
	return m.Called(ctx, identity, accessToken, refreshToken).Error(0)
}

func (m *mockAuthService) Profile(ctx context.Context, identity model.Identity) (model.Profile, error) {
	ret := m.Called(ctx, identity)
	return ret.Get(0).(model.Profile), ret.Error(1)
}

type mockChatService struct {
	mock.Mock
}

func (m *mockChatService) History(ctx context.Context, room, before string, limit int) ([]model.ChatMessage, bool, error) {
	ret := m.Called(ctx, room, before, limit)
	msgs, _ := ret.Get(0).([]model.ChatMessage)
	return msgs, ret.Bool(1), ret.Error(2)
}
