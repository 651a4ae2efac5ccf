package mocks

import (
	context "context"
	time "time"

	model "github.com/dtroode/taskhub-server/internal/model"
	mock "github.com/stretchr/testify/mock"

	uuid "github.com/google/uuid"
)

// RefreshTokenStore is a mock type for the RefreshTokenStore type
type RefreshTokenStore struct {
	mock.Mock
}

// Issue provides a mock function with given fields: ctx, userID, token, expiresAt
func (_m *RefreshTokenStore) Issue(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (model.RefreshToken, error) {
	ret := _m.Called(ctx, userID, token, expiresAt)

	var r0 model.RefreshToken
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, string, time.Time) model.RefreshToken); ok {
		r0 = rf(ctx, userID, token, expiresAt)
	} else {
		r0 = ret.Get(0).(model.RefreshToken)
	}

	return r0, ret.Error(1)
}

// GetByToken provides a mock function with given fields: ctx, token
func (_m *RefreshTokenStore) GetByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	ret := _m.Called(ctx, token)

	var r0 model.RefreshToken
	if rf, ok := ret.Get(0).(func(context.Context, string) model.RefreshToken); ok {
		r0 = rf(ctx, token)
	} else {
		r0 = ret.Get(0).(model.RefreshToken)
	}

	return r0, ret.Error(1)
}

// Rotate provides a mock function with given fields: ctx, userID, oldToken, newToken, expiresAt
func (_m *RefreshTokenStore) Rotate(ctx context.Context, userID uuid.UUID, oldToken string, newToken string, expiresAt time.Time) error {
	ret := _m.Called(ctx, userID, oldToken, newToken, expiresAt)
	return ret.Error(0)
}

// SoftDelete provides a mock function with given fields: ctx, id
func (_m *RefreshTokenStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// SoftDeleteByToken provides a mock function with given fields: ctx, userID, token
func (_m *RefreshTokenStore) SoftDeleteByToken(ctx context.Context, userID uuid.UUID, token string) error {
	ret := _m.Called(ctx, userID, token)
	return ret.Error(0)
}

// HardDelete provides a mock function with given fields: ctx, id
func (_m *RefreshTokenStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// DeleteExpired provides a mock function with given fields: ctx, before
func (_m *RefreshTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ret := _m.Called(ctx, before)

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) int64); ok {
		r0 = rf(ctx, before)
	} else {
		r0 = ret.Get(0).(int64)
	}

	return r0, ret.Error(1)
}

// NewRefreshTokenStore creates a new instance of RefreshTokenStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewRefreshTokenStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *RefreshTokenStore {
	m := &RefreshTokenStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
