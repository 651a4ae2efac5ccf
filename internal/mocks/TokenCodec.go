package mocks

import (
	model "github.com/dtroode/taskhub-server/internal/model"
	mock "github.com/stretchr/testify/mock"

	uuid "github.com/google/uuid"
)

// TokenCodec is a mock type for the TokenCodec type
type TokenCodec struct {
	mock.Mock
}

// IssueAccess provides a mock function with given fields: userID, elevated
func (_m *TokenCodec) IssueAccess(userID uuid.UUID, elevated bool) (string, error) {
	ret := _m.Called(userID, elevated)
	return ret.String(0), ret.Error(1)
}

// IssueRefresh provides a mock function with given fields: userID
func (_m *TokenCodec) IssueRefresh(userID uuid.UUID) (string, error) {
	ret := _m.Called(userID)
	return ret.String(0), ret.Error(1)
}

// ParseAccess provides a mock function with given fields: token
func (_m *TokenCodec) ParseAccess(token string) (model.AccessClaims, error) {
	ret := _m.Called(token)

	var r0 model.AccessClaims
	if rf, ok := ret.Get(0).(func(string) model.AccessClaims); ok {
		r0 = rf(token)
	} else {
		r0 = ret.Get(0).(model.AccessClaims)
	}

	return r0, ret.Error(1)
}

// ParseRefresh provides a mock function with given fields: token
func (_m *TokenCodec) ParseRefresh(token string) (model.RefreshClaims, error) {
	ret := _m.Called(token)

	var r0 model.RefreshClaims
	if rf, ok := ret.Get(0).(func(string) model.RefreshClaims); ok {
		r0 = rf(token)
	} else {
		r0 = ret.Get(0).(model.RefreshClaims)
	}

	return r0, ret.Error(1)
}

// NewTokenCodec creates a new instance of TokenCodec. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewTokenCodec(t interface {
	mock.TestingT
	Cleanup(func())
}) *TokenCodec {
	m := &TokenCodec{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
