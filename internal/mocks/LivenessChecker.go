package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"
)

// LivenessChecker is a mock type for the LivenessChecker type
type LivenessChecker struct {
	mock.Mock
}

// IsLive provides a mock function with given fields: ctx, token
func (_m *LivenessChecker) IsLive(ctx context.Context, token string) (bool, error) {
	ret := _m.Called(ctx, token)
	return ret.Bool(0), ret.Error(1)
}

// NewLivenessChecker creates a new instance of LivenessChecker. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewLivenessChecker(t interface {
	mock.TestingT
	Cleanup(func())
}) *LivenessChecker {
	m := &LivenessChecker{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
