package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/dtroode/taskhub-server/internal/model"
)

// ContextManager is a mock type for the ContextManager type
type ContextManager struct {
	mock.Mock
}

// SetIdentityToContext provides a mock function with given fields: ctx, identity
func (_m *ContextManager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	ret := _m.Called(ctx, identity)

	if rf, ok := ret.Get(0).(func(context.Context, model.Identity) context.Context); ok {
		return rf(ctx, identity)
	}
	return ret.Get(0).(context.Context)
}

// GetIdentityFromContext provides a mock function with given fields: ctx
func (_m *ContextManager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	ret := _m.Called(ctx)
	return ret.Get(0).(model.Identity), ret.Bool(1)
}

// NewContextManager creates a new instance of ContextManager. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewContextManager(t interface {
	mock.TestingT
	Cleanup(func())
}) *ContextManager {
	m := &ContextManager{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
