package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"
)

// Transactor is a mock type for the Transactor type
type Transactor struct {
	mock.Mock
}

// WithTx provides a mock function with given fields: ctx, fn
func (_m *Transactor) WithTx(ctx context.Context, fn func(context.Context) error) error {
	ret := _m.Called(ctx, fn)

	if rf, ok := ret.Get(0).(func(context.Context, func(context.Context) error) error); ok {
		return rf(ctx, fn)
	}
	return ret.Error(0)
}

// NewTransactor creates a new instance of Transactor. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewTransactor(t interface {
	mock.TestingT
	Cleanup(func())
}) *Transactor {
	m := &Transactor{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
