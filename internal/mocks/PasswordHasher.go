package mocks

import mock "github.com/stretchr/testify/mock"

// PasswordHasher is a mock type for the PasswordHasher type
type PasswordHasher struct {
	mock.Mock
}

// Hash provides a mock function with given fields: plain
func (_m *PasswordHasher) Hash(plain string) (string, error) {
	ret := _m.Called(plain)
	return ret.String(0), ret.Error(1)
}

// Compare provides a mock function with given fields: hash, plain
func (_m *PasswordHasher) Compare(hash string, plain string) error {
	ret := _m.Called(hash, plain)
	return ret.Error(0)
}

// NewPasswordHasher creates a new instance of PasswordHasher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
}) *PasswordHasher {
	m := &PasswordHasher{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
