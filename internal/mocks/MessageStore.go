package mocks

import (
	context "context"

	model "github.com/dtroode/taskhub-server/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MessageStore is a mock type for the MessageStore type
type MessageStore struct {
	mock.Mock
}

// Append provides a mock function with given fields: ctx, msg
func (_m *MessageStore) Append(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	ret := _m.Called(ctx, msg)

	var r0 model.ChatMessage
	if rf, ok := ret.Get(0).(func(context.Context, model.ChatMessage) model.ChatMessage); ok {
		r0 = rf(ctx, msg)
	} else {
		r0 = ret.Get(0).(model.ChatMessage)
	}

	return r0, ret.Error(1)
}

// ListBefore provides a mock function with given fields: ctx, room, before, limit
func (_m *MessageStore) ListBefore(ctx context.Context, room string, before string, limit int) ([]model.ChatMessage, error) {
	ret := _m.Called(ctx, room, before, limit)

	var r0 []model.ChatMessage
	if rf, ok := ret.Get(0).(func(context.Context, string, string, int) []model.ChatMessage); ok {
		r0 = rf(ctx, room, before, limit)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ChatMessage)
	}

	return r0, ret.Error(1)
}

// NewMessageStore creates a new instance of MessageStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMessageStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MessageStore {
	m := &MessageStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
