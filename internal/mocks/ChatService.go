package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/dtroode/taskhub-server/internal/model"
)

// ChatService is a mock type for the ChatService type
type ChatService struct {
	mock.Mock
}

// History provides a mock function with given fields: ctx, room, before, limit
func (_m *ChatService) History(ctx context.Context, room string, before string, limit int) ([]model.ChatMessage, bool, error) {
	ret := _m.Called(ctx, room, before, limit)

	var r0 []model.ChatMessage
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ChatMessage)
	}
	return r0, ret.Bool(1), ret.Error(2)
}

// NewChatService creates a new instance of ChatService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewChatService(t interface {
	mock.TestingT
	Cleanup(func())
}) *ChatService {
	m := &ChatService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
