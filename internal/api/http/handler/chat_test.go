package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/taskhub-server/internal/apierror"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/testutil"
)

func chatRouter(t *testing.T) (http.Handler, *mockChatService) {
	svc := &mockChatService{}
	svc.Test(t)
	t.Cleanup(func() { svc.AssertExpectations(t) })

	r := chi.NewRouter()
	r.Get("/rooms/{room}/messages", NewChat(svc, testutil.MakeNoopLogger()).History)
	return r, svc
}

func TestChat_History(t *testing.T) {
	router, svc := chatRouter(t)
	sender := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.On("History", mock.Anything, "general", "01J", 10).Return([]model.ChatMessage{
		{ID: "01K", Room: "general", SenderID: sender, Content: "hi", CreatedAt: at},
	}, true, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/general/messages?before=01J&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope[historyResponse](t, rec)
	assert.True(t, env.Data.HasMore)
	require.Len(t, env.Data.Messages, 1)
	assert.Equal(t, "hi", env.Data.Messages[0].Message)
	assert.Equal(t, sender, env.Data.Messages[0].Sender)
	assert.True(t, at.Equal(env.Data.Messages[0].CreatedAt))
}

func TestChat_History_EmptyRoomEncodesArray(t *testing.T) {
	router, svc := chatRouter(t)
	svc.On("History", mock.Anything, "quiet", "", 0).Return(nil, false, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/quiet/messages", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)
}

func TestChat_History_BadLimit(t *testing.T) {
	for _, limit := range []string{"abc", "-1"} {
		router, _ := chatRouter(t)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/general/messages?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestChat_History_ServiceValidation(t *testing.T) {
	router, svc := chatRouter(t)
	svc.On("History", mock.Anything, "general", "garbage", 0).
		Return(nil, false, apierror.NewErrValidation(map[string]string{"before": "must be a message id"})).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/general/messages?before=garbage", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be a message id", decodeEnvelope[map[string]string](t, rec).Data["before"])
}
