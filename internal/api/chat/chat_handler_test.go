package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/api/auth"
	"github.com/vivutravel/vivu-backend/internal/types"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) SendMessage(ctx context.Context, params types.SendMessageParams) (SendResult, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(SendResult), args.Error(1)
}

func (m *MockChatService) ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]types.ChatSummary), args.Error(1)
}

func (m *MockChatService) GetChat(ctx context.Context, id, callerID uuid.UUID) (types.Chat, error) {
	args := m.Called(ctx, id, callerID)
	return args.Get(0).(types.Chat), args.Error(1)
}

func (m *MockChatService) NewChat(ctx context.Context, userID uuid.UUID, title string) (types.Chat, error) {
	args := m.Called(ctx, userID, title)
	return args.Get(0).(types.Chat), args.Error(1)
}

func (m *MockChatService) DeleteChat(ctx context.Context, id, callerID uuid.UUID) error {
	args := m.Called(ctx, id, callerID)
	return args.Error(0)
}

func sendMessageRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chats/completions", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.UserIDKey, uuid.New().String())
	return req.WithContext(ctx)
}

func TestChatHandler_SendMessage_UpstreamFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	body := `{"messages":[{"role":"user","content":"hello"}]}`

	t.Run("upstream status and body mirrored", func(t *testing.T) {
		mockService := new(MockChatService)
		handler := NewChatHandler(mockService, logger)
		mockService.On("SendMessage", mock.Anything, mock.Anything).
			Return(SendResult{}, &api.UpstreamStatusError{Status: http.StatusTooManyRequests, Body: `{"error":"quota exceeded"}`}).Once()

		rec := httptest.NewRecorder()
		handler.SendMessage(rec, sendMessageRequest(t, body))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		var env api.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, api.CodeUpstream, env.Code)
		assert.Contains(t, env.Message, "quota exceeded")
	})

	t.Run("no upstream response degrades to 500", func(t *testing.T) {
		mockService := new(MockChatService)
		handler := NewChatHandler(mockService, logger)
		mockService.On("SendMessage", mock.Anything, mock.Anything).
			Return(SendResult{}, errors.New("retrieval service unreachable: connection refused")).Once()

		rec := httptest.NewRecorder()
		handler.SendMessage(rec, sendMessageRequest(t, body))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var env api.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, api.CodeInternal, env.Code)
	})
}
