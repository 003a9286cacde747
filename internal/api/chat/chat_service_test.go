package chat

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

type MockChatRepo struct {
	mock.Mock
}

func (m *MockChatRepo) FindOrCreateChat(ctx context.Context, userID uuid.UUID, title string) (types.Chat, error) {
	args := m.Called(ctx, userID, title)
	return args.Get(0).(types.Chat), args.Error(1)
}

func (m *MockChatRepo) GetChat(ctx context.Context, id uuid.UUID) (types.Chat, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Chat), args.Error(1)
}

func (m *MockChatRepo) ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ChatSummary), args.Error(1)
}

func (m *MockChatRepo) DeleteChat(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChatRepo) AppendMessages(ctx context.Context, chatID uuid.UUID, messages []types.ChatMessage) error {
	args := m.Called(ctx, chatID, messages)
	return args.Error(0)
}

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, model string, messages []types.CompletionMessage, cityID *uuid.UUID, useKnowledge bool) (types.CompletionResult, error) {
	args := m.Called(ctx, model, messages, cityID, useKnowledge)
	return args.Get(0).(types.CompletionResult), args.Error(1)
}

func setupChatServiceTest() (*ChatServiceImpl, *MockChatRepo, *MockCompleter) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mockRepo := new(MockChatRepo)
	mockCompleter := new(MockCompleter)
	service := NewChatService(mockRepo, mockCompleter, logger)
	return service, mockRepo, mockCompleter
}

func TestChatTitle(t *testing.T) {
	t.Run("short message kept whole", func(t *testing.T) {
		title := chatTitle([]types.CompletionMessage{
			{Role: types.RoleUser, Content: "best pho in Hanoi"},
		})
		assert.Equal(t, "best pho in Hanoi", title)
	})

	t.Run("long message truncated with ellipsis", func(t *testing.T) {
		title := chatTitle([]types.CompletionMessage{
			{Role: types.RoleUser, Content: "can you plan a three day trip around Da Nang with food stops"},
		})
		assert.Equal(t, "can you plan a three day trip around…", title)
	})

	t.Run("skips assistant turns", func(t *testing.T) {
		title := chatTitle([]types.CompletionMessage{
			{Role: types.RoleAssistant, Content: "hello, how can I help?"},
			{Role: types.RoleUser, Content: "night markets"},
		})
		assert.Equal(t, "night markets", title)
	})

	t.Run("no user message falls back", func(t *testing.T) {
		assert.Equal(t, "New chat", chatTitle(nil))
		assert.Equal(t, "New chat", chatTitle([]types.CompletionMessage{
			{Role: types.RoleUser, Content: "   "},
		}))
	})
}

func TestChatServiceImpl_SendMessage(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("creates chat by derived title", func(t *testing.T) {
		service, mockRepo, mockCompleter := setupChatServiceTest()
		messages := []types.CompletionMessage{{Role: types.RoleUser, Content: "weekend in Hoi An"}}
		refs := []uuid.UUID{uuid.New()}

		mockCompleter.On("Complete", mock.Anything, "", messages, (*uuid.UUID)(nil), true).
			Return(types.CompletionResult{Content: "try the old town", DestinationIDs: refs, Model: "primary"}, nil).Once()

		chat := types.Chat{ID: uuid.New(), UserID: userID, Title: "weekend in Hoi An"}
		mockRepo.On("FindOrCreateChat", mock.Anything, userID, "weekend in Hoi An").Return(chat, nil).Once()
		mockRepo.On("AppendMessages", mock.Anything, chat.ID, mock.MatchedBy(func(turn []types.ChatMessage) bool {
			return len(turn) == 2 &&
				turn[0].Role == types.RoleUser &&
				turn[1].Role == types.RoleAssistant &&
				len(turn[1].DestinationIDs) == 1
		})).Return(nil).Once()

		result, err := service.SendMessage(ctx, types.SendMessageParams{UserID: userID, Messages: messages})
		require.NoError(t, err)
		assert.Equal(t, chat.ID, result.ChatID)
		assert.Equal(t, "try the old town", result.Message.Content)
		assert.Equal(t, "primary", result.Model)
		mockRepo.AssertExpectations(t)
		mockCompleter.AssertExpectations(t)
	})

	t.Run("forwards requested model", func(t *testing.T) {
		service, mockRepo, mockCompleter := setupChatServiceTest()
		messages := []types.CompletionMessage{{Role: types.RoleUser, Content: "hello"}}

		mockCompleter.On("Complete", mock.Anything, "economical", messages, (*uuid.UUID)(nil), true).
			Return(types.CompletionResult{Content: "hi", Model: "economical"}, nil).Once()

		chat := types.Chat{ID: uuid.New(), UserID: userID, Title: "hello"}
		mockRepo.On("FindOrCreateChat", mock.Anything, userID, "hello").Return(chat, nil).Once()
		mockRepo.On("AppendMessages", mock.Anything, chat.ID, mock.Anything).Return(nil).Once()

		result, err := service.SendMessage(ctx, types.SendMessageParams{
			UserID:   userID,
			Model:    "economical",
			Messages: messages,
		})
		require.NoError(t, err)
		assert.Equal(t, "economical", result.Model)
		mockCompleter.AssertExpectations(t)
	})

	t.Run("knowledge opt-out forwarded", func(t *testing.T) {
		service, mockRepo, mockCompleter := setupChatServiceTest()
		messages := []types.CompletionMessage{{Role: types.RoleUser, Content: "hello"}}
		off := false

		mockCompleter.On("Complete", mock.Anything, "", messages, (*uuid.UUID)(nil), false).
			Return(types.CompletionResult{Content: "hi", Model: "primary"}, nil).Once()

		chat := types.Chat{ID: uuid.New(), UserID: userID, Title: "hello"}
		mockRepo.On("FindOrCreateChat", mock.Anything, userID, "hello").Return(chat, nil).Once()
		mockRepo.On("AppendMessages", mock.Anything, chat.ID, mock.Anything).Return(nil).Once()

		_, err := service.SendMessage(ctx, types.SendMessageParams{
			UserID:         userID,
			IsUseKnowledge: &off,
			Messages:       messages,
		})
		require.NoError(t, err)
		mockCompleter.AssertExpectations(t)
	})

	t.Run("rejects empty messages", func(t *testing.T) {
		service, _, _ := setupChatServiceTest()
		_, err := service.SendMessage(ctx, types.SendMessageParams{UserID: userID})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		service, _, _ := setupChatServiceTest()
		_, err := service.SendMessage(ctx, types.SendMessageParams{
			UserID:   userID,
			Messages: []types.CompletionMessage{{Role: "system", Content: "hi"}},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("rejects blank trailing user message", func(t *testing.T) {
		service, _, _ := setupChatServiceTest()
		_, err := service.SendMessage(ctx, types.SendMessageParams{
			UserID:   userID,
			Messages: []types.CompletionMessage{{Role: types.RoleAssistant, Content: "hello"}},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrBadRequest))
	})

	t.Run("chat owned by another user", func(t *testing.T) {
		service, mockRepo, mockCompleter := setupChatServiceTest()
		chatID := uuid.New()
		messages := []types.CompletionMessage{{Role: types.RoleUser, Content: "hello"}}

		mockCompleter.On("Complete", mock.Anything, "", messages, (*uuid.UUID)(nil), true).
			Return(types.CompletionResult{Content: "hi", Model: "primary"}, nil).Once()
		mockRepo.On("GetChat", mock.Anything, chatID).
			Return(types.Chat{ID: chatID, UserID: uuid.New()}, nil).Once()

		_, err := service.SendMessage(ctx, types.SendMessageParams{
			ChatID:   &chatID,
			UserID:   userID,
			Messages: messages,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrForbidden))
		mockRepo.AssertExpectations(t)
	})

	t.Run("upstream failure surfaces without persisting", func(t *testing.T) {
		service, mockRepo, mockCompleter := setupChatServiceTest()
		messages := []types.CompletionMessage{{Role: types.RoleUser, Content: "hello"}}

		mockCompleter.On("Complete", mock.Anything, "", messages, (*uuid.UUID)(nil), true).
			Return(types.CompletionResult{}, api.ErrUpstream).Once()

		_, err := service.SendMessage(ctx, types.SendMessageParams{UserID: userID, Messages: messages})
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrUpstream))
		mockRepo.AssertNotCalled(t, "AppendMessages", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestChatServiceImpl_GetChat(t *testing.T) {
	service, mockRepo, _ := setupChatServiceTest()
	ctx := context.Background()
	userID := uuid.New()
	chatID := uuid.New()

	t.Run("owner reads messages", func(t *testing.T) {
		chat := types.Chat{ID: chatID, UserID: userID, Title: "trip notes"}
		mockRepo.On("GetChat", mock.Anything, chatID).Return(chat, nil).Once()

		got, err := service.GetChat(ctx, chatID, userID)
		require.NoError(t, err)
		assert.Equal(t, "trip notes", got.Title)
	})

	t.Run("other caller forbidden", func(t *testing.T) {
		chat := types.Chat{ID: chatID, UserID: uuid.New()}
		mockRepo.On("GetChat", mock.Anything, chatID).Return(chat, nil).Once()

		_, err := service.GetChat(ctx, chatID, userID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrForbidden))
	})
}

func TestChatServiceImpl_NewChat(t *testing.T) {
	service, mockRepo, _ := setupChatServiceTest()
	ctx := context.Background()
	userID := uuid.New()

	t.Run("blank title defaults", func(t *testing.T) {
		mockRepo.On("FindOrCreateChat", mock.Anything, userID, "New chat").
			Return(types.Chat{ID: uuid.New(), UserID: userID, Title: "New chat"}, nil).Once()

		chat, err := service.NewChat(ctx, userID, "   ")
		require.NoError(t, err)
		assert.Equal(t, "New chat", chat.Title)
	})

	t.Run("title trimmed", func(t *testing.T) {
		mockRepo.On("FindOrCreateChat", mock.Anything, userID, "Saigon food").
			Return(types.Chat{ID: uuid.New(), UserID: userID, Title: "Saigon food"}, nil).Once()

		_, err := service.NewChat(ctx, userID, "  Saigon food  ")
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestChatServiceImpl_DeleteChat(t *testing.T) {
	service, mockRepo, _ := setupChatServiceTest()
	ctx := context.Background()
	userID := uuid.New()
	chatID := uuid.New()

	t.Run("owner deletes", func(t *testing.T) {
		mockRepo.On("GetChat", mock.Anything, chatID).Return(types.Chat{ID: chatID, UserID: userID}, nil).Once()
		mockRepo.On("DeleteChat", mock.Anything, chatID).Return(nil).Once()

		require.NoError(t, service.DeleteChat(ctx, chatID, userID))
		mockRepo.AssertExpectations(t)
	})

	t.Run("other caller forbidden", func(t *testing.T) {
		mockRepo.On("GetChat", mock.Anything, chatID).Return(types.Chat{ID: chatID, UserID: uuid.New()}, nil).Once()

		err := service.DeleteChat(ctx, chatID, userID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrForbidden))
	})
}

func TestLastUserMessage(t *testing.T) {
	msg, ok := lastUserMessage([]types.CompletionMessage{
		{Role: types.RoleUser, Content: "first"},
		{Role: types.RoleAssistant, Content: "reply"},
		{Role: types.RoleUser, Content: "second"},
	})
	require.True(t, ok)
	assert.Equal(t, "second", msg.Content)

	_, ok = lastUserMessage([]types.CompletionMessage{{Role: types.RoleAssistant, Content: "reply"}})
	assert.False(t, ok)

	assert.True(t, strings.HasPrefix(chatTitle([]types.CompletionMessage{
		{Role: types.RoleUser, Content: "one two three four five six seven eight nine"},
	}), "one two three four five six seven eight"))
}
