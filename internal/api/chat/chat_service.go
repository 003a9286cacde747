package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

// titleWordLimit caps how much of the opening message becomes the
// conversation title.
const titleWordLimit = 8

var _ ChatService = (*ChatServiceImpl)(nil)

// Completer is the upstream completion surface the service relays to.
type Completer interface {
	Complete(ctx context.Context, model string, messages []types.CompletionMessage, cityID *uuid.UUID, useKnowledge bool) (types.CompletionResult, error)
}

// SendResult pairs the assistant's answer with the conversation it was
// recorded in.
type SendResult struct {
	ChatID  uuid.UUID         `json:"chatId"`
	Title   string            `json:"title"`
	Message types.ChatMessage `json:"message"`
	Model   string            `json:"model"`
}

type ChatService interface {
	SendMessage(ctx context.Context, params types.SendMessageParams) (SendResult, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error)
	GetChat(ctx context.Context, id, callerID uuid.UUID) (types.Chat, error)
	NewChat(ctx context.Context, userID uuid.UUID, title string) (types.Chat, error)
	DeleteChat(ctx context.Context, id, callerID uuid.UUID) error
}

type ChatServiceImpl struct {
	logger    *slog.Logger
	repo      ChatRepo
	completer Completer
}

func NewChatService(repo ChatRepo, completer Completer, logger *slog.Logger) *ChatServiceImpl {
	return &ChatServiceImpl{
		logger:    logger,
		repo:      repo,
		completer: completer,
	}
}

// chatTitle derives the conversation title from the first user
// message: its first words, with an ellipsis when truncated.
func chatTitle(messages []types.CompletionMessage) string {
	for _, m := range messages {
		if m.Role != types.RoleUser {
			continue
		}
		words := strings.Fields(m.Content)
		if len(words) == 0 {
			break
		}
		if len(words) <= titleWordLimit {
			return strings.Join(words, " ")
		}
		return strings.Join(words[:titleWordLimit], " ") + "…"
	}
	return "New chat"
}

// lastUserMessage returns the trailing user turn, the one this request
// is asking the assistant to answer.
func lastUserMessage(messages []types.CompletionMessage) (types.CompletionMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i], true
		}
	}
	return types.CompletionMessage{}, false
}

func (s *ChatServiceImpl) SendMessage(ctx context.Context, params types.SendMessageParams) (SendResult, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "SendMessage", trace.WithAttributes(
		attribute.Int("chat.messages", len(params.Messages)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SendMessage"), slog.String("userID", params.UserID.String()))

	if len(params.Messages) == 0 {
		span.SetStatus(codes.Error, "Validation failed")
		return SendResult{}, fmt.Errorf("messages are required: %w", api.ErrBadRequest)
	}
	for _, m := range params.Messages {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			span.SetStatus(codes.Error, "Validation failed")
			return SendResult{}, fmt.Errorf("unknown message role '%s': %w", m.Role, api.ErrBadRequest)
		}
	}
	userMsg, ok := lastUserMessage(params.Messages)
	if !ok || strings.TrimSpace(userMsg.Content) == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return SendResult{}, fmt.Errorf("a user message is required: %w", api.ErrBadRequest)
	}

	useKnowledge := true
	if params.IsUseKnowledge != nil {
		useKnowledge = *params.IsUseKnowledge
	}
	result, err := s.completer.Complete(ctx, params.Model, params.Messages, params.CityID, useKnowledge)
	if err != nil {
		span.RecordError(err)
		return SendResult{}, err
	}

	var chat types.Chat
	if params.ChatID != nil {
		chat, err = s.repo.GetChat(ctx, *params.ChatID)
		if err != nil {
			span.RecordError(err)
			return SendResult{}, err
		}
		if chat.UserID != params.UserID {
			span.SetStatus(codes.Error, "Chat owned by another user")
			return SendResult{}, fmt.Errorf("chat belongs to another user: %w", api.ErrForbidden)
		}
	} else {
		chat, err = s.repo.FindOrCreateChat(ctx, params.UserID, chatTitle(params.Messages))
		if err != nil {
			span.RecordError(err)
			return SendResult{}, err
		}
	}

	assistantMsg := types.ChatMessage{
		Role:           types.RoleAssistant,
		Content:        result.Content,
		CityID:         params.CityID,
		DestinationIDs: result.DestinationIDs,
	}
	turn := []types.ChatMessage{
		{Role: types.RoleUser, Content: userMsg.Content, CityID: params.CityID},
		assistantMsg,
	}
	if err := s.repo.AppendMessages(ctx, chat.ID, turn); err != nil {
		span.RecordError(err)
		return SendResult{}, err
	}

	l.InfoContext(ctx, "Chat turn recorded", slog.String("chatID", chat.ID.String()), slog.String("model", result.Model))
	span.SetStatus(codes.Ok, "Message relayed")
	return SendResult{
		ChatID:  chat.ID,
		Title:   chat.Title,
		Message: assistantMsg,
		Model:   result.Model,
	}, nil
}

func (s *ChatServiceImpl) ListChats(ctx context.Context, userID uuid.UUID) ([]types.ChatSummary, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "ListChats")
	defer span.End()
	return s.repo.ListChats(ctx, userID)
}

func (s *ChatServiceImpl) GetChat(ctx context.Context, id, callerID uuid.UUID) (types.Chat, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "GetChat")
	defer span.End()

	chat, err := s.repo.GetChat(ctx, id)
	if err != nil {
		span.RecordError(err)
		return types.Chat{}, err
	}
	if chat.UserID != callerID {
		span.SetStatus(codes.Error, "Chat owned by another user")
		return types.Chat{}, fmt.Errorf("chat belongs to another user: %w", api.ErrForbidden)
	}
	return chat, nil
}

// NewChat opens (or returns) the conversation with that title.
func (s *ChatServiceImpl) NewChat(ctx context.Context, userID uuid.UUID, title string) (types.Chat, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "NewChat")
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		title = "New chat"
	}
	return s.repo.FindOrCreateChat(ctx, userID, title)
}

func (s *ChatServiceImpl) DeleteChat(ctx context.Context, id, callerID uuid.UUID) error {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "DeleteChat")
	defer span.End()

	chat, err := s.repo.GetChat(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if chat.UserID != callerID {
		span.SetStatus(codes.Error, "Chat owned by another user")
		return fmt.Errorf("chat belongs to another user: %w", api.ErrForbidden)
	}
	return s.repo.DeleteChat(ctx, id)
}
