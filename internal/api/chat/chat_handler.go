package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/api/auth"
	"github.com/vivutravel/vivu-backend/internal/types"
)

// ChatHandler handles HTTP requests for the assistant relay and the
// per-user conversation log.
type ChatHandler struct {
	chatService ChatService
	logger      *slog.Logger
}

func NewChatHandler(chatService ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

func callerFromContext(w http.ResponseWriter, r *http.Request, span trace.Span, l *slog.Logger) (uuid.UUID, bool) {
	ctx := r.Context()
	userIDStr, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "User ID not found in context")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Authentication required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format in context", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Invalid user session")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "SendMessage", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chats/completions"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SendMessage"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	var params types.SendMessageParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}
	params.UserID = userID

	result, err := h.chatService.SendMessage(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to relay message", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to relay message")
		var ue *api.UpstreamStatusError
		if errors.As(err, &ue) {
			api.ErrorStatus(w, r, ue.Status, api.CodeUpstream, ue.Body)
			return
		}
		api.ErrorEnvelope(w, r, err, "Failed to get an answer")
		return
	}

	span.SetStatus(codes.Ok, "Message relayed")
	api.WriteEnvelope(w, r, http.StatusOK, "Message sent successfully", result)
}

func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "ListChats", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chats"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListChats"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	chats, err := h.chatService.ListChats(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list chats", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list chats")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve chats")
		return
	}

	span.SetStatus(codes.Ok, "Chats listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Chats retrieved successfully", chats)
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "GetChat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chats/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetChat"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(ctx, "Invalid chat ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid chat ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid chat ID format")
		return
	}

	chat, err := h.chatService.GetChat(ctx, id, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch chat", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch chat")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve chat")
		return
	}

	span.SetStatus(codes.Ok, "Chat fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Chat retrieved successfully", chat)
}

type newChatParams struct {
	Title string `json:"title"`
}

func (h *ChatHandler) NewChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "NewChat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chats"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "NewChat"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	var params newChatParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	chat, err := h.chatService.NewChat(ctx, userID, params.Title)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create chat", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create chat")
		api.ErrorEnvelope(w, r, err, "Failed to create chat")
		return
	}

	span.SetStatus(codes.Ok, "Chat created")
	api.WriteEnvelope(w, r, http.StatusCreated, "Chat created successfully", chat)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "DeleteChat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chats/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeleteChat"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(ctx, "Invalid chat ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid chat ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid chat ID format")
		return
	}

	if err := h.chatService.DeleteChat(ctx, id, userID); err != nil {
		l.ErrorContext(ctx, "Failed to delete chat", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete chat")
		api.ErrorEnvelope(w, r, err, "Failed to delete chat")
		return
	}

	span.SetStatus(codes.Ok, "Chat deleted")
	api.WriteEnvelope(w, r, http.StatusOK, "Chat deleted successfully", nil)
}
