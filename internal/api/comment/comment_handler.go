package comment

import (
	"log/slog"
	"net/http"
	"strconv"

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

// CommentHandler handles HTTP requests for destination reviews.
type CommentHandler struct {
	commentService CommentService
	logger         *slog.Logger
}

func NewCommentHandler(commentService CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

type commentPage struct {
	Comments   []types.Comment `json:"comments"`
	Pagination api.Pagination  `json:"pagination"`
}

func callerFromContext(w http.ResponseWriter, r *http.Request, span trace.Span, l *slog.Logger) (uuid.UUID, bool, bool) {
	ctx := r.Context()
	userIDStr, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "User ID not found in context")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Authentication required")
		return uuid.Nil, false, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format in context", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Invalid user session")
		return uuid.Nil, false, false
	}
	isAdmin, _ := auth.IsAdminFromContext(ctx)
	return userID, isAdmin, true
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CommentHandler").Start(r.Context(), "CreateComment", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/comments"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateComment"))

	userID, _, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	var params types.CreateCommentParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}
	params.UserID = userID

	c, err := h.commentService.CreateComment(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create comment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create comment")
		api.ErrorEnvelope(w, r, err, "Failed to create comment")
		return
	}

	span.SetStatus(codes.Ok, "Comment created")
	api.WriteEnvelope(w, r, http.StatusCreated, "Comment created successfully", c)
}

// ListComments serves the paginated, newest-first reviews of one
// destination.
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CommentHandler").Start(r.Context(), "ListComments", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/destinations/{id}/comments"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListComments"))

	destinationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(ctx, "Invalid destination ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid destination ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid destination ID format")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	comments, total, err := h.commentService.ListComments(ctx, destinationID, page, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list comments", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list comments")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve comments")
		return
	}

	span.SetStatus(codes.Ok, "Comments listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Get comments successfully", commentPage{
		Comments:   comments,
		Pagination: api.NewPagination(page, limit, total),
	})
}

func (h *CommentHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CommentHandler").Start(r.Context(), "GetComment", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/comments/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetComment"))

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(ctx, "Invalid comment ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid comment ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid comment ID format")
		return
	}

	c, err := h.commentService.GetComment(ctx, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch comment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch comment")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve comment")
		return
	}

	span.SetStatus(codes.Ok, "Comment fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Get comment successfully", c)
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CommentHandler").Start(r.Context(), "DeleteComment", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/comments/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeleteComment"))

	userID, isAdmin, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(ctx, "Invalid comment ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid comment ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid comment ID format")
		return
	}

	if err := h.commentService.DeleteComment(ctx, id, userID, isAdmin); err != nil {
		l.ErrorContext(ctx, "Failed to delete comment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete comment")
		api.ErrorEnvelope(w, r, err, "Failed to delete comment")
		return
	}

	span.SetStatus(codes.Ok, "Comment deleted")
	api.WriteEnvelope(w, r, http.StatusOK, "Comment deleted successfully", nil)
}
