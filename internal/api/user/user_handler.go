package user

import (
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

// UserHandler handles the profile, favorites and admin account
// endpoints.
type UserHandler struct {
	userService UserService
	logger      *slog.Logger
}

func NewUserHandler(userService UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
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

func parseID(w http.ResponseWriter, r *http.Request, span trace.Span, l *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(r.Context(), "Invalid user ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "UpdateName", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/users/me/name"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateName"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	var params types.UpdateNameParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	if err := h.userService.UpdateName(ctx, userID, params); err != nil {
		l.ErrorContext(ctx, "Failed to update name", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update name")
		api.ErrorEnvelope(w, r, err, "Failed to update name")
		return
	}

	span.SetStatus(codes.Ok, "Name updated")
	api.WriteEnvelope(w, r, http.StatusOK, "Name updated successfully", nil)
}

func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "UpdatePassword", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/users/me/password"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdatePassword"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	var params types.UpdatePasswordParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	if err := h.userService.UpdatePassword(ctx, userID, params); err != nil {
		l.WarnContext(ctx, "Failed to update password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update password")
		api.ErrorEnvelope(w, r, err, "Failed to update password")
		return
	}

	span.SetStatus(codes.Ok, "Password updated")
	api.WriteEnvelope(w, r, http.StatusOK, "Password updated successfully", nil)
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "UpdateAvatar", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/users/me/avatar"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateAvatar"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	var params types.UpdateAvatarParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	if err := h.userService.UpdateAvatar(ctx, userID, params); err != nil {
		l.ErrorContext(ctx, "Failed to update avatar", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update avatar")
		api.ErrorEnvelope(w, r, err, "Failed to update avatar")
		return
	}

	span.SetStatus(codes.Ok, "Avatar updated")
	api.WriteEnvelope(w, r, http.StatusOK, "Avatar updated successfully", nil)
}

func (h *UserHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "ListFavorites", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/users/me/favorites"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListFavorites"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	favorites, err := h.userService.ListFavorites(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list favorites", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list favorites")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve favorites")
		return
	}

	span.SetStatus(codes.Ok, "Favorites listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Favorites retrieved successfully", favorites)
}

func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "AddFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/users/me/favorites"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "AddFavorite"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	var params types.AddFavoriteParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	if err := h.userService.AddFavorite(ctx, userID, params.DestinationID); err != nil {
		l.ErrorContext(ctx, "Failed to add favorite", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to add favorite")
		api.ErrorEnvelope(w, r, err, "Failed to add favorite")
		return
	}

	span.SetStatus(codes.Ok, "Favorite added")
	api.WriteEnvelope(w, r, http.StatusOK, "Favorite added successfully", nil)
}

func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "RemoveFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/users/me/favorites/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "RemoveFavorite"))

	userID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	destinationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(ctx, "Invalid destination ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid destination ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid destination ID format")
		return
	}

	if err := h.userService.RemoveFavorite(ctx, userID, destinationID); err != nil {
		l.ErrorContext(ctx, "Failed to remove favorite", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to remove favorite")
		api.ErrorEnvelope(w, r, err, "Failed to remove favorite")
		return
	}

	span.SetStatus(codes.Ok, "Favorite removed")
	api.WriteEnvelope(w, r, http.StatusOK, "Favorite removed successfully", nil)
}

// ListUsers is admin only, enforced by the router.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "ListUsers", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/users"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListUsers"))

	users, err := h.userService.ListUsers(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list users")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve users")
		return
	}

	span.SetStatus(codes.Ok, "Users listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "GetUser", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/users/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetUser"))

	id, ok := parseID(w, r, span, l)
	if !ok {
		return
	}

	u, err := h.userService.GetUser(ctx, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch user")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve user")
		return
	}

	span.SetStatus(codes.Ok, "User fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "User retrieved successfully", u)
}

func (h *UserHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "SetAdmin", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/users/{id}/admin"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SetAdmin"))

	id, ok := parseID(w, r, span, l)
	if !ok {
		return
	}

	var params types.SetAdminParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	if err := h.userService.SetAdmin(ctx, id, params.IsAdmin); err != nil {
		l.ErrorContext(ctx, "Failed to change admin flag", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to change admin flag")
		api.ErrorEnvelope(w, r, err, "Failed to update user role")
		return
	}

	span.SetStatus(codes.Ok, "Admin flag changed")
	api.WriteEnvelope(w, r, http.StatusOK, "User role updated successfully", nil)
}

// DeleteUser removes an account and its content. An admin cannot
// delete their own account this way.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "DeleteUser", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/users/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeleteUser"))

	callerID, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	id, ok := parseID(w, r, span, l)
	if !ok {
		return
	}

	if id == callerID {
		l.WarnContext(ctx, "Admin attempted to delete own account")
		span.SetStatus(codes.Error, "Self deletion rejected")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "You cannot delete your own account")
		return
	}

	if err := h.userService.DeleteUser(ctx, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete user")
		api.ErrorEnvelope(w, r, err, "Failed to delete user")
		return
	}

	span.SetStatus(codes.Ok, "User deleted")
	api.WriteEnvelope(w, r, http.StatusOK, "User deleted successfully", nil)
}
