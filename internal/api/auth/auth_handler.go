package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/config"
	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

// AuthHandler handles HTTP requests for registration, login and OAuth.
type AuthHandler struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// SetupOAuth registers the Google provider with goth. Call once at
// startup before the router starts serving.
func SetupOAuth(cfg config.OAuthConfig) {
	if cfg.GoogleClientID == "" {
		return
	}
	gothic.Store = sessions.NewCookieStore([]byte(cfg.SessionSecret))
	goth.UseProviders(
		google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.CallbackURL, "email", "profile"),
	)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Register", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/register"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Register"))

	var params types.RegisterUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	u, err := h.authService.Register(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to register user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to register user")
		if errors.Is(err, api.ErrConflict) {
			api.ErrorEnvelope(w, r, err, "Email is already registered")
		} else {
			api.ErrorEnvelope(w, r, err, "Failed to register user")
		}
		return
	}

	span.SetStatus(codes.Ok, "User registered")
	api.WriteEnvelope(w, r, http.StatusCreated, "Registered successfully", u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Login", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/login"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Login"))

	var params types.LoginParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	result, err := h.authService.Login(ctx, params)
	if err != nil {
		l.WarnContext(ctx, "Login failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Login failed")
		if errors.Is(err, api.ErrUnauthenticated) {
			api.ErrorEnvelope(w, r, err, "Email or password is incorrect")
		} else {
			api.ErrorEnvelope(w, r, err, "Failed to log in")
		}
		return
	}

	span.SetStatus(codes.Ok, "Login successful")
	api.WriteEnvelope(w, r, http.StatusOK, "Logged in successfully", result)
}

// GetAccount returns the authenticated caller's own account.
func (h *AuthHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "GetAccount", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/account"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetAccount"))

	userIDStr, ok := GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "User ID not found in context")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format in context", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Invalid user session")
		return
	}

	u, err := h.authService.GetAccount(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch account", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch account")
		api.ErrorEnvelope(w, r, err, "Failed to fetch account")
		return
	}

	span.SetStatus(codes.Ok, "Account fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Get account info successfully", u)
}

// GoogleLogin redirects the client into the Google consent flow.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	q.Set("provider", "google")
	r.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(w, r)
}

// GoogleCallback finishes the OAuth dance and issues our own token.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "GoogleCallback", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/auth/google/callback"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GoogleCallback"))

	q := r.URL.Query()
	q.Set("provider", "google")
	r.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(w, r.WithContext(ctx))
	if err != nil {
		l.WarnContext(ctx, "OAuth completion failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "OAuth completion failed")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Google sign-in failed")
		return
	}

	result, err := h.authService.LoginWithGoogle(ctx, gothUser.Email, gothUser.Name, gothUser.AvatarURL)
	if err != nil {
		l.ErrorContext(ctx, "Failed to log in OAuth user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to log in OAuth user")
		api.ErrorEnvelope(w, r, err, "Failed to log in")
		return
	}

	span.SetStatus(codes.Ok, "OAuth login successful")
	api.WriteEnvelope(w, r, http.StatusOK, "Logged in successfully", result)
}
