package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/vivutravel/vivu-backend/config"
	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the business logic contract for account flows.
type AuthService interface {
	Register(ctx context.Context, params types.RegisterUserParams) (types.User, error)
	Login(ctx context.Context, params types.LoginParams) (types.LoginResult, error)
	LoginWithGoogle(ctx context.Context, email, fullName, avatar string) (types.LoginResult, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (types.User, error)
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	jwtCfg config.JWTConfig
}

func NewAuthService(repo AuthRepo, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		jwtCfg: jwtCfg,
	}
}

// avatarPalette backs the generated initials avatars. The color is
// picked from the email so re-registering keeps the same look.
var avatarPalette = []string{"0D8ABC", "7C3AED", "DB2777", "059669", "D97706", "DC2626"}

// PlaceholderAvatar builds the initials avatar URL used when a client
// registers without an image.
func PlaceholderAvatar(fullName, email string) string {
	var initials []rune
	for _, part := range strings.Fields(fullName) {
		initials = append(initials, []rune(part)[0])
		if len(initials) >= 2 {
			break
		}
	}
	if len(initials) == 0 {
		initials = []rune{'?'}
	}
	h := fnv.New32a()
	h.Write([]byte(email))
	bg := avatarPalette[int(h.Sum32())%len(avatarPalette)]
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=%s&color=fff", url.QueryEscape(string(initials)), bg)
}

// Register creates a new account with a bcrypt password hash.
func (s *AuthServiceImpl) Register(ctx context.Context, params types.RegisterUserParams) (types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.email", params.Email),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Register"), slog.String("email", params.Email))
	l.DebugContext(ctx, "Registering new user")

	if _, err := mail.ParseAddress(params.Email); err != nil {
		span.SetStatus(codes.Error, "Invalid email")
		return types.User{}, fmt.Errorf("invalid email address: %w", api.ErrBadRequest)
	}
	if len(params.Password) < 6 {
		span.SetStatus(codes.Error, "Password too short")
		return types.User{}, fmt.Errorf("password must be at least 6 characters: %w", api.ErrBadRequest)
	}
	if strings.TrimSpace(params.FullName) == "" {
		span.SetStatus(codes.Error, "Full name required")
		return types.User{}, fmt.Errorf("full name is required: %w", api.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password hashing failed")
		return types.User{}, fmt.Errorf("error hashing password: %w", err)
	}

	avatar := params.Avatar
	if avatar == "" {
		avatar = PlaceholderAvatar(params.FullName, params.Email)
	}

	u, err := s.repo.CreateUser(ctx, strings.ToLower(params.Email), string(hash), params.FullName, avatar)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create user")
		return types.User{}, fmt.Errorf("error creating user: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", u.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return u, nil
}

// Login verifies credentials and issues a signed access token. Wrong
// email and wrong password are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, params types.LoginParams) (types.LoginResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("user.email", params.Email),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"), slog.String("email", params.Email))
	l.DebugContext(ctx, "Authenticating user")

	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(params.Email))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "Unknown email")
			return types.LoginResult{}, fmt.Errorf("invalid credentials: %w", api.ErrUnauthenticated)
		}
		l.ErrorContext(ctx, "Failed to fetch user for login", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch user")
		return types.LoginResult{}, fmt.Errorf("error fetching user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(params.Password)); err != nil {
		l.WarnContext(ctx, "Password mismatch")
		span.SetStatus(codes.Error, "Password mismatch")
		return types.LoginResult{}, fmt.Errorf("invalid credentials: %w", api.ErrUnauthenticated)
	}

	token, err := s.issueToken(u)
	if err != nil {
		l.ErrorContext(ctx, "Failed to sign access token", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token signing failed")
		return types.LoginResult{}, fmt.Errorf("error signing token: %w", err)
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", u.ID.String()))
	span.SetStatus(codes.Ok, "Login successful")
	return types.LoginResult{AccessToken: token, User: u}, nil
}

// LoginWithGoogle signs in an OAuth user, creating the account on
// first sight. OAuth accounts get a random password hash so the
// password login path can never match them by accident.
func (s *AuthServiceImpl) LoginWithGoogle(ctx context.Context, email, fullName, avatar string) (types.LoginResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "LoginWithGoogle", trace.WithAttributes(
		attribute.String("user.email", email),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "LoginWithGoogle"), slog.String("email", email))
	l.DebugContext(ctx, "Authenticating Google user")

	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(email))
	if errors.Is(err, api.ErrNotFound) {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return types.LoginResult{}, fmt.Errorf("error generating placeholder password: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf[:])), bcrypt.DefaultCost)
		if err != nil {
			return types.LoginResult{}, fmt.Errorf("error hashing placeholder password: %w", err)
		}
		if avatar == "" {
			avatar = PlaceholderAvatar(fullName, email)
		}
		u, err = s.repo.CreateUser(ctx, strings.ToLower(email), string(hash), fullName, avatar)
		if err != nil {
			l.ErrorContext(ctx, "Failed to create OAuth user", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to create OAuth user")
			return types.LoginResult{}, fmt.Errorf("error creating user: %w", err)
		}
		l.InfoContext(ctx, "OAuth user created", slog.String("userID", u.ID.String()))
	} else if err != nil {
		l.ErrorContext(ctx, "Failed to fetch user for OAuth login", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch user")
		return types.LoginResult{}, fmt.Errorf("error fetching user: %w", err)
	}

	token, err := s.issueToken(u)
	if err != nil {
		l.ErrorContext(ctx, "Failed to sign access token", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token signing failed")
		return types.LoginResult{}, fmt.Errorf("error signing token: %w", err)
	}

	span.SetStatus(codes.Ok, "OAuth login successful")
	return types.LoginResult{AccessToken: token, User: u}, nil
}

// GetAccount returns the caller's own account.
func (s *AuthServiceImpl) GetAccount(ctx context.Context, userID uuid.UUID) (types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "GetAccount", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch account")
		return types.User{}, fmt.Errorf("error fetching account: %w", err)
	}

	span.SetStatus(codes.Ok, "Account fetched")
	return u, nil
}

func (s *AuthServiceImpl) issueToken(u types.User) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID:   u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Avatar:   u.Avatar,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    s.jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{s.jwtCfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.AccessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.SecretKey))
}
