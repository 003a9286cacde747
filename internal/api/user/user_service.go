package user

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
	"golang.org/x/crypto/bcrypt"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService covers profile self-service, favorites and the admin
// account operations.
type UserService interface {
	ListUsers(ctx context.Context) ([]types.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (types.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, params types.UpdateNameParams) error
	UpdatePassword(ctx context.Context, id uuid.UUID, params types.UpdatePasswordParams) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, params types.UpdateAvatarParams) error
	SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	AddFavorite(ctx context.Context, userID, destinationID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, destinationID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]types.DestinationSummary, error)
}

type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

func NewUserService(repo UserRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ListUsers")
	defer span.End()
	return s.repo.ListUsers(ctx)
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetUser")
	defer span.End()
	return s.repo.GetUser(ctx, id)
}

func (s *UserServiceImpl) UpdateName(ctx context.Context, id uuid.UUID, params types.UpdateNameParams) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateName")
	defer span.End()

	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return fmt.Errorf("full name is required: %w", api.ErrBadRequest)
	}
	return s.repo.UpdateFullName(ctx, id, fullName)
}

func (s *UserServiceImpl) UpdatePassword(ctx context.Context, id uuid.UUID, params types.UpdatePasswordParams) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdatePassword")
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdatePassword"), slog.String("userID", id.String()))

	if len(params.NewPassword) < 6 {
		span.SetStatus(codes.Error, "Validation failed")
		return fmt.Errorf("password must be at least 6 characters: %w", api.ErrBadRequest)
	}

	hash, err := s.repo.GetPasswordHash(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(params.OldPassword)); err != nil {
		l.WarnContext(ctx, "Password change rejected, old password mismatch")
		span.SetStatus(codes.Error, "Old password mismatch")
		return fmt.Errorf("old password does not match: %w", api.ErrForbidden)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, string(newHash)); err != nil {
		span.RecordError(err)
		return err
	}

	l.InfoContext(ctx, "Password updated")
	span.SetStatus(codes.Ok, "Password updated")
	return nil
}

func (s *UserServiceImpl) UpdateAvatar(ctx context.Context, id uuid.UUID, params types.UpdateAvatarParams) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateAvatar")
	defer span.End()

	if strings.TrimSpace(params.Avatar) == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return fmt.Errorf("avatar is required: %w", api.ErrBadRequest)
	}
	return s.repo.UpdateAvatar(ctx, id, params.Avatar)
}

func (s *UserServiceImpl) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "SetAdmin", trace.WithAttributes(
		attribute.Bool("user.is_admin", isAdmin),
	))
	defer span.End()

	if err := s.repo.SetAdmin(ctx, id, isAdmin); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.InfoContext(ctx, "Admin flag changed", slog.String("userID", id.String()), slog.Bool("isAdmin", isAdmin))
	return nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "DeleteUser")
	defer span.End()
	return s.repo.DeleteUser(ctx, id)
}

func (s *UserServiceImpl) AddFavorite(ctx context.Context, userID, destinationID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "AddFavorite")
	defer span.End()

	if destinationID == uuid.Nil {
		span.SetStatus(codes.Error, "Validation failed")
		return fmt.Errorf("destination id is required: %w", api.ErrBadRequest)
	}
	return s.repo.AddFavorite(ctx, userID, destinationID)
}

func (s *UserServiceImpl) RemoveFavorite(ctx context.Context, userID, destinationID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "RemoveFavorite")
	defer span.End()
	return s.repo.RemoveFavorite(ctx, userID, destinationID)
}

func (s *UserServiceImpl) ListFavorites(ctx context.Context, userID uuid.UUID) ([]types.DestinationSummary, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ListFavorites")
	defer span.End()
	return s.repo.ListFavorites(ctx, userID)
}
