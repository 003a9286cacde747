package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo defines the contract for account persistence used by the
// auth flows.
type AuthRepo interface {
	CreateUser(ctx context.Context, email, passwordHash, fullName, avatar string) (types.User, error)
	GetUserByEmail(ctx context.Context, email string) (types.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (types.User, error)
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresAuthRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const userColumns = `u.id, u.email, u.password_hash, u.full_name, u.avatar, u.is_admin,
       COALESCE(array_agg(uf.destination_id) FILTER (WHERE uf.destination_id IS NOT NULL), '{}'),
       u.created_at, u.updated_at`

func scanUser(row pgx.Row) (types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Avatar, &u.IsAdmin,
		&u.Favorites, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUser inserts a new account. A duplicate email surfaces as
// api.ErrConflict.
func (r *PostgresAuthRepo) CreateUser(ctx context.Context, email, passwordHash, fullName, avatar string) (types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateUser"), slog.String("email", email))
	l.DebugContext(ctx, "Inserting new user")

	query := `
        INSERT INTO users (email, password_hash, full_name, avatar)
        VALUES ($1, $2, $3, $4)
        RETURNING id, email, password_hash, full_name, avatar, is_admin, '{}'::uuid[], created_at, updated_at`

	u, err := scanUser(r.pgpool.QueryRow(ctx, query, email, passwordHash, fullName, avatar))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Email already registered")
			span.SetStatus(codes.Error, "Unique violation")
			return types.User{}, fmt.Errorf("email %s already registered: %w", email, api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return types.User{}, fmt.Errorf("database error creating user: %w", err)
	}

	l.InfoContext(ctx, "User created", slog.String("userID", u.ID.String()))
	span.SetStatus(codes.Ok, "User created")
	return u, nil
}

// GetUserByEmail fetches the account row for login, favorites included.
func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetUserByEmail"), slog.String("email", email))

	query := fmt.Sprintf(`
        SELECT %s
        FROM users u
        LEFT JOIN user_favorites uf ON uf.user_id = u.id
        WHERE u.email = $1
        GROUP BY u.id`, userColumns)

	u, err := scanUser(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return types.User{}, fmt.Errorf("user with email %s: %w", email, api.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to query user by email", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.User{}, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return u, nil
}

// GetUserByID fetches the account row by id, favorites included.
func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetUserByID"), slog.String("userID", userID.String()))

	query := fmt.Sprintf(`
        SELECT %s
        FROM users u
        LEFT JOIN user_favorites uf ON uf.user_id = u.id
        WHERE u.id = $1
        GROUP BY u.id`, userColumns)

	u, err := scanUser(r.pgpool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return types.User{}, fmt.Errorf("user %s: %w", userID.String(), api.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to query user by id", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.User{}, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return u, nil
}
