package user

import (
	"context"
	"encoding/json"
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

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for account and favorites
// persistence.
type UserRepo interface {
	ListUsers(ctx context.Context) ([]types.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (types.User, error)
	GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error)
	UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) error
	SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	AddFavorite(ctx context.Context, userID, destinationID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, destinationID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]types.DestinationSummary, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresUserRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const userColumns = `u.id, u.email, u.full_name, u.avatar, u.is_admin,
       COALESCE(array_agg(uf.destination_id) FILTER (WHERE uf.destination_id IS NOT NULL), '{}'),
       u.created_at, u.updated_at`

func (r *PostgresUserRepo) ListUsers(ctx context.Context) ([]types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "ListUsers", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := fmt.Sprintf(`
        SELECT %s
        FROM users u
        LEFT JOIN user_favorites uf ON uf.user_id = u.id
        GROUP BY u.id
        ORDER BY u.created_at DESC`, userColumns)

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Avatar, &u.IsAdmin, &u.Favorites, &u.CreatedAt, &u.UpdatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading users: %w", err)
	}

	span.SetStatus(codes.Ok, "Users listed")
	return users, nil
}

func (r *PostgresUserRepo) GetUser(ctx context.Context, id uuid.UUID) (types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	query := fmt.Sprintf(`
        SELECT %s
        FROM users u
        LEFT JOIN user_favorites uf ON uf.user_id = u.id
        WHERE u.id = $1
        GROUP BY u.id`, userColumns)

	var u types.User
	err := r.pgpool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.FullName, &u.Avatar, &u.IsAdmin, &u.Favorites, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return types.User{}, fmt.Errorf("user %s: %w", id.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.User{}, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return u, nil
}

func (r *PostgresUserRepo) GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetPasswordHash", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	var hash string
	err := r.pgpool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return "", fmt.Errorf("user %s: %w", id.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return "", fmt.Errorf("database error fetching password hash: %w", err)
	}

	span.SetStatus(codes.Ok, "Password hash fetched")
	return hash, nil
}

func (r *PostgresUserRepo) updateColumn(ctx context.Context, span trace.Span, id uuid.UUID, query string, arg any) error {
	tag, err := r.pgpool.Exec(ctx, query, id, arg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user %s: %w", id.String(), api.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "User updated")
	return nil
}

func (r *PostgresUserRepo) UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateFullName", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	var taken bool
	if err := r.pgpool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE full_name = $1 AND id <> $2)`, fullName, id).Scan(&taken); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error checking name availability: %w", err)
	}
	if taken {
		span.SetStatus(codes.Error, "Name taken")
		return fmt.Errorf("name '%s' is already in use: %w", fullName, api.ErrConflict)
	}

	return r.updateColumn(ctx, span, id, `UPDATE users SET full_name = $2, updated_at = NOW() WHERE id = $1`, fullName)
}

func (r *PostgresUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdatePasswordHash", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()
	return r.updateColumn(ctx, span, id, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, hash)
}

func (r *PostgresUserRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateAvatar", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()
	return r.updateColumn(ctx, span, id, `UPDATE users SET avatar = $2, updated_at = NOW() WHERE id = $1`, avatar)
}

func (r *PostgresUserRepo) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "SetAdmin", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.user.id", id.String()),
		attribute.Bool("user.is_admin", isAdmin),
	))
	defer span.End()
	return r.updateColumn(ctx, span, id, `UPDATE users SET is_admin = $2, updated_at = NOW() WHERE id = $1`, isAdmin)
}

// DeleteUser removes the account and everything hanging off it in one
// transaction, then recomputes ratings for destinations that lost
// reviews.
func (r *PostgresUserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "DeleteUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "DeleteUser"), slog.String("userID", id.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var email string
	if err := tx.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, id).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return fmt.Errorf("user %s: %w", id.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		return fmt.Errorf("database error fetching user email: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT DISTINCT destination_id FROM comments WHERE user_id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error collecting reviewed destinations: %w", err)
	}
	var affected []uuid.UUID
	for rows.Next() {
		var destID uuid.UUID
		if err := rows.Scan(&destID); err != nil {
			rows.Close()
			span.RecordError(err)
			return fmt.Errorf("database error scanning reviewed destination: %w", err)
		}
		affected = append(affected, destID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error reading reviewed destinations: %w", err)
	}

	// Content authored by the user goes too. The foreign keys cascade
	// from there: a dropped destination takes its comments, favorite
	// rows and itinerary items with it.
	if _, err := tx.Exec(ctx, `DELETE FROM destinations WHERE created_by = $1`, email); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error deleting user destinations: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cities WHERE created_by = $1`, email); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error deleting user cities: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user %s: %w", id.String(), api.ErrNotFound)
	}

	// The cascades already removed the comments, so the recompute sees
	// the post-delete state. Destinations that were dropped above
	// simply match no row here.
	for _, destID := range affected {
		if _, err := tx.Exec(ctx, recomputeRating, destID); err != nil {
			span.RecordError(err)
			return fmt.Errorf("database error recomputing rating: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error committing user delete: %w", err)
	}

	l.InfoContext(ctx, "User deleted", slog.Int("destinationsRecomputed", len(affected)))
	span.SetStatus(codes.Ok, "User deleted")
	return nil
}

const recomputeRating = `
    UPDATE destinations d
    SET total_rate = agg.cnt,
        average_rating = agg.avg
    FROM (
        SELECT COUNT(*) AS cnt,
               COALESCE(ROUND(AVG((
                   COALESCE((detail->>'criteria1')::numeric, 0) +
                   COALESCE((detail->>'criteria2')::numeric, 0) +
                   COALESCE((detail->>'criteria3')::numeric, 0) +
                   COALESCE((detail->>'criteria4')::numeric, 0) +
                   COALESCE((detail->>'criteria5')::numeric, 0) +
                   COALESCE((detail->>'criteria6')::numeric, 0)
               ) / 6), 1), 0) AS avg
        FROM comments
        WHERE destination_id = $1
    ) agg
    WHERE d.id = $1`

func (r *PostgresUserRepo) AddFavorite(ctx context.Context, userID, destinationID uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "AddFavorite", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "user_favorites"),
		attribute.String("db.user.id", userID.String()),
		attribute.String("db.destination.id", destinationID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "AddFavorite"), slog.String("userID", userID.String()), slog.String("destinationID", destinationID.String()))

	query := `
        INSERT INTO user_favorites (user_id, destination_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, destination_id) DO NOTHING`

	tag, err := r.pgpool.Exec(ctx, query, userID, destinationID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			l.WarnContext(ctx, "Attempted to favorite a missing destination")
			span.SetStatus(codes.Error, "Foreign key violation")
			return fmt.Errorf("destination %s does not exist: %w", destinationID.String(), api.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to insert favorite", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("database error adding favorite: %w", err)
	}

	if tag.RowsAffected() == 0 {
		l.DebugContext(ctx, "Favorite already exists")
		span.SetStatus(codes.Error, "Duplicate favorite")
		return fmt.Errorf("destination already in favorites: %w", api.ErrConflict)
	}

	l.InfoContext(ctx, "Favorite added")
	span.SetStatus(codes.Ok, "Favorite added")
	return nil
}

func (r *PostgresUserRepo) RemoveFavorite(ctx context.Context, userID, destinationID uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "RemoveFavorite", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "user_favorites"),
		attribute.String("db.user.id", userID.String()),
		attribute.String("db.destination.id", destinationID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "RemoveFavorite"), slog.String("userID", userID.String()), slog.String("destinationID", destinationID.String()))

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM user_favorites WHERE user_id = $1 AND destination_id = $2`, userID, destinationID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete favorite", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error removing favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Favorite not found")
		return fmt.Errorf("favorite not found: %w", api.ErrNotFound)
	}

	l.InfoContext(ctx, "Favorite removed")
	span.SetStatus(codes.Ok, "Favorite removed")
	return nil
}

func (r *PostgresUserRepo) ListFavorites(ctx context.Context, userID uuid.UUID) ([]types.DestinationSummary, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "ListFavorites", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_favorites, destinations"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	query := `
        SELECT d.id, d.title, d.slug, d.address, d.album, d.average_rating, c.id, c.name, c.slug
        FROM user_favorites uf
        JOIN destinations d ON d.id = uf.destination_id
        JOIN cities c ON c.id = d.city_id
        WHERE uf.user_id = $1
        ORDER BY uf.created_at DESC`

	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing favorites: %w", err)
	}
	defer rows.Close()

	var favorites []types.DestinationSummary
	for rows.Next() {
		var s types.DestinationSummary
		var cs types.CitySummary
		var albumRaw []byte
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Address, &albumRaw, &s.AverageRating, &cs.ID, &cs.Name, &cs.Slug); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning favorite: %w", err)
		}
		var album types.DestinationAlbum
		if err := json.Unmarshal(albumRaw, &album); err == nil && len(album.Highlight) > 0 {
			s.Image = album.Highlight[0]
		}
		s.City = &cs
		favorites = append(favorites, s)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading favorites: %w", err)
	}

	span.SetStatus(codes.Ok, "Favorites listed")
	return favorites, nil
}
