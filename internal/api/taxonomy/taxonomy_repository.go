package taxonomy

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

// Kind selects which vocabulary table an operation targets. The three
// tables share one shape, so the repo is parameterized over them.
type Kind string

const (
	KindTag             Kind = "tags"
	KindCityType        Kind = "city_types"
	KindDestinationType Kind = "destination_types"
)

var _ TaxonomyRepo = (*PostgresTaxonomyRepo)(nil)

// TaxonomyRepo defines the contract for vocabulary persistence. Rows
// of every vocabulary table share the types.Tag shape.
type TaxonomyRepo interface {
	List(ctx context.Context, kind Kind) ([]types.Tag, error)
	Get(ctx context.Context, kind Kind, id uuid.UUID) (types.Tag, error)
	Create(ctx context.Context, kind Kind, title, slug string) (types.Tag, error)
	Update(ctx context.Context, kind Kind, id uuid.UUID, title, slug string) (types.Tag, error)
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error
}

type PostgresTaxonomyRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresTaxonomyRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresTaxonomyRepo {
	return &PostgresTaxonomyRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

func (r *PostgresTaxonomyRepo) List(ctx context.Context, kind Kind) ([]types.Tag, error) {
	ctx, span := otel.Tracer("TaxonomyRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", string(kind)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "List"), slog.String("kind", string(kind)))

	query := fmt.Sprintf(`
        SELECT id, title, slug, created_at, updated_at
        FROM %s
        ORDER BY title`, kind)

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query terms", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing %s: %w", kind, err)
	}
	defer rows.Close()

	var terms []types.Tag
	for rows.Next() {
		var t types.Tag
		if err := rows.Scan(&t.ID, &t.Title, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
			l.ErrorContext(ctx, "Failed to scan term row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning %s: %w", kind, err)
		}
		terms = append(terms, t)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading %s: %w", kind, err)
	}

	span.SetStatus(codes.Ok, "Terms listed")
	return terms, nil
}

func (r *PostgresTaxonomyRepo) Get(ctx context.Context, kind Kind, id uuid.UUID) (types.Tag, error) {
	ctx, span := otel.Tracer("TaxonomyRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", string(kind)),
	))
	defer span.End()

	query := fmt.Sprintf(`
        SELECT id, title, slug, created_at, updated_at
        FROM %s
        WHERE id = $1`, kind)

	var t types.Tag
	err := r.pgpool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Title, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Term not found")
			return types.Tag{}, fmt.Errorf("%s %s: %w", kind, id.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.Tag{}, fmt.Errorf("database error fetching %s: %w", kind, err)
	}

	span.SetStatus(codes.Ok, "Term fetched")
	return t, nil
}

func (r *PostgresTaxonomyRepo) Create(ctx context.Context, kind Kind, title, slug string) (types.Tag, error) {
	ctx, span := otel.Tracer("TaxonomyRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", string(kind)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"), slog.String("kind", string(kind)), slog.String("title", title))

	query := fmt.Sprintf(`
        INSERT INTO %s (title, slug)
        VALUES ($1, $2)
        RETURNING id, title, slug, created_at, updated_at`, kind)

	var t types.Tag
	err := r.pgpool.QueryRow(ctx, query, title, slug).Scan(&t.ID, &t.Title, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Term title already exists")
			span.SetStatus(codes.Error, "Unique violation")
			return types.Tag{}, fmt.Errorf("%s with title %q already exists: %w", kind, title, api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert term", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return types.Tag{}, fmt.Errorf("database error creating %s: %w", kind, err)
	}

	l.InfoContext(ctx, "Term created", slog.String("id", t.ID.String()))
	span.SetStatus(codes.Ok, "Term created")
	return t, nil
}

func (r *PostgresTaxonomyRepo) Update(ctx context.Context, kind Kind, id uuid.UUID, title, slug string) (types.Tag, error) {
	ctx, span := otel.Tracer("TaxonomyRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", string(kind)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Update"), slog.String("kind", string(kind)), slog.String("id", id.String()))

	query := fmt.Sprintf(`
        UPDATE %s
        SET title = $2, slug = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING id, title, slug, created_at, updated_at`, kind)

	var t types.Tag
	err := r.pgpool.QueryRow(ctx, query, id, title, slug).Scan(&t.ID, &t.Title, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Term not found")
			return types.Tag{}, fmt.Errorf("%s %s: %w", kind, id.String(), api.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Term title already exists")
			span.SetStatus(codes.Error, "Unique violation")
			return types.Tag{}, fmt.Errorf("%s with title %q already exists: %w", kind, title, api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to update term", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return types.Tag{}, fmt.Errorf("database error updating %s: %w", kind, err)
	}

	l.InfoContext(ctx, "Term updated")
	span.SetStatus(codes.Ok, "Term updated")
	return t, nil
}

func (r *PostgresTaxonomyRepo) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	ctx, span := otel.Tracer("TaxonomyRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", string(kind)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Delete"), slog.String("kind", string(kind)), slog.String("id", id.String()))

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", kind)
	tag, err := r.pgpool.Exec(ctx, query, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete term", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting %s: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Term not found")
		return fmt.Errorf("%s %s: %w", kind, id.String(), api.ErrNotFound)
	}

	l.InfoContext(ctx, "Term deleted")
	span.SetStatus(codes.Ok, "Term deleted")
	return nil
}
