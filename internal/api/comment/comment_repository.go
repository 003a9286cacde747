package comment

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

var _ CommentRepo = (*PostgresCommentRepo)(nil)

// CommentRepo defines the contract for review persistence. Writes
// keep the destination rating columns in step inside the same
// transaction.
type CommentRepo interface {
	CreateComment(ctx context.Context, params types.CreateCommentParams) (types.Comment, error)
	GetComment(ctx context.Context, id uuid.UUID) (types.Comment, error)
	ListComments(ctx context.Context, destinationID uuid.UUID, page, limit int) ([]types.Comment, int, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

type PostgresCommentRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresCommentRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresCommentRepo {
	return &PostgresCommentRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const commentColumns = `c.id, c.destination_id, c.user_id, c.detail, c.title, c.content, c.visit_date, c.images, c.like_count, c.created_at, c.updated_at,
       u.id, u.full_name, u.avatar`

func scanComment(row pgx.Row) (types.Comment, error) {
	var c types.Comment
	var detailRaw []byte
	var author types.UserSummary
	err := row.Scan(
		&c.ID, &c.DestinationID, &c.UserID, &detailRaw, &c.Title, &c.Content,
		&c.VisitDate, &c.Images, &c.LikeCount, &c.CreatedAt, &c.UpdatedAt,
		&author.ID, &author.FullName, &author.Avatar,
	)
	if err != nil {
		return types.Comment{}, err
	}
	if err := json.Unmarshal(detailRaw, &c.Detail); err != nil {
		c.Detail = types.CommentDetail{}
	}
	c.Author = &author
	return c, nil
}

// recomputeRating keeps the denormalized rating columns current: the
// average of per-comment criterion means rounded to one decimal, and
// the comment count. No comments resets both to zero.
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

// CreateComment inserts the review and recomputes the destination
// rating in one transaction.
func (r *PostgresCommentRepo) CreateComment(ctx context.Context, params types.CreateCommentParams) (types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "CreateComment", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "comments"),
		attribute.String("db.destination.id", params.DestinationID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateComment"), slog.String("destinationID", params.DestinationID.String()))
	l.DebugContext(ctx, "Inserting comment")

	detail, err := json.Marshal(params.Detail)
	if err != nil {
		return types.Comment{}, fmt.Errorf("error encoding comment detail: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return types.Comment{}, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
        INSERT INTO comments (destination_id, user_id, detail, title, content, visit_date, images)
        VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), $7)
        RETURNING id`

	var commentID uuid.UUID
	err = tx.QueryRow(ctx, query,
		params.DestinationID, params.UserID, detail, params.Title, params.Content, params.VisitDate, params.Images,
	).Scan(&commentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			l.WarnContext(ctx, "Comment references missing destination or user")
			span.SetStatus(codes.Error, "Foreign key violation")
			return types.Comment{}, fmt.Errorf("destination does not exist: %w", api.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to insert comment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return types.Comment{}, fmt.Errorf("database error creating comment: %w", err)
	}

	if _, err := tx.Exec(ctx, recomputeRating, params.DestinationID); err != nil {
		l.ErrorContext(ctx, "Failed to recompute destination rating", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rating recompute failed")
		return types.Comment{}, fmt.Errorf("database error recomputing rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return types.Comment{}, fmt.Errorf("database error committing comment: %w", err)
	}

	c, err := r.GetComment(ctx, commentID)
	if err != nil {
		return types.Comment{}, err
	}

	l.InfoContext(ctx, "Comment created", slog.String("commentID", c.ID.String()))
	span.SetStatus(codes.Ok, "Comment created")
	return c, nil
}

func (r *PostgresCommentRepo) GetComment(ctx context.Context, id uuid.UUID) (types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "GetComment", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "comments"),
		attribute.String("db.comment.id", id.String()),
	))
	defer span.End()

	query := fmt.Sprintf(`
        SELECT %s
        FROM comments c
        JOIN users u ON u.id = c.user_id
        WHERE c.id = $1`, commentColumns)

	c, err := scanComment(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Comment not found")
			return types.Comment{}, fmt.Errorf("comment %s: %w", id.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.Comment{}, fmt.Errorf("database error fetching comment: %w", err)
	}

	span.SetStatus(codes.Ok, "Comment fetched")
	return c, nil
}

// ListComments returns one newest-first page plus the total count.
func (r *PostgresCommentRepo) ListComments(ctx context.Context, destinationID uuid.UUID, page, limit int) ([]types.Comment, int, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "ListComments", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "comments"),
		attribute.String("db.destination.id", destinationID.String()),
	))
	defer span.End()

	var total int
	if err := r.pgpool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE destination_id = $1`, destinationID).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB count failed")
		return nil, 0, fmt.Errorf("database error counting comments: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT %s
        FROM comments c
        JOIN users u ON u.id = c.user_id
        WHERE c.destination_id = $1
        ORDER BY c.created_at DESC
        LIMIT $2 OFFSET $3`, commentColumns)

	rows, err := r.pgpool.Query(ctx, query, destinationID, limit, (page-1)*limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error listing comments: %w", err)
	}
	defer rows.Close()

	var comments []types.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("database error scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("database error reading comments: %w", err)
	}

	span.SetStatus(codes.Ok, "Comments listed")
	return comments, total, nil
}

// DeleteComment removes the review and recomputes the destination
// rating in one transaction.
func (r *PostgresCommentRepo) DeleteComment(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "DeleteComment", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "comments"),
		attribute.String("db.comment.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "DeleteComment"), slog.String("commentID", id.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var destinationID uuid.UUID
	err = tx.QueryRow(ctx, `DELETE FROM comments WHERE id = $1 RETURNING destination_id`, id).Scan(&destinationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Comment not found")
			return fmt.Errorf("comment %s: %w", id.String(), api.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to delete comment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting comment: %w", err)
	}

	if _, err := tx.Exec(ctx, recomputeRating, destinationID); err != nil {
		l.ErrorContext(ctx, "Failed to recompute destination rating", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rating recompute failed")
		return fmt.Errorf("database error recomputing rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error committing comment delete: %w", err)
	}

	l.InfoContext(ctx, "Comment deleted", slog.String("destinationID", destinationID.String()))
	span.SetStatus(codes.Ok, "Comment deleted")
	return nil
}
