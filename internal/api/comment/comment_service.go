package comment

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

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

var _ CommentService = (*CommentServiceImpl)(nil)

// CommentService defines the business logic contract for reviews.
type CommentService interface {
	CreateComment(ctx context.Context, params types.CreateCommentParams) (types.Comment, error)
	GetComment(ctx context.Context, id uuid.UUID) (types.Comment, error)
	ListComments(ctx context.Context, destinationID uuid.UUID, page, limit int) ([]types.Comment, int, error)
	DeleteComment(ctx context.Context, id, callerID uuid.UUID, callerIsAdmin bool) error
}

type CommentServiceImpl struct {
	logger *slog.Logger
	repo   CommentRepo
}

func NewCommentService(repo CommentRepo, logger *slog.Logger) *CommentServiceImpl {
	return &CommentServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// validateDetail checks each criterion is a 1..5 score.
func validateDetail(d types.CommentDetail) error {
	for i, score := range []float64{d.Position, d.Price, d.Quality, d.Service, d.Ambience, d.Amenities} {
		if score < 1 || score > 5 {
			return fmt.Errorf("criteria%d must be between 1 and 5: %w", i+1, api.ErrBadRequest)
		}
	}
	return nil
}

func (s *CommentServiceImpl) CreateComment(ctx context.Context, params types.CreateCommentParams) (types.Comment, error) {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "CreateComment", trace.WithAttributes(
		attribute.String("destination.id", params.DestinationID.String()),
		attribute.String("user.id", params.UserID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateComment"), slog.String("destinationID", params.DestinationID.String()))
	l.DebugContext(ctx, "Creating comment")

	if strings.TrimSpace(params.Content) == "" {
		span.SetStatus(codes.Error, "Content required")
		return types.Comment{}, fmt.Errorf("comment content is required: %w", api.ErrBadRequest)
	}
	if err := validateDetail(params.Detail); err != nil {
		span.SetStatus(codes.Error, "Invalid rating detail")
		return types.Comment{}, err
	}

	c, err := s.repo.CreateComment(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create comment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create comment")
		return types.Comment{}, fmt.Errorf("error creating comment: %w", err)
	}

	l.InfoContext(ctx, "Comment created", slog.String("commentID", c.ID.String()))
	span.SetStatus(codes.Ok, "Comment created")
	return c, nil
}

func (s *CommentServiceImpl) GetComment(ctx context.Context, id uuid.UUID) (types.Comment, error) {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "GetComment", trace.WithAttributes(
		attribute.String("comment.id", id.String()),
	))
	defer span.End()

	c, err := s.repo.GetComment(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch comment")
		return types.Comment{}, fmt.Errorf("error fetching comment: %w", err)
	}

	span.SetStatus(codes.Ok, "Comment fetched")
	return c, nil
}

func (s *CommentServiceImpl) ListComments(ctx context.Context, destinationID uuid.UUID, page, limit int) ([]types.Comment, int, error) {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "ListComments", trace.WithAttributes(
		attribute.String("destination.id", destinationID.String()),
		attribute.Int("page", page),
	))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	comments, total, err := s.repo.ListComments(ctx, destinationID, page, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list comments")
		return nil, 0, fmt.Errorf("error listing comments: %w", err)
	}

	span.SetStatus(codes.Ok, "Comments listed")
	return comments, total, nil
}

// DeleteComment removes a review. Only the author or an admin may do
// so.
func (s *CommentServiceImpl) DeleteComment(ctx context.Context, id, callerID uuid.UUID, callerIsAdmin bool) error {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "DeleteComment", trace.WithAttributes(
		attribute.String("comment.id", id.String()),
		attribute.String("caller.id", callerID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteComment"), slog.String("commentID", id.String()))

	c, err := s.repo.GetComment(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch comment")
		return fmt.Errorf("error fetching comment: %w", err)
	}

	if c.UserID != callerID && !callerIsAdmin {
		l.WarnContext(ctx, "Caller is not the comment author", slog.String("callerID", callerID.String()))
		span.SetStatus(codes.Error, "Forbidden")
		return fmt.Errorf("comment belongs to another user: %w", api.ErrForbidden)
	}

	if err := s.repo.DeleteComment(ctx, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete comment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete comment")
		return fmt.Errorf("error deleting comment: %w", err)
	}

	l.InfoContext(ctx, "Comment deleted")
	span.SetStatus(codes.Ok, "Comment deleted")
	return nil
}
