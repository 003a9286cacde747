package taxonomy

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

var _ TaxonomyService = (*TaxonomyServiceImpl)(nil)

// TaxonomyService defines the business logic contract for the
// vocabulary resources.
type TaxonomyService interface {
	List(ctx context.Context, kind Kind) ([]types.Tag, error)
	Create(ctx context.Context, kind Kind, title string) (types.Tag, error)
	Update(ctx context.Context, kind Kind, id uuid.UUID, title string) (types.Tag, error)
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error
}

type TaxonomyServiceImpl struct {
	logger *slog.Logger
	repo   TaxonomyRepo
}

func NewTaxonomyService(repo TaxonomyRepo, logger *slog.Logger) *TaxonomyServiceImpl {
	return &TaxonomyServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *TaxonomyServiceImpl) List(ctx context.Context, kind Kind) ([]types.Tag, error) {
	ctx, span := otel.Tracer("TaxonomyService").Start(ctx, "List", trace.WithAttributes(
		attribute.String("taxonomy.kind", string(kind)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "List"), slog.String("kind", string(kind)))

	terms, err := s.repo.List(ctx, kind)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list terms", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list terms")
		return nil, fmt.Errorf("error listing %s: %w", kind, err)
	}

	span.SetStatus(codes.Ok, "Terms listed")
	return terms, nil
}

func (s *TaxonomyServiceImpl) Create(ctx context.Context, kind Kind, title string) (types.Tag, error) {
	ctx, span := otel.Tracer("TaxonomyService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("taxonomy.kind", string(kind)),
		attribute.String("taxonomy.title", title),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Create"), slog.String("kind", string(kind)))

	title = strings.TrimSpace(title)
	if title == "" {
		span.SetStatus(codes.Error, "Title required")
		return types.Tag{}, fmt.Errorf("title is required: %w", api.ErrBadRequest)
	}

	t, err := s.repo.Create(ctx, kind, title, api.Slugify(title))
	if err != nil {
		l.ErrorContext(ctx, "Failed to create term", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create term")
		return types.Tag{}, fmt.Errorf("error creating %s: %w", kind, err)
	}

	l.InfoContext(ctx, "Term created", slog.String("id", t.ID.String()), slog.String("title", t.Title))
	span.SetStatus(codes.Ok, "Term created")
	return t, nil
}

func (s *TaxonomyServiceImpl) Update(ctx context.Context, kind Kind, id uuid.UUID, title string) (types.Tag, error) {
	ctx, span := otel.Tracer("TaxonomyService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("taxonomy.kind", string(kind)),
		attribute.String("taxonomy.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Update"), slog.String("kind", string(kind)), slog.String("id", id.String()))

	title = strings.TrimSpace(title)
	if title == "" {
		span.SetStatus(codes.Error, "Title required")
		return types.Tag{}, fmt.Errorf("title is required: %w", api.ErrBadRequest)
	}

	t, err := s.repo.Update(ctx, kind, id, title, api.Slugify(title))
	if err != nil {
		l.ErrorContext(ctx, "Failed to update term", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update term")
		return types.Tag{}, fmt.Errorf("error updating %s: %w", kind, err)
	}

	l.InfoContext(ctx, "Term updated")
	span.SetStatus(codes.Ok, "Term updated")
	return t, nil
}

func (s *TaxonomyServiceImpl) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	ctx, span := otel.Tracer("TaxonomyService").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("taxonomy.kind", string(kind)),
		attribute.String("taxonomy.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Delete"), slog.String("kind", string(kind)), slog.String("id", id.String()))

	if err := s.repo.Delete(ctx, kind, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete term", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete term")
		return fmt.Errorf("error deleting %s: %w", kind, err)
	}

	l.InfoContext(ctx, "Term deleted")
	span.SetStatus(codes.Ok, "Term deleted")
	return nil
}
