package destination

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

const popularCacheKey = "destinations:popular"

var _ DestinationService = (*DestinationServiceImpl)(nil)

// Ingester pushes destination content into the retrieval index. The
// chat relay provides the real one.
type Ingester interface {
	Ingest(ctx context.Context, destinationID uuid.UUID, content string) error
}

// DestinationService defines the business logic contract for
// destinations.
type DestinationService interface {
	CreateDestination(ctx context.Context, params types.CreateDestinationParams) (types.Destination, error)
	GetDestination(ctx context.Context, id uuid.UUID) (types.Destination, error)
	GetDestinationBySlug(ctx context.Context, citySlug, slug string) (types.Destination, error)
	SearchDestinations(ctx context.Context, filter types.DestinationFilter) ([]types.Destination, int, error)
	ListPopular(ctx context.Context, limit int) ([]types.Destination, error)
	UpdateDestination(ctx context.Context, id uuid.UUID, params types.UpdateDestinationParams) (types.Destination, error)
	DeleteDestination(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type DestinationServiceImpl struct {
	logger   *slog.Logger
	repo     DestinationRepo
	ingester Ingester
	cache    *cache.Cache
}

// NewDestinationService creates the destination service. The ingester
// may be nil, in which case retrieval indexing is skipped.
func NewDestinationService(repo DestinationRepo, ingester Ingester, cacheTTL time.Duration, logger *slog.Logger) *DestinationServiceImpl {
	return &DestinationServiceImpl{
		logger:   logger,
		repo:     repo,
		ingester: ingester,
		cache:    cache.New(cacheTTL, 2*cacheTTL),
	}
}

// ingestContent flattens the searchable text of a destination for the
// retrieval index.
func ingestContent(d types.Destination) string {
	parts := []string{d.Name, d.Address, d.Details.Description}
	parts = append(parts, d.Details.Highlight...)
	parts = append(parts, d.Details.Activities...)
	parts = append(parts, d.Details.Services...)
	if d.City != nil {
		parts = append(parts, d.City.Name)
	}
	for _, t := range d.Tags {
		parts = append(parts, t.Title)
	}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// indexDestination pushes content to the retrieval service on a
// detached context. Failures only log, the write already succeeded.
func (s *DestinationServiceImpl) indexDestination(d types.Destination) {
	if s.ingester == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.ingester.Ingest(ctx, d.ID, ingestContent(d)); err != nil {
			s.logger.Warn("Failed to index destination for retrieval",
				slog.String("destinationID", d.ID.String()), slog.Any("error", err))
		}
	}()
}

func (s *DestinationServiceImpl) CreateDestination(ctx context.Context, params types.CreateDestinationParams) (types.Destination, error) {
	ctx, span := otel.Tracer("DestinationService").Start(ctx, "CreateDestination", trace.WithAttributes(
		attribute.String("destination.title", params.Name),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateDestination"), slog.String("title", params.Name))
	l.DebugContext(ctx, "Creating destination")

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		span.SetStatus(codes.Error, "Title required")
		return types.Destination{}, fmt.Errorf("destination title is required: %w", api.ErrBadRequest)
	}
	if params.CityID == uuid.Nil {
		span.SetStatus(codes.Error, "City required")
		return types.Destination{}, fmt.Errorf("destination city is required: %w", api.ErrBadRequest)
	}

	d, err := s.repo.CreateDestination(ctx, params, api.Slugify(params.Name))
	if err != nil {
		l.ErrorContext(ctx, "Failed to create destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create destination")
		return types.Destination{}, fmt.Errorf("error creating destination: %w", err)
	}

	s.cache.Flush()
	s.indexDestination(d)

	l.InfoContext(ctx, "Destination created", slog.String("destinationID", d.ID.String()))
	span.SetStatus(codes.Ok, "Destination created")
	return d, nil
}

func (s *DestinationServiceImpl) GetDestination(ctx context.Context, id uuid.UUID) (types.Destination, error) {
	ctx, span := otel.Tracer("DestinationService").Start(ctx, "GetDestination", trace.WithAttributes(
		attribute.String("destination.id", id.String()),
	))
	defer span.End()

	d, err := s.repo.GetDestination(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch destination")
		return types.Destination{}, fmt.Errorf("error fetching destination: %w", err)
	}

	span.SetStatus(codes.Ok, "Destination fetched")
	return d, nil
}

func (s *DestinationServiceImpl) GetDestinationBySlug(ctx context.Context, citySlug, slug string) (types.Destination, error) {
	ctx, span := otel.Tracer("DestinationService").Start(ctx, "GetDestinationBySlug", trace.WithAttributes(
		attribute.String("destination.slug", slug),
		attribute.String("city.slug", citySlug),
	))
	defer span.End()

	d, err := s.repo.GetDestinationBySlug(ctx, citySlug, slug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch destination")
		return types.Destination{}, fmt.Errorf("error fetching destination by slug: %w", err)
	}

	span.SetStatus(codes.Ok, "Destination fetched")
	return d, nil
}

func (s *DestinationServiceImpl) SearchDestinations(ctx context.Context, filter types.DestinationFilter) ([]types.Destination, int, error) {
	ctx, span := otel.Tracer("DestinationService").Start(ctx, "SearchDestinations", trace.WithAttributes(
		attribute.String("search.query", filter.Query),
		attribute.Int("search.page", filter.Page),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SearchDestinations"))

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	dests, total, err := s.repo.SearchDestinations(ctx, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to search destinations", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to search destinations")
		return nil, 0, fmt.Errorf("error searching destinations: %w", err)
	}

	span.SetStatus(codes.Ok, "Destinations searched")
	return dests, total, nil
}

// ListPopular serves the most-viewed destinations through a short
// lived cache. Staleness up to the TTL is fine here.
func (s *DestinationServiceImpl) ListPopular(ctx context.Context, limit int) ([]types.Destination, error) {
	ctx, span := otel.Tracer("DestinationService").Start(ctx, "ListPopular", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	if limit < 1 || limit > 50 {
		limit = 10
	}

	key := fmt.Sprintf("%s:%d", popularCacheKey, limit)
	if cached, ok := s.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Popular destinations served from cache")
		return cached.([]types.Destination), nil
	}

	dests, err := s.repo.ListPopular(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list popular destinations")
		return nil, fmt.Errorf("error listing popular destinations: %w", err)
	}

	s.cache.SetDefault(key, dests)
	span.SetStatus(codes.Ok, "Popular destinations listed")
	return dests, nil
}

// UpdateDestination loads the current row, applies the provided
// fields and stores the merged result.
func (s *DestinationServiceImpl) UpdateDestination(ctx context.Context, id uuid.UUID, params types.UpdateDestinationParams) (types.Destination, error) {
	ctx, span := otel.Tracer("DestinationService").Start(ctx, "UpdateDestination", trace.WithAttributes(
		attribute.String("destination.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateDestination"), slog.String("destinationID", id.String()))
	l.DebugContext(ctx, "Updating destination")

	d, err := s.repo.GetDestination(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch destination")
		return types.Destination{}, fmt.Errorf("error fetching destination for update: %w", err)
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			span.SetStatus(codes.Error, "Title required")
			return types.Destination{}, fmt.Errorf("destination title cannot be empty: %w", api.ErrBadRequest)
		}
		d.Name = name
		d.Slug = api.Slugify(name)
	}
	if params.CityID != nil {
		d.CityID = *params.CityID
	}
	if params.TypeID != nil {
		d.TypeID = params.TypeID
	}
	if params.Address != nil {
		d.Address = *params.Address
	}
	if params.Latitude != nil {
		d.Latitude = params.Latitude
	}
	if params.Longitude != nil {
		d.Longitude = params.Longitude
	}
	if params.Album != nil {
		d.Album = *params.Album
	}
	if params.Details != nil {
		d.Details = *params.Details
	}
	if params.OpenHours != nil {
		d.OpenHours = *params.OpenHours
	}
	if params.ContactInfo != nil {
		d.ContactInfo = *params.ContactInfo
	}

	saved, err := s.repo.SaveDestination(ctx, d, params.TagIDs)
	if err != nil {
		l.ErrorContext(ctx, "Failed to save destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save destination")
		return types.Destination{}, fmt.Errorf("error saving destination: %w", err)
	}

	s.cache.Flush()
	s.indexDestination(saved)

	l.InfoContext(ctx, "Destination updated")
	span.SetStatus(codes.Ok, "Destination updated")
	return saved, nil
}

func (s *DestinationServiceImpl) DeleteDestination(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("DestinationService").Start(ctx, "DeleteDestination", trace.WithAttributes(
		attribute.String("destination.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteDestination"), slog.String("destinationID", id.String()))

	if err := s.repo.DeleteDestination(ctx, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete destination")
		return fmt.Errorf("error deleting destination: %w", err)
	}

	s.cache.Flush()

	l.InfoContext(ctx, "Destination deleted")
	span.SetStatus(codes.Ok, "Destination deleted")
	return nil
}

func (s *DestinationServiceImpl) IncrementViews(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("DestinationService").Start(ctx, "IncrementViews", trace.WithAttributes(
		attribute.String("destination.id", id.String()),
	))
	defer span.End()

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to increment views")
		return fmt.Errorf("error incrementing destination views: %w", err)
	}

	span.SetStatus(codes.Ok, "Views incremented")
	return nil
}
