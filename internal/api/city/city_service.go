package city

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

const maxCityImages = 4

var _ CityService = (*CityServiceImpl)(nil)

// CityService defines the business logic contract for cities.
type CityService interface {
	CreateCity(ctx context.Context, params types.CreateCityParams) (types.City, error)
	GetCity(ctx context.Context, id uuid.UUID) (types.City, error)
	GetCityBySlug(ctx context.Context, slug string) (types.City, error)
	ListCities(ctx context.Context) ([]types.City, error)
	ListCitiesByType(ctx context.Context, typeID uuid.UUID) ([]types.City, error)
	ListCitiesWithCounts(ctx context.Context) ([]types.CityWithCount, error)
	UpdateCity(ctx context.Context, id uuid.UUID, params types.UpdateCityParams) (types.City, error)
	DeletionImpact(ctx context.Context, id uuid.UUID) (types.CityDeletionImpact, error)
	DeleteCity(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type CityServiceImpl struct {
	logger *slog.Logger
	repo   CityRepo
}

func NewCityService(repo CityRepo, logger *slog.Logger) *CityServiceImpl {
	return &CityServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// validateWeather enforces the four-season contract: a city carries
// exactly four seasonal entries, each with a title.
func validateWeather(weather []types.SeasonWeather) error {
	if len(weather) != 4 {
		return fmt.Errorf("weather must describe exactly 4 seasons, got %d: %w", len(weather), api.ErrBadRequest)
	}
	for i, w := range weather {
		if strings.TrimSpace(w.Title) == "" {
			return fmt.Errorf("weather entry %d is missing a title: %w", i, api.ErrBadRequest)
		}
	}
	return nil
}

func (s *CityServiceImpl) CreateCity(ctx context.Context, params types.CreateCityParams) (types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "CreateCity", trace.WithAttributes(
		attribute.String("city.name", params.Name),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateCity"), slog.String("name", params.Name))
	l.DebugContext(ctx, "Creating city")

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		span.SetStatus(codes.Error, "Name required")
		return types.City{}, fmt.Errorf("city name is required: %w", api.ErrBadRequest)
	}
	if len(params.Images) > maxCityImages {
		span.SetStatus(codes.Error, "Too many images")
		return types.City{}, fmt.Errorf("a city carries at most %d images: %w", maxCityImages, api.ErrBadRequest)
	}
	if err := validateWeather(params.Weather); err != nil {
		span.SetStatus(codes.Error, "Invalid weather")
		return types.City{}, err
	}

	c, err := s.repo.CreateCity(ctx, params, api.Slugify(params.Name))
	if err != nil {
		l.ErrorContext(ctx, "Failed to create city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create city")
		return types.City{}, fmt.Errorf("error creating city: %w", err)
	}

	l.InfoContext(ctx, "City created", slog.String("cityID", c.ID.String()))
	span.SetStatus(codes.Ok, "City created")
	return c, nil
}

func (s *CityServiceImpl) GetCity(ctx context.Context, id uuid.UUID) (types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "GetCity", trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	c, err := s.repo.GetCity(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch city")
		return types.City{}, fmt.Errorf("error fetching city: %w", err)
	}

	span.SetStatus(codes.Ok, "City fetched")
	return c, nil
}

func (s *CityServiceImpl) GetCityBySlug(ctx context.Context, slug string) (types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "GetCityBySlug", trace.WithAttributes(
		attribute.String("city.slug", slug),
	))
	defer span.End()

	c, err := s.repo.GetCityBySlug(ctx, slug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch city")
		return types.City{}, fmt.Errorf("error fetching city by slug: %w", err)
	}

	span.SetStatus(codes.Ok, "City fetched")
	return c, nil
}

func (s *CityServiceImpl) ListCities(ctx context.Context) ([]types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "ListCities")
	defer span.End()

	cities, err := s.repo.ListCities(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list cities")
		return nil, fmt.Errorf("error listing cities: %w", err)
	}

	span.SetStatus(codes.Ok, "Cities listed")
	return cities, nil
}

func (s *CityServiceImpl) ListCitiesByType(ctx context.Context, typeID uuid.UUID) ([]types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "ListCitiesByType", trace.WithAttributes(
		attribute.String("city_type.id", typeID.String()),
	))
	defer span.End()

	cities, err := s.repo.ListCitiesByType(ctx, typeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list cities by type")
		return nil, fmt.Errorf("error listing cities by type: %w", err)
	}

	span.SetStatus(codes.Ok, "Cities listed")
	return cities, nil
}

func (s *CityServiceImpl) ListCitiesWithCounts(ctx context.Context) ([]types.CityWithCount, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "ListCitiesWithCounts")
	defer span.End()

	cities, err := s.repo.ListCitiesWithCounts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list cities with counts")
		return nil, fmt.Errorf("error listing cities with counts: %w", err)
	}

	span.SetStatus(codes.Ok, "Cities with counts listed")
	return cities, nil
}

// UpdateCity loads the current row, applies the provided fields and
// stores the merged result. Absent fields keep their stored value.
func (s *CityServiceImpl) UpdateCity(ctx context.Context, id uuid.UUID, params types.UpdateCityParams) (types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "UpdateCity", trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateCity"), slog.String("cityID", id.String()))
	l.DebugContext(ctx, "Updating city")

	c, err := s.repo.GetCity(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch city")
		return types.City{}, fmt.Errorf("error fetching city for update: %w", err)
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			span.SetStatus(codes.Error, "Name required")
			return types.City{}, fmt.Errorf("city name cannot be empty: %w", api.ErrBadRequest)
		}
		c.Name = name
		c.Slug = api.Slugify(name)
	}
	if params.Description != nil {
		c.Description = *params.Description
	}
	if params.Images != nil {
		if len(params.Images) > maxCityImages {
			span.SetStatus(codes.Error, "Too many images")
			return types.City{}, fmt.Errorf("a city carries at most %d images: %w", maxCityImages, api.ErrBadRequest)
		}
		c.Images = params.Images
	}
	if params.Weather != nil {
		if err := validateWeather(params.Weather); err != nil {
			span.SetStatus(codes.Error, "Invalid weather")
			return types.City{}, err
		}
		c.Weather = params.Weather
	}
	if params.Info != nil {
		c.Info = params.Info
	}

	saved, err := s.repo.SaveCity(ctx, c, params.TypeIDs)
	if err != nil {
		l.ErrorContext(ctx, "Failed to save city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save city")
		return types.City{}, fmt.Errorf("error saving city: %w", err)
	}

	l.InfoContext(ctx, "City updated")
	span.SetStatus(codes.Ok, "City updated")
	return saved, nil
}

func (s *CityServiceImpl) DeletionImpact(ctx context.Context, id uuid.UUID) (types.CityDeletionImpact, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "DeletionImpact", trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	impact, err := s.repo.DeletionImpact(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to compute deletion impact")
		return types.CityDeletionImpact{}, fmt.Errorf("error computing deletion impact: %w", err)
	}

	span.SetStatus(codes.Ok, "Deletion impact computed")
	return impact, nil
}

func (s *CityServiceImpl) DeleteCity(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CityService").Start(ctx, "DeleteCity", trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteCity"), slog.String("cityID", id.String()))

	if err := s.repo.DeleteCity(ctx, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete city")
		return fmt.Errorf("error deleting city: %w", err)
	}

	l.InfoContext(ctx, "City deleted")
	span.SetStatus(codes.Ok, "City deleted")
	return nil
}

// IncrementViews bumps the view counter. Lost increments under load
// are acceptable, failures only get logged by the caller.
func (s *CityServiceImpl) IncrementViews(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CityService").Start(ctx, "IncrementViews", trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to increment views")
		return fmt.Errorf("error incrementing city views: %w", err)
	}

	span.SetStatus(codes.Ok, "Views incremented")
	return nil
}
