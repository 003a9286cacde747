package city

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/api/auth"
	"github.com/vivutravel/vivu-backend/internal/types"
)

// CityHandler handles HTTP requests for cities.
type CityHandler struct {
	cityService CityService
	logger      *slog.Logger
}

func NewCityHandler(cityService CityService, logger *slog.Logger) *CityHandler {
	return &CityHandler{
		cityService: cityService,
		logger:      logger,
	}
}

func (h *CityHandler) parseID(w http.ResponseWriter, r *http.Request, span trace.Span, l *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(r.Context(), "Invalid city ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid city ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid city ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *CityHandler) CreateCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "CreateCity", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateCity"))

	var params types.CreateCityParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}
	if email, ok := auth.GetUserEmailFromContext(ctx); ok {
		params.CreatedBy = email
	}

	c, err := h.cityService.CreateCity(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create city")
		api.ErrorEnvelope(w, r, err, "Failed to create city")
		return
	}

	span.SetStatus(codes.Ok, "City created")
	api.WriteEnvelope(w, r, http.StatusCreated, "City created successfully", c)
}

func (h *CityHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "ListCities", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListCities"))

	if typeIDStr := r.URL.Query().Get("type"); typeIDStr != "" {
		typeID, err := uuid.Parse(typeIDStr)
		if err != nil {
			span.SetStatus(codes.Error, "Invalid type filter")
			api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid type filter")
			return
		}
		cities, err := h.cityService.ListCitiesByType(ctx, typeID)
		if err != nil {
			l.ErrorContext(ctx, "Failed to list cities by type", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to list cities by type")
			api.ErrorEnvelope(w, r, err, "Failed to retrieve cities")
			return
		}
		span.SetStatus(codes.Ok, "Cities listed")
		api.WriteEnvelope(w, r, http.StatusOK, "Get cities successfully", cities)
		return
	}

	cities, err := h.cityService.ListCities(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list cities")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve cities")
		return
	}

	span.SetStatus(codes.Ok, "Cities listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Get cities successfully", cities)
}

// ListCitiesWithCounts serves the admin dashboard listing.
func (h *CityHandler) ListCitiesWithCounts(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "ListCitiesWithCounts", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/with-counts"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListCitiesWithCounts"))

	cities, err := h.cityService.ListCitiesWithCounts(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list cities with counts", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list cities with counts")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve cities")
		return
	}

	span.SetStatus(codes.Ok, "Cities listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Get cities successfully", cities)
}

// GetCity resolves by id and bumps the view counter. A failed bump
// only logs, the read still succeeds.
func (h *CityHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "GetCity", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetCity"))

	id, ok := h.parseID(w, r, span, l)
	if !ok {
		return
	}

	c, err := h.cityService.GetCity(ctx, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch city")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve city")
		return
	}

	if err := h.cityService.IncrementViews(ctx, id); err != nil {
		l.WarnContext(ctx, "Failed to increment city views", slog.Any("error", err))
	}

	span.SetStatus(codes.Ok, "City fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Get city successfully", c)
}

func (h *CityHandler) GetCityBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "GetCityBySlug", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/slug/{slug}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetCityBySlug"))

	slug := chi.URLParam(r, "slug")
	c, err := h.cityService.GetCityBySlug(ctx, slug)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch city by slug", slog.Any("error", err), slog.String("slug", slug))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch city by slug")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve city")
		return
	}

	if err := h.cityService.IncrementViews(ctx, c.ID); err != nil {
		l.WarnContext(ctx, "Failed to increment city views", slog.Any("error", err))
	}

	span.SetStatus(codes.Ok, "City fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Get city successfully", c)
}

func (h *CityHandler) UpdateCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "UpdateCity", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateCity"))

	id, ok := h.parseID(w, r, span, l)
	if !ok {
		return
	}

	var params types.UpdateCityParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	c, err := h.cityService.UpdateCity(ctx, id, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update city")
		api.ErrorEnvelope(w, r, err, "Failed to update city")
		return
	}

	span.SetStatus(codes.Ok, "City updated")
	api.WriteEnvelope(w, r, http.StatusOK, "City updated successfully", c)
}

// DeletionImpact previews what a delete would cascade to, so the
// admin UI can confirm before committing.
func (h *CityHandler) DeletionImpact(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "DeletionImpact", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/{id}/deletion-impact"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeletionImpact"))

	id, ok := h.parseID(w, r, span, l)
	if !ok {
		return
	}

	impact, err := h.cityService.DeletionImpact(ctx, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to compute deletion impact", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to compute deletion impact")
		api.ErrorEnvelope(w, r, err, "Failed to compute deletion impact")
		return
	}

	span.SetStatus(codes.Ok, "Deletion impact computed")
	api.WriteEnvelope(w, r, http.StatusOK, "Get deletion impact successfully", impact)
}

func (h *CityHandler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "DeleteCity", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeleteCity"))

	id, ok := h.parseID(w, r, span, l)
	if !ok {
		return
	}

	if err := h.cityService.DeleteCity(ctx, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete city")
		api.ErrorEnvelope(w, r, err, "Failed to delete city")
		return
	}

	span.SetStatus(codes.Ok, "City deleted")
	api.WriteEnvelope(w, r, http.StatusOK, "City deleted successfully", nil)
}
