package destination

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

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

// DestinationHandler handles HTTP requests for destinations.
type DestinationHandler struct {
	destinationService DestinationService
	logger             *slog.Logger
}

func NewDestinationHandler(destinationService DestinationService, logger *slog.Logger) *DestinationHandler {
	return &DestinationHandler{
		destinationService: destinationService,
		logger:             logger,
	}
}

// searchResult pairs one page of matches with paging metadata.
type searchResult struct {
	Destinations []types.Destination `json:"destinations"`
	Pagination   api.Pagination      `json:"pagination"`
}

func (h *DestinationHandler) parseID(w http.ResponseWriter, r *http.Request, span trace.Span, l *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(r.Context(), "Invalid destination ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid destination ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid destination ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *DestinationHandler) CreateDestination(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DestinationHandler").Start(r.Context(), "CreateDestination", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/destinations"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateDestination"))

	var params types.CreateDestinationParams
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

	d, err := h.destinationService.CreateDestination(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create destination")
		api.ErrorEnvelope(w, r, err, "Failed to create destination")
		return
	}

	span.SetStatus(codes.Ok, "Destination created")
	api.WriteEnvelope(w, r, http.StatusCreated, "Destination created successfully", d)
}

// SearchDestinations serves the public listing with query, city,
// type and tag filters.
func (h *DestinationHandler) SearchDestinations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DestinationHandler").Start(r.Context(), "SearchDestinations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/destinations"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchDestinations"))

	q := r.URL.Query()
	filter := types.DestinationFilter{Query: strings.TrimSpace(q.Get("q"))}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	if cityStr := q.Get("city"); cityStr != "" {
		cityID, err := uuid.Parse(cityStr)
		if err != nil {
			span.SetStatus(codes.Error, "Invalid city filter")
			api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid city filter")
			return
		}
		filter.CityID = &cityID
	}
	if typeStr := q.Get("type"); typeStr != "" {
		typeID, err := uuid.Parse(typeStr)
		if err != nil {
			span.SetStatus(codes.Error, "Invalid type filter")
			api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid type filter")
			return
		}
		filter.TypeID = &typeID
	}
	if tagsStr := q.Get("tags"); tagsStr != "" {
		for _, part := range strings.Split(tagsStr, ",") {
			tagID, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				span.SetStatus(codes.Error, "Invalid tags filter")
				api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid tags filter")
				return
			}
			filter.TagIDs = append(filter.TagIDs, tagID)
		}
	}

	dests, total, err := h.destinationService.SearchDestinations(ctx, filter)
	if err != nil {
		l.ErrorContext(ctx, "Failed to search destinations", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to search destinations")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve destinations")
		return
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	span.SetStatus(codes.Ok, "Destinations searched")
	api.WriteEnvelope(w, r, http.StatusOK, "Get destinations successfully", searchResult{
		Destinations: dests,
		Pagination:   api.NewPagination(filter.Page, filter.Limit, total),
	})
}

// ListPopular serves the most viewed destinations.
func (h *DestinationHandler) ListPopular(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DestinationHandler").Start(r.Context(), "ListPopular", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/destinations/popular"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListPopular"))

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	dests, err := h.destinationService.ListPopular(ctx, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list popular destinations", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list popular destinations")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve destinations")
		return
	}

	span.SetStatus(codes.Ok, "Popular destinations listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Get destinations successfully", dests)
}

// GetDestination resolves by id and bumps the view counter.
func (h *DestinationHandler) GetDestination(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DestinationHandler").Start(r.Context(), "GetDestination", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/destinations/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetDestination"))

	id, ok := h.parseID(w, r, span, l)
	if !ok {
		return
	}

	d, err := h.destinationService.GetDestination(ctx, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch destination")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve destination")
		return
	}

	if err := h.destinationService.IncrementViews(ctx, id); err != nil {
		l.WarnContext(ctx, "Failed to increment destination views", slog.Any("error", err))
	}

	span.SetStatus(codes.Ok, "Destination fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Get destination successfully", d)
}

func (h *DestinationHandler) GetDestinationBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DestinationHandler").Start(r.Context(), "GetDestinationBySlug", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/{citySlug}/destinations/{slug}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetDestinationBySlug"))

	citySlug := chi.URLParam(r, "citySlug")
	slug := chi.URLParam(r, "slug")

	d, err := h.destinationService.GetDestinationBySlug(ctx, citySlug, slug)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch destination by slug", slog.Any("error", err),
			slog.String("citySlug", citySlug), slog.String("slug", slug))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch destination by slug")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve destination")
		return
	}

	if err := h.destinationService.IncrementViews(ctx, d.ID); err != nil {
		l.WarnContext(ctx, "Failed to increment destination views", slog.Any("error", err))
	}

	span.SetStatus(codes.Ok, "Destination fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Get destination successfully", d)
}

func (h *DestinationHandler) UpdateDestination(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DestinationHandler").Start(r.Context(), "UpdateDestination", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/destinations/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateDestination"))

	id, ok := h.parseID(w, r, span, l)
	if !ok {
		return
	}

	var params types.UpdateDestinationParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	d, err := h.destinationService.UpdateDestination(ctx, id, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update destination")
		api.ErrorEnvelope(w, r, err, "Failed to update destination")
		return
	}

	span.SetStatus(codes.Ok, "Destination updated")
	api.WriteEnvelope(w, r, http.StatusOK, "Destination updated successfully", d)
}

func (h *DestinationHandler) DeleteDestination(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DestinationHandler").Start(r.Context(), "DeleteDestination", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/destinations/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeleteDestination"))

	id, ok := h.parseID(w, r, span, l)
	if !ok {
		return
	}

	if err := h.destinationService.DeleteDestination(ctx, id); err != nil {
		l.ErrorContext(ctx, "Failed to delete destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete destination")
		api.ErrorEnvelope(w, r, err, "Failed to delete destination")
		return
	}

	span.SetStatus(codes.Ok, "Destination deleted")
	api.WriteEnvelope(w, r, http.StatusOK, "Destination deleted successfully", nil)
}
