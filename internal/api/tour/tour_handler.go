package tour

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

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

// TourHandler handles HTTP requests for tours and their itineraries.
type TourHandler struct {
	tourService TourService
	logger      *slog.Logger
}

func NewTourHandler(tourService TourService, logger *slog.Logger) *TourHandler {
	return &TourHandler{
		tourService: tourService,
		logger:      logger,
	}
}

type tourPage struct {
	Tours      []types.Tour   `json:"tours"`
	Pagination api.Pagination `json:"pagination"`
}

func callerFromContext(w http.ResponseWriter, r *http.Request, span trace.Span, l *slog.Logger) (uuid.UUID, bool, bool) {
	ctx := r.Context()
	userIDStr, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "User ID not found in context")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Authentication required")
		return uuid.Nil, false, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format in context", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorEnvelope(w, r, api.ErrUnauthenticated, "Invalid user session")
		return uuid.Nil, false, false
	}
	isAdmin, _ := auth.IsAdminFromContext(ctx)
	return userID, isAdmin, true
}

func parseTourID(w http.ResponseWriter, r *http.Request, span trace.Span, l *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		l.WarnContext(r.Context(), "Invalid tour ID in URL", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid tour ID format")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid tour ID format")
		return uuid.Nil, false
	}
	return id, true
}

func parsePage(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

func (h *TourHandler) CreateTour(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourHandler").Start(r.Context(), "CreateTour", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/tours"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateTour"))

	userID, _, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	var params types.CreateTourParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}
	params.UserID = userID

	t, err := h.tourService.CreateTour(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create tour", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create tour")
		api.ErrorEnvelope(w, r, err, "Failed to create tour")
		return
	}

	span.SetStatus(codes.Ok, "Tour created")
	api.WriteEnvelope(w, r, http.StatusCreated, "Tour created successfully", t)
}

func (h *TourHandler) ListPublicTours(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourHandler").Start(r.Context(), "ListPublicTours", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/tours"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListPublicTours"))

	page, limit := parsePage(r)
	tours, total, err := h.tourService.ListPublicTours(ctx, page, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list tours", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list tours")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve tours")
		return
	}

	span.SetStatus(codes.Ok, "Tours listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Tours retrieved successfully", tourPage{
		Tours:      tours,
		Pagination: api.NewPagination(page, limit, total),
	})
}

func (h *TourHandler) ListMyTours(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourHandler").Start(r.Context(), "ListMyTours", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/tours/mine"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListMyTours"))

	userID, _, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	page, limit := parsePage(r)
	tours, total, err := h.tourService.ListToursByUser(ctx, userID, page, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list tours", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list tours")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve tours")
		return
	}

	span.SetStatus(codes.Ok, "Tours listed")
	api.WriteEnvelope(w, r, http.StatusOK, "Tours retrieved successfully", tourPage{
		Tours:      tours,
		Pagination: api.NewPagination(page, limit, total),
	})
}

func (h *TourHandler) GetTour(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourHandler").Start(r.Context(), "GetTour", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/tours/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetTour"))

	id, ok := parseTourID(w, r, span, l)
	if !ok {
		return
	}

	// Anonymous callers can still read public tours.
	callerID := uuid.Nil
	isAdmin := false
	if userIDStr, found := auth.GetUserIDFromContext(ctx); found {
		if parsed, err := uuid.Parse(userIDStr); err == nil {
			callerID = parsed
		}
		isAdmin, _ = auth.IsAdminFromContext(ctx)
	}

	t, err := h.tourService.GetTour(ctx, id, callerID, isAdmin)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch tour", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch tour")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve tour")
		return
	}

	span.SetStatus(codes.Ok, "Tour fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Tour retrieved successfully", t)
}

func (h *TourHandler) GetMyTourBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourHandler").Start(r.Context(), "GetMyTourBySlug", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/tours/slug/{slug}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetMyTourBySlug"))

	userID, _, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}

	slug := chi.URLParam(r, "slug")
	t, err := h.tourService.GetTourBySlug(ctx, userID, slug)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch tour by slug", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch tour")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve tour")
		return
	}

	span.SetStatus(codes.Ok, "Tour fetched")
	api.WriteEnvelope(w, r, http.StatusOK, "Tour retrieved successfully", t)
}

func (h *TourHandler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourHandler").Start(r.Context(), "UpdateTour", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/tours/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateTour"))

	userID, isAdmin, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}
	id, ok := parseTourID(w, r, span, l)
	if !ok {
		return
	}

	var params types.UpdateTourParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode request")
		api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
		return
	}

	t, err := h.tourService.UpdateTour(ctx, id, params, userID, isAdmin)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update tour", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update tour")
		api.ErrorEnvelope(w, r, err, "Failed to update tour")
		return
	}

	span.SetStatus(codes.Ok, "Tour updated")
	api.WriteEnvelope(w, r, http.StatusOK, "Tour updated successfully", t)
}

func (h *TourHandler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourHandler").Start(r.Context(), "DeleteTour", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/tours/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeleteTour"))

	userID, isAdmin, ok := callerFromContext(w, r, span, l)
	if !ok {
		return
	}
	id, ok := parseTourID(w, r, span, l)
	if !ok {
		return
	}

	if err := h.tourService.DeleteTour(ctx, id, userID, isAdmin); err != nil {
		l.ErrorContext(ctx, "Failed to delete tour", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete tour")
		api.ErrorEnvelope(w, r, err, "Failed to delete tour")
		return
	}

	span.SetStatus(codes.Ok, "Tour deleted")
	api.WriteEnvelope(w, r, http.StatusOK, "Tour deleted successfully", nil)
}

// itineraryOp wraps the shared decode/authorize/respond flow of the
// per-day mutations.
func itineraryOp[P any](h *TourHandler, name, route string, op func(ctx context.Context, tourID uuid.UUID, params P, callerID uuid.UUID, isAdmin bool) (types.Tour, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer("TourHandler").Start(r.Context(), name, trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
			semconv.HTTPRouteKey.String(route),
		))
		defer span.End()

		l := h.logger.With(slog.String("handler", name))

		userID, isAdmin, ok := callerFromContext(w, r, span, l)
		if !ok {
			return
		}
		id, ok := parseTourID(w, r, span, l)
		if !ok {
			return
		}

		var params P
		if err := api.DecodeJSONBody(w, r, &params); err != nil {
			l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to decode request")
			api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
			return
		}

		t, err := op(ctx, id, params, userID, isAdmin)
		if err != nil {
			l.ErrorContext(ctx, "Itinerary operation failed", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Itinerary operation failed")
			api.ErrorEnvelope(w, r, err, "Failed to update itinerary")
			return
		}

		span.SetStatus(codes.Ok, "Itinerary updated")
		api.WriteEnvelope(w, r, http.StatusOK, "Itinerary updated successfully", t)
	}
}

func (h *TourHandler) AddDestination() http.HandlerFunc {
	return itineraryOp(h, "AddDestination", "/tours/{id}/destinations", h.tourService.AddDestination)
}

func (h *TourHandler) UpdateDestination() http.HandlerFunc {
	return itineraryOp(h, "UpdateDestination", "/tours/{id}/destinations", h.tourService.UpdateDestination)
}

func (h *TourHandler) RemoveDestination() http.HandlerFunc {
	return itineraryOp(h, "RemoveDestination", "/tours/{id}/destinations/remove", h.tourService.RemoveDestination)
}

func (h *TourHandler) AddNote() http.HandlerFunc {
	return itineraryOp(h, "AddNote", "/tours/{id}/notes", h.tourService.AddNote)
}

func (h *TourHandler) UpdateNote() http.HandlerFunc {
	return itineraryOp(h, "UpdateNote", "/tours/{id}/notes", h.tourService.UpdateNote)
}

func (h *TourHandler) RemoveNote() http.HandlerFunc {
	return itineraryOp(h, "RemoveNote", "/tours/{id}/notes/remove", h.tourService.RemoveNote)
}
