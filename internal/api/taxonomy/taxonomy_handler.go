package taxonomy

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
	"github.com/vivutravel/vivu-backend/internal/types"
)

// TaxonomyHandler handles HTTP requests for tags, city types and
// destination types. The kind is fixed per route registration.
type TaxonomyHandler struct {
	taxonomyService TaxonomyService
	logger          *slog.Logger
}

func NewTaxonomyHandler(taxonomyService TaxonomyService, logger *slog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		taxonomyService: taxonomyService,
		logger:          logger,
	}
}

// List returns every term of the kind, ordered by title.
func (h *TaxonomyHandler) List(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer("TaxonomyHandler").Start(r.Context(), "List", trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
		))
		defer span.End()

		l := h.logger.With(slog.String("handler", "List"), slog.String("kind", string(kind)))

		terms, err := h.taxonomyService.List(ctx, kind)
		if err != nil {
			l.ErrorContext(ctx, "Failed to list terms", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to list terms")
			api.ErrorEnvelope(w, r, err, "Failed to retrieve list")
			return
		}

		span.SetStatus(codes.Ok, "Terms listed")
		api.WriteEnvelope(w, r, http.StatusOK, "Get list successfully", terms)
	}
}

func (h *TaxonomyHandler) Create(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer("TaxonomyHandler").Start(r.Context(), "Create", trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
		))
		defer span.End()

		l := h.logger.With(slog.String("handler", "Create"), slog.String("kind", string(kind)))

		var params types.CreateTaxonomyParams
		if err := api.DecodeJSONBody(w, r, &params); err != nil {
			l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to decode request")
			api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
			return
		}

		t, err := h.taxonomyService.Create(ctx, kind, params.Title)
		if err != nil {
			l.ErrorContext(ctx, "Failed to create term", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to create term")
			api.ErrorEnvelope(w, r, err, "Failed to create")
			return
		}

		span.SetStatus(codes.Ok, "Term created")
		api.WriteEnvelope(w, r, http.StatusCreated, "Created successfully", t)
	}
}

func (h *TaxonomyHandler) Update(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer("TaxonomyHandler").Start(r.Context(), "Update", trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
		))
		defer span.End()

		l := h.logger.With(slog.String("handler", "Update"), slog.String("kind", string(kind)))

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			l.WarnContext(ctx, "Invalid id in URL", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Invalid id format")
			api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid id format")
			return
		}

		var params types.UpdateTaxonomyParams
		if err := api.DecodeJSONBody(w, r, &params); err != nil {
			l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to decode request")
			api.ErrorEnvelope(w, r, api.ErrBadRequest, err.Error())
			return
		}

		t, err := h.taxonomyService.Update(ctx, kind, id, params.Title)
		if err != nil {
			l.ErrorContext(ctx, "Failed to update term", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to update term")
			api.ErrorEnvelope(w, r, err, "Failed to update")
			return
		}

		span.SetStatus(codes.Ok, "Term updated")
		api.WriteEnvelope(w, r, http.StatusOK, "Updated successfully", t)
	}
}

func (h *TaxonomyHandler) Delete(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := otel.Tracer("TaxonomyHandler").Start(r.Context(), "Delete", trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(r.Method),
		))
		defer span.End()

		l := h.logger.With(slog.String("handler", "Delete"), slog.String("kind", string(kind)))

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			l.WarnContext(ctx, "Invalid id in URL", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Invalid id format")
			api.ErrorEnvelope(w, r, api.ErrBadRequest, "Invalid id format")
			return
		}

		if err := h.taxonomyService.Delete(ctx, kind, id); err != nil {
			l.ErrorContext(ctx, "Failed to delete term", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to delete term")
			api.ErrorEnvelope(w, r, err, "Failed to delete")
			return
		}

		span.SetStatus(codes.Ok, "Term deleted")
		api.WriteEnvelope(w, r, http.StatusOK, "Deleted successfully", nil)
	}
}
