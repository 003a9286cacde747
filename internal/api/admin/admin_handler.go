package admin

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/api"
)

type AdminHandler struct {
	adminService AdminService
	logger       *slog.Logger
}

func NewAdminHandler(adminService AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

func (h *AdminHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AdminHandler").Start(r.Context(), "Statistics", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/statistics"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Statistics"))

	stats, err := h.adminService.Statistics(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to gather statistics", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to gather statistics")
		api.ErrorEnvelope(w, r, err, "Failed to retrieve statistics")
		return
	}

	span.SetStatus(codes.Ok, "Statistics served")
	api.WriteEnvelope(w, r, http.StatusOK, "Statistics retrieved successfully", stats)
}
