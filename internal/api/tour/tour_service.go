package tour

import (
	"context"
	"errors"
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

// defaultNoteTitle is what a note without a title shows as.
const defaultNoteTitle = "Ghi chú"

// normalizeIcon validates an item icon, defaulting the empty string
// to place.
func normalizeIcon(icon string) (string, error) {
	switch icon {
	case "":
		return types.IconPlace, nil
	case types.IconPlace, types.IconRestaurant, types.IconCoffee:
		return icon, nil
	default:
		return "", fmt.Errorf("unknown icon type '%s': %w", icon, api.ErrBadRequest)
	}
}

var _ TourService = (*TourServiceImpl)(nil)

// TourService owns tour CRUD and the per-day itinerary operations.
// Every itinerary mutation returns the re-fetched tour so clients see
// the updated item sequence and its projections in one round trip.
type TourService interface {
	CreateTour(ctx context.Context, params types.CreateTourParams) (types.Tour, error)
	GetTour(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error)
	GetTourBySlug(ctx context.Context, userID uuid.UUID, slug string) (types.Tour, error)
	ListPublicTours(ctx context.Context, page, limit int) ([]types.Tour, int, error)
	ListToursByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.Tour, int, error)
	UpdateTour(ctx context.Context, id uuid.UUID, params types.UpdateTourParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error)
	DeleteTour(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerIsAdmin bool) error

	AddDestination(ctx context.Context, tourID uuid.UUID, params types.AddDayDestinationParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error)
	AddNote(ctx context.Context, tourID uuid.UUID, params types.AddDayNoteParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error)
	UpdateDestination(ctx context.Context, tourID uuid.UUID, params types.UpdateDayDestinationParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error)
	RemoveDestination(ctx context.Context, tourID uuid.UUID, params types.RemoveDayDestinationParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error)
	UpdateNote(ctx context.Context, tourID uuid.UUID, params types.UpdateDayNoteParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error)
	RemoveNote(ctx context.Context, tourID uuid.UUID, params types.RemoveDayNoteParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error)
}

type TourServiceImpl struct {
	logger *slog.Logger
	repo   TourRepo
}

func NewTourService(repo TourRepo, logger *slog.Logger) *TourServiceImpl {
	return &TourServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *TourServiceImpl) CreateTour(ctx context.Context, params types.CreateTourParams) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "CreateTour")
	defer span.End()

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("tour name is required: %w", api.ErrBadRequest)
	}
	if params.StartDay != nil && params.EndDay != nil && params.EndDay.Before(*params.StartDay) {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("end day cannot be before start day: %w", api.ErrBadRequest)
	}

	return s.repo.CreateTour(ctx, params, api.Slugify(params.Name))
}

// ownedTour loads the tour and enforces that the caller may mutate it.
func (s *TourServiceImpl) ownedTour(ctx context.Context, id, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	t, err := s.repo.GetTour(ctx, id)
	if err != nil {
		return types.Tour{}, err
	}
	if t.UserID != callerID && !callerIsAdmin {
		return types.Tour{}, fmt.Errorf("tour belongs to another user: %w", api.ErrForbidden)
	}
	return t, nil
}

func (s *TourServiceImpl) GetTour(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "GetTour")
	defer span.End()

	t, err := s.repo.GetTour(ctx, id)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}
	if !t.IsPublic && t.UserID != callerID && !callerIsAdmin {
		span.SetStatus(codes.Error, "Private tour")
		return types.Tour{}, fmt.Errorf("tour is private: %w", api.ErrForbidden)
	}
	return t, nil
}

func (s *TourServiceImpl) GetTourBySlug(ctx context.Context, userID uuid.UUID, slug string) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "GetTourBySlug", trace.WithAttributes(
		attribute.String("tour.slug", slug),
	))
	defer span.End()
	return s.repo.GetTourBySlug(ctx, userID, slug)
}

func (s *TourServiceImpl) ListPublicTours(ctx context.Context, page, limit int) ([]types.Tour, int, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "ListPublicTours")
	defer span.End()
	return s.repo.ListPublicTours(ctx, page, limit)
}

func (s *TourServiceImpl) ListToursByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.Tour, int, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "ListToursByUser")
	defer span.End()
	return s.repo.ListToursByUser(ctx, userID, page, limit)
}

func (s *TourServiceImpl) UpdateTour(ctx context.Context, id uuid.UUID, params types.UpdateTourParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "UpdateTour")
	defer span.End()

	t, err := s.ownedTour(ctx, id, callerID, callerIsAdmin)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			span.SetStatus(codes.Error, "Validation failed")
			return types.Tour{}, fmt.Errorf("tour name cannot be empty: %w", api.ErrBadRequest)
		}
		t.Name = name
		t.Slug = api.Slugify(name)
	}
	if params.Description != nil {
		t.Description = *params.Description
	}
	if params.CityID != nil {
		t.City = &types.CitySummary{ID: *params.CityID}
	}
	if params.StartDay != nil {
		t.StartDay = params.StartDay
	}
	if params.EndDay != nil {
		t.EndDay = params.EndDay
	}
	if params.IsPublic != nil {
		t.IsPublic = *params.IsPublic
	}
	if t.StartDay != nil && t.EndDay != nil && t.EndDay.Before(*t.StartDay) {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("end day cannot be before start day: %w", api.ErrBadRequest)
	}

	if err := s.repo.SaveTour(ctx, t, params.TagIDs); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	span.SetStatus(codes.Ok, "Tour updated")
	return s.repo.GetTour(ctx, id)
}

func (s *TourServiceImpl) DeleteTour(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerIsAdmin bool) error {
	ctx, span := otel.Tracer("TourService").Start(ctx, "DeleteTour")
	defer span.End()

	if _, err := s.ownedTour(ctx, id, callerID, callerIsAdmin); err != nil {
		span.RecordError(err)
		return err
	}
	return s.repo.DeleteTour(ctx, id)
}

func (s *TourServiceImpl) AddDestination(ctx context.Context, tourID uuid.UUID, params types.AddDayDestinationParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "AddDestination", trace.WithAttributes(
		attribute.String("tour.day.label", params.DayLabel),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "AddDestination"), slog.String("tourID", tourID.String()))

	if params.DayLabel == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("day label is required: %w", api.ErrBadRequest)
	}
	if params.DestinationID == uuid.Nil {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("destination id is required: %w", api.ErrBadRequest)
	}
	icon, err := normalizeIcon(params.IconType)
	if err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, err
	}

	if _, err := s.ownedTour(ctx, tourID, callerID, callerIsAdmin); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	dayID, err := s.repo.EnsureDay(ctx, tourID, params.DayLabel)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	destinationID := params.DestinationID
	item := types.ItineraryItem{
		Kind:          types.ItemKindDestination,
		DestinationID: &destinationID,
		Title:         params.Note,
		TimeOfDay:     params.TimeOfDay,
		IconType:      icon,
	}
	if err := s.repo.InsertItem(ctx, dayID, item); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	l.InfoContext(ctx, "Destination added to itinerary", slog.String("destinationID", destinationID.String()), slog.String("day", params.DayLabel))
	span.SetStatus(codes.Ok, "Destination added")
	return s.repo.GetTour(ctx, tourID)
}

func (s *TourServiceImpl) AddNote(ctx context.Context, tourID uuid.UUID, params types.AddDayNoteParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "AddNote", trace.WithAttributes(
		attribute.String("tour.day.label", params.DayLabel),
	))
	defer span.End()

	if params.DayLabel == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("day label is required: %w", api.ErrBadRequest)
	}
	if strings.TrimSpace(params.Content) == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("note content is required: %w", api.ErrBadRequest)
	}
	if params.Title == "" {
		params.Title = defaultNoteTitle
	}
	icon, err := normalizeIcon(params.IconType)
	if err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, err
	}

	if _, err := s.ownedTour(ctx, tourID, callerID, callerIsAdmin); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	dayID, err := s.repo.EnsureDay(ctx, tourID, params.DayLabel)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	item := types.ItineraryItem{
		Kind:     types.ItemKindNote,
		Title:    params.Title,
		Content:  params.Content,
		IconType: icon,
	}
	if err := s.repo.InsertItem(ctx, dayID, item); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	span.SetStatus(codes.Ok, "Note added")
	return s.repo.GetTour(ctx, tourID)
}

func (s *TourServiceImpl) UpdateDestination(ctx context.Context, tourID uuid.UUID, params types.UpdateDayDestinationParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "UpdateDestination", trace.WithAttributes(
		attribute.String("tour.day.label", params.DayLabel),
	))
	defer span.End()

	if params.DayLabel == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("day label is required: %w", api.ErrBadRequest)
	}
	if params.ItemID == nil && params.Index == nil {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("item id or description index is required: %w", api.ErrBadRequest)
	}

	if _, err := s.ownedTour(ctx, tourID, callerID, callerIsAdmin); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	dayID, err := s.repo.FindDay(ctx, tourID, params.DayLabel)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	itemID := uuid.Nil
	if params.ItemID != nil {
		itemID = *params.ItemID
	} else {
		items, err := s.repo.ListDayItems(ctx, dayID)
		if err != nil {
			span.RecordError(err)
			return types.Tour{}, err
		}
		it, ok := destinationAt(items, *params.Index)
		if !ok {
			span.SetStatus(codes.Error, "Description index out of range")
			return types.Tour{}, fmt.Errorf("no destination at index %d: %w", *params.Index, api.ErrNotFound)
		}
		itemID = it.ID
	}

	if err := s.repo.UpdateItem(ctx, itemID, params.Note, nil, params.TimeOfDay, nil); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	span.SetStatus(codes.Ok, "Destination updated")
	return s.repo.GetTour(ctx, tourID)
}

func (s *TourServiceImpl) RemoveDestination(ctx context.Context, tourID uuid.UUID, params types.RemoveDayDestinationParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "RemoveDestination", trace.WithAttributes(
		attribute.String("tour.day.label", params.DayLabel),
	))
	defer span.End()

	if params.DayLabel == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("day label is required: %w", api.ErrBadRequest)
	}
	if params.ItemID == nil && params.DestinationID == nil {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("item id or destination id is required: %w", api.ErrBadRequest)
	}

	if _, err := s.ownedTour(ctx, tourID, callerID, callerIsAdmin); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	dayID, err := s.repo.FindDay(ctx, tourID, params.DayLabel)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	if params.ItemID != nil {
		err = s.repo.DeleteItem(ctx, *params.ItemID)
	} else {
		err = s.repo.DeleteDestinationItem(ctx, dayID, *params.DestinationID)
	}
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	span.SetStatus(codes.Ok, "Destination removed")
	return s.repo.GetTour(ctx, tourID)
}

func (s *TourServiceImpl) UpdateNote(ctx context.Context, tourID uuid.UUID, params types.UpdateDayNoteParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "UpdateNote", trace.WithAttributes(
		attribute.String("tour.day.label", params.DayLabel),
		attribute.Int("tour.note.index", params.Index),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateNote"), slog.String("tourID", tourID.String()))

	if params.DayLabel == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("day label is required: %w", api.ErrBadRequest)
	}

	if _, err := s.ownedTour(ctx, tourID, callerID, callerIsAdmin); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	dayID, err := s.repo.FindDay(ctx, tourID, params.DayLabel)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	items, err := s.repo.ListDayItems(ctx, dayID)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	it, ok := noteAt(items, params.Index)
	if !ok {
		// Stale client indexes are common after concurrent edits,
		// treated as a no-op rather than an error.
		l.WarnContext(ctx, "Note index out of range, ignoring", slog.Int("index", params.Index))
		span.SetStatus(codes.Ok, "Note index out of range")
		return s.repo.GetTour(ctx, tourID)
	}

	if err := s.repo.UpdateItem(ctx, it.ID, params.Title, params.Content, nil, params.IconType); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	span.SetStatus(codes.Ok, "Note updated")
	return s.repo.GetTour(ctx, tourID)
}

func (s *TourServiceImpl) RemoveNote(ctx context.Context, tourID uuid.UUID, params types.RemoveDayNoteParams, callerID uuid.UUID, callerIsAdmin bool) (types.Tour, error) {
	ctx, span := otel.Tracer("TourService").Start(ctx, "RemoveNote", trace.WithAttributes(
		attribute.String("tour.day.label", params.DayLabel),
		attribute.Int("tour.note.index", params.Index),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "RemoveNote"), slog.String("tourID", tourID.String()))

	if params.DayLabel == "" {
		span.SetStatus(codes.Error, "Validation failed")
		return types.Tour{}, fmt.Errorf("day label is required: %w", api.ErrBadRequest)
	}

	if _, err := s.ownedTour(ctx, tourID, callerID, callerIsAdmin); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	dayID, err := s.repo.FindDay(ctx, tourID, params.DayLabel)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	items, err := s.repo.ListDayItems(ctx, dayID)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	it, ok := noteAt(items, params.Index)
	if !ok {
		l.WarnContext(ctx, "Note index out of range, ignoring", slog.Int("index", params.Index))
		span.SetStatus(codes.Ok, "Note index out of range")
		return s.repo.GetTour(ctx, tourID)
	}

	if err := s.repo.DeleteItem(ctx, it.ID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// Already gone, same no-op semantics.
			span.SetStatus(codes.Ok, "Note already removed")
			return s.repo.GetTour(ctx, tourID)
		}
		span.RecordError(err)
		return types.Tour{}, err
	}

	span.SetStatus(codes.Ok, "Note removed")
	return s.repo.GetTour(ctx, tourID)
}
