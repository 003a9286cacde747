package tour

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

var _ TourRepo = (*PostgresTourRepo)(nil)

// TourRepo persists tours, their days and the per-day item sequences.
type TourRepo interface {
	CreateTour(ctx context.Context, params types.CreateTourParams, slug string) (types.Tour, error)
	GetTour(ctx context.Context, id uuid.UUID) (types.Tour, error)
	GetTourBySlug(ctx context.Context, userID uuid.UUID, slug string) (types.Tour, error)
	ListPublicTours(ctx context.Context, page, limit int) ([]types.Tour, int, error)
	ListToursByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.Tour, int, error)
	SaveTour(ctx context.Context, t types.Tour, tagIDs []uuid.UUID) error
	DeleteTour(ctx context.Context, id uuid.UUID) error

	EnsureDay(ctx context.Context, tourID uuid.UUID, label string) (uuid.UUID, error)
	FindDay(ctx context.Context, tourID uuid.UUID, label string) (uuid.UUID, error)
	ListDayItems(ctx context.Context, dayID uuid.UUID) ([]types.ItineraryItem, error)
	InsertItem(ctx context.Context, dayID uuid.UUID, item types.ItineraryItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, title, content, timeOfDay, iconType *string) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteDestinationItem(ctx context.Context, dayID, destinationID uuid.UUID) error
}

type PostgresTourRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresTourRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresTourRepo {
	return &PostgresTourRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const tourColumns = `t.id, t.name, t.slug, t.description, t.city_id, t.user_id,
       t.start_day, t.end_day, t.num_days, t.is_public, t.created_at, t.updated_at`

func (r *PostgresTourRepo) CreateTour(ctx context.Context, params types.CreateTourParams, slug string) (types.Tour, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "CreateTour", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "tours"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateTour"), slog.String("slug", slug))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return types.Tour{}, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var tourID uuid.UUID
	err = tx.QueryRow(ctx, `
        INSERT INTO tours (name, slug, description, city_id, user_id, start_day, end_day, num_days, is_public)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id`,
		params.Name, slug, params.Description, params.CityID, params.UserID,
		params.StartDay, params.EndDay, len(params.DayLabels), params.IsPublic,
	).Scan(&tourID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				l.WarnContext(ctx, "Duplicate tour slug for user")
				span.SetStatus(codes.Error, "Unique constraint violation")
				return types.Tour{}, fmt.Errorf("tour with slug '%s' already exists: %w", slug, api.ErrConflict)
			case "23503":
				span.SetStatus(codes.Error, "Foreign key violation")
				return types.Tour{}, fmt.Errorf("referenced city does not exist: %w", api.ErrBadRequest)
			}
		}
		l.ErrorContext(ctx, "Failed to insert tour", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return types.Tour{}, fmt.Errorf("database error creating tour: %w", err)
	}

	for _, tagID := range params.TagIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO tour_tags (tour_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, tourID, tagID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				span.SetStatus(codes.Error, "Foreign key violation")
				return types.Tour{}, fmt.Errorf("tag %s does not exist: %w", tagID.String(), api.ErrBadRequest)
			}
			span.RecordError(err)
			return types.Tour{}, fmt.Errorf("database error linking tour tag: %w", err)
		}
	}

	for i, label := range params.DayLabels {
		if _, err := tx.Exec(ctx, `INSERT INTO tour_days (tour_id, label, position) VALUES ($1, $2, $3)`, tourID, label, i); err != nil {
			span.RecordError(err)
			return types.Tour{}, fmt.Errorf("database error creating tour day: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return types.Tour{}, fmt.Errorf("database error committing tour: %w", err)
	}

	l.InfoContext(ctx, "Tour created", slog.String("tourID", tourID.String()))
	span.SetStatus(codes.Ok, "Tour created")
	return r.GetTour(ctx, tourID)
}

func (r *PostgresTourRepo) scanTourRow(row pgx.Row) (types.Tour, error) {
	var t types.Tour
	var cityID *uuid.UUID
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &cityID, &t.UserID,
		&t.StartDay, &t.EndDay, &t.NumDays, &t.IsPublic, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return types.Tour{}, err
	}
	return t, nil
}

func (r *PostgresTourRepo) GetTour(ctx context.Context, id uuid.UUID) (types.Tour, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "GetTour", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "tours"),
		attribute.String("db.tour.id", id.String()),
	))
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM tours t WHERE t.id = $1`, tourColumns)
	t, err := r.scanTourRow(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Tour not found")
			return types.Tour{}, fmt.Errorf("tour %s: %w", id.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.Tour{}, fmt.Errorf("database error fetching tour: %w", err)
	}

	if err := r.attachRelations(ctx, []*types.Tour{&t}); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}
	if err := r.attachItinerary(ctx, &t); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	span.SetStatus(codes.Ok, "Tour fetched")
	return t, nil
}

func (r *PostgresTourRepo) GetTourBySlug(ctx context.Context, userID uuid.UUID, slug string) (types.Tour, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "GetTourBySlug", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "tours"),
		attribute.String("db.tour.slug", slug),
	))
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM tours t WHERE t.user_id = $1 AND t.slug = $2`, tourColumns)
	t, err := r.scanTourRow(r.pgpool.QueryRow(ctx, query, userID, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Tour not found")
			return types.Tour{}, fmt.Errorf("tour '%s': %w", slug, api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.Tour{}, fmt.Errorf("database error fetching tour: %w", err)
	}

	if err := r.attachRelations(ctx, []*types.Tour{&t}); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}
	if err := r.attachItinerary(ctx, &t); err != nil {
		span.RecordError(err)
		return types.Tour{}, err
	}

	span.SetStatus(codes.Ok, "Tour fetched")
	return t, nil
}

func (r *PostgresTourRepo) listTours(ctx context.Context, span trace.Span, where string, args []any, page, limit int) ([]types.Tour, int, error) {
	countQuery := `SELECT COUNT(*) FROM tours t ` + where
	var total int
	if err := r.pgpool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("database error counting tours: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tours t %s ORDER BY t.updated_at DESC LIMIT $%d OFFSET $%d`,
		tourColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("database error listing tours: %w", err)
	}
	defer rows.Close()

	var tours []types.Tour
	for rows.Next() {
		t, err := r.scanTourRow(rows)
		if err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("database error scanning tour: %w", err)
		}
		tours = append(tours, t)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("database error reading tours: %w", err)
	}

	refs := make([]*types.Tour, len(tours))
	for i := range tours {
		refs[i] = &tours[i]
	}
	if err := r.attachRelations(ctx, refs); err != nil {
		span.RecordError(err)
		return nil, 0, err
	}

	return tours, total, nil
}

func (r *PostgresTourRepo) ListPublicTours(ctx context.Context, page, limit int) ([]types.Tour, int, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "ListPublicTours", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "tours"),
	))
	defer span.End()

	tours, total, err := r.listTours(ctx, span, `WHERE t.is_public = TRUE`, nil, page, limit)
	if err != nil {
		return nil, 0, err
	}
	span.SetStatus(codes.Ok, "Public tours listed")
	return tours, total, nil
}

func (r *PostgresTourRepo) ListToursByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]types.Tour, int, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "ListToursByUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "tours"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	tours, total, err := r.listTours(ctx, span, `WHERE t.user_id = $1`, []any{userID}, page, limit)
	if err != nil {
		return nil, 0, err
	}
	span.SetStatus(codes.Ok, "User tours listed")
	return tours, total, nil
}

// attachRelations loads city summaries, owner summaries and tags for a
// batch of tours. The scanTourRow step leaves City nil, so the city id
// is re-read here.
func (r *PostgresTourRepo) attachRelations(ctx context.Context, tours []*types.Tour) error {
	if len(tours) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(tours))
	byID := make(map[uuid.UUID]*types.Tour, len(tours))
	for i, t := range tours {
		ids[i] = t.ID
		byID[t.ID] = t
		t.Tags = []types.Tag{}
	}

	cityRows, err := r.pgpool.Query(ctx, `
        SELECT t.id, c.id, c.name, c.slug
        FROM tours t
        JOIN cities c ON c.id = t.city_id
        WHERE t.id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("database error loading tour cities: %w", err)
	}
	for cityRows.Next() {
		var tourID uuid.UUID
		var cs types.CitySummary
		if err := cityRows.Scan(&tourID, &cs.ID, &cs.Name, &cs.Slug); err != nil {
			cityRows.Close()
			return fmt.Errorf("database error scanning tour city: %w", err)
		}
		byID[tourID].City = &cs
	}
	cityRows.Close()
	if err := cityRows.Err(); err != nil {
		return fmt.Errorf("database error reading tour cities: %w", err)
	}

	ownerRows, err := r.pgpool.Query(ctx, `
        SELECT t.id, u.id, u.full_name, u.avatar
        FROM tours t
        JOIN users u ON u.id = t.user_id
        WHERE t.id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("database error loading tour owners: %w", err)
	}
	for ownerRows.Next() {
		var tourID uuid.UUID
		var us types.UserSummary
		if err := ownerRows.Scan(&tourID, &us.ID, &us.FullName, &us.Avatar); err != nil {
			ownerRows.Close()
			return fmt.Errorf("database error scanning tour owner: %w", err)
		}
		byID[tourID].Owner = &us
	}
	ownerRows.Close()
	if err := ownerRows.Err(); err != nil {
		return fmt.Errorf("database error reading tour owners: %w", err)
	}

	tagRows, err := r.pgpool.Query(ctx, `
        SELECT tt.tour_id, tg.id, tg.title, tg.slug, tg.created_at, tg.updated_at
        FROM tour_tags tt
        JOIN tags tg ON tg.id = tt.tag_id
        WHERE tt.tour_id = ANY($1)
        ORDER BY tg.title`, ids)
	if err != nil {
		return fmt.Errorf("database error loading tour tags: %w", err)
	}
	for tagRows.Next() {
		var tourID uuid.UUID
		var tag types.Tag
		if err := tagRows.Scan(&tourID, &tag.ID, &tag.Title, &tag.Slug, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			tagRows.Close()
			return fmt.Errorf("database error scanning tour tag: %w", err)
		}
		byID[tourID].Tags = append(byID[tourID].Tags, tag)
	}
	tagRows.Close()
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("database error reading tour tags: %w", err)
	}

	return nil
}

// attachItinerary loads the day list with items, expands destination
// summaries and computes the legacy projections.
func (r *PostgresTourRepo) attachItinerary(ctx context.Context, t *types.Tour) error {
	dayRows, err := r.pgpool.Query(ctx, `
        SELECT id, label FROM tour_days WHERE tour_id = $1 ORDER BY position`, t.ID)
	if err != nil {
		return fmt.Errorf("database error loading tour days: %w", err)
	}
	t.Itinerary = []types.TourDay{}
	dayIndex := make(map[uuid.UUID]int)
	for dayRows.Next() {
		var d types.TourDay
		if err := dayRows.Scan(&d.ID, &d.Label); err != nil {
			dayRows.Close()
			return fmt.Errorf("database error scanning tour day: %w", err)
		}
		d.Items = []types.ItineraryItem{}
		dayIndex[d.ID] = len(t.Itinerary)
		t.Itinerary = append(t.Itinerary, d)
	}
	dayRows.Close()
	if err := dayRows.Err(); err != nil {
		return fmt.Errorf("database error reading tour days: %w", err)
	}

	if len(t.Itinerary) == 0 {
		return nil
	}

	dayIDs := make([]uuid.UUID, 0, len(t.Itinerary))
	for _, d := range t.Itinerary {
		dayIDs = append(dayIDs, d.ID)
	}

	itemRows, err := r.pgpool.Query(ctx, `
        SELECT day_id, id, kind, destination_id, title, content, time_of_day, icon_type, ord
        FROM itinerary_items
        WHERE day_id = ANY($1)
        ORDER BY ord`, dayIDs)
	if err != nil {
		return fmt.Errorf("database error loading itinerary items: %w", err)
	}
	var destinationIDs []uuid.UUID
	for itemRows.Next() {
		var dayID uuid.UUID
		var it types.ItineraryItem
		if err := itemRows.Scan(&dayID, &it.ID, &it.Kind, &it.DestinationID, &it.Title, &it.Content, &it.TimeOfDay, &it.IconType, &it.Order); err != nil {
			itemRows.Close()
			return fmt.Errorf("database error scanning itinerary item: %w", err)
		}
		if it.DestinationID != nil {
			destinationIDs = append(destinationIDs, *it.DestinationID)
		}
		i := dayIndex[dayID]
		t.Itinerary[i].Items = append(t.Itinerary[i].Items, it)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("database error reading itinerary items: %w", err)
	}

	summaries, err := r.destinationSummaries(ctx, destinationIDs)
	if err != nil {
		return err
	}

	for i := range t.Itinerary {
		day := &t.Itinerary[i]
		for j := range day.Items {
			if id := day.Items[j].DestinationID; id != nil {
				if s, ok := summaries[*id]; ok {
					s := s
					day.Items[j].Destination = &s
				}
			}
		}
		day.Descriptions, day.Notes = projectDay(day.Items)
	}

	return nil
}

func (r *PostgresTourRepo) destinationSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]types.DestinationSummary, error) {
	summaries := make(map[uuid.UUID]types.DestinationSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	rows, err := r.pgpool.Query(ctx, `
        SELECT d.id, d.title, d.slug, d.address, d.album->'highlight'->>0, d.average_rating, c.id, c.name, c.slug
        FROM destinations d
        JOIN cities c ON c.id = d.city_id
        WHERE d.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("database error loading destination summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s types.DestinationSummary
		var cs types.CitySummary
		var image *string
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Address, &image, &s.AverageRating, &cs.ID, &cs.Name, &cs.Slug); err != nil {
			return nil, fmt.Errorf("database error scanning destination summary: %w", err)
		}
		if image != nil {
			s.Image = *image
		}
		s.City = &cs
		summaries[s.ID] = s
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading destination summaries: %w", err)
	}
	return summaries, nil
}

func (r *PostgresTourRepo) SaveTour(ctx context.Context, t types.Tour, tagIDs []uuid.UUID) error {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "SaveTour", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "tours"),
		attribute.String("db.tour.id", t.ID.String()),
	))
	defer span.End()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var cityID *uuid.UUID
	if t.City != nil {
		cityID = &t.City.ID
	}

	tag, err := tx.Exec(ctx, `
        UPDATE tours
        SET name = $2, slug = $3, description = $4, city_id = $5,
            start_day = $6, end_day = $7, is_public = $8, updated_at = NOW()
        WHERE id = $1`,
		t.ID, t.Name, t.Slug, t.Description, cityID, t.StartDay, t.EndDay, t.IsPublic)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "Unique constraint violation")
			return fmt.Errorf("tour with slug '%s' already exists: %w", t.Slug, api.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating tour: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Tour not found")
		return fmt.Errorf("tour %s: %w", t.ID.String(), api.ErrNotFound)
	}

	if tagIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM tour_tags WHERE tour_id = $1`, t.ID); err != nil {
			span.RecordError(err)
			return fmt.Errorf("database error clearing tour tags: %w", err)
		}
		for _, tagID := range tagIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO tour_tags (tour_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, t.ID, tagID); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23503" {
					span.SetStatus(codes.Error, "Foreign key violation")
					return fmt.Errorf("tag %s does not exist: %w", tagID.String(), api.ErrBadRequest)
				}
				span.RecordError(err)
				return fmt.Errorf("database error linking tour tag: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error committing tour update: %w", err)
	}

	span.SetStatus(codes.Ok, "Tour updated")
	return nil
}

func (r *PostgresTourRepo) DeleteTour(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "DeleteTour", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "tours"),
		attribute.String("db.tour.id", id.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting tour: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Tour not found")
		return fmt.Errorf("tour %s: %w", id.String(), api.ErrNotFound)
	}

	r.logger.InfoContext(ctx, "Tour deleted", slog.String("tourID", id.String()))
	span.SetStatus(codes.Ok, "Tour deleted")
	return nil
}

// EnsureDay returns the id of the labeled day, creating it at the end
// of the day list on first use and bumping num_days.
func (r *PostgresTourRepo) EnsureDay(ctx context.Context, tourID uuid.UUID, label string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "EnsureDay", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "tour_days"),
		attribute.String("db.tour.id", tourID.String()),
		attribute.String("tour.day.label", label),
	))
	defer span.End()

	var dayID uuid.UUID
	err := r.pgpool.QueryRow(ctx, `SELECT id FROM tour_days WHERE tour_id = $1 AND label = $2`, tourID, label).Scan(&dayID)
	if err == nil {
		span.SetStatus(codes.Ok, "Day found")
		return dayID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("database error looking up tour day: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx, `
        INSERT INTO tour_days (tour_id, label, position)
        VALUES ($1, $2, COALESCE((SELECT MAX(position) + 1 FROM tour_days WHERE tour_id = $1), 0))
        RETURNING id`, tourID, label).Scan(&dayID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			span.SetStatus(codes.Error, "Foreign key violation")
			return uuid.Nil, fmt.Errorf("tour %s: %w", tourID.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("database error creating tour day: %w", err)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE tours SET num_days = (SELECT COUNT(*) FROM tour_days WHERE tour_id = $1), updated_at = NOW()
        WHERE id = $1`, tourID); err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("database error updating day count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("database error committing tour day: %w", err)
	}

	r.logger.InfoContext(ctx, "Tour day created", slog.String("tourID", tourID.String()), slog.String("label", label))
	span.SetStatus(codes.Ok, "Day created")
	return dayID, nil
}

func (r *PostgresTourRepo) FindDay(ctx context.Context, tourID uuid.UUID, label string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "FindDay", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "tour_days"),
		attribute.String("tour.day.label", label),
	))
	defer span.End()

	var dayID uuid.UUID
	err := r.pgpool.QueryRow(ctx, `SELECT id FROM tour_days WHERE tour_id = $1 AND label = $2`, tourID, label).Scan(&dayID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Day not found")
			return uuid.Nil, fmt.Errorf("day '%s': %w", label, api.ErrNotFound)
		}
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("database error looking up tour day: %w", err)
	}
	span.SetStatus(codes.Ok, "Day found")
	return dayID, nil
}

func (r *PostgresTourRepo) ListDayItems(ctx context.Context, dayID uuid.UUID) ([]types.ItineraryItem, error) {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "ListDayItems", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "itinerary_items"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT id, kind, destination_id, title, content, time_of_day, icon_type, ord
        FROM itinerary_items
        WHERE day_id = $1
        ORDER BY ord`, dayID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing day items: %w", err)
	}
	defer rows.Close()

	var items []types.ItineraryItem
	for rows.Next() {
		var it types.ItineraryItem
		if err := rows.Scan(&it.ID, &it.Kind, &it.DestinationID, &it.Title, &it.Content, &it.TimeOfDay, &it.IconType, &it.Order); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning day item: %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading day items: %w", err)
	}

	span.SetStatus(codes.Ok, "Day items listed")
	return items, nil
}

// InsertItem appends the item to the day. The order slot is claimed in
// SQL so concurrent appends never collide, and the partial unique
// index rejects a second destination item for the same place.
func (r *PostgresTourRepo) InsertItem(ctx context.Context, dayID uuid.UUID, item types.ItineraryItem) error {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "InsertItem", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "itinerary_items"),
		attribute.String("tour.item.kind", item.Kind),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "InsertItem"), slog.String("dayID", dayID.String()))

	_, err := r.pgpool.Exec(ctx, `
        INSERT INTO itinerary_items (day_id, kind, destination_id, title, content, time_of_day, icon_type, ord)
        VALUES ($1, $2, $3, $4, $5, $6, $7,
                COALESCE((SELECT MAX(ord) + 1 FROM itinerary_items WHERE day_id = $1), 0))`,
		dayID, item.Kind, item.DestinationID, item.Title, item.Content, item.TimeOfDay, item.IconType)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				l.WarnContext(ctx, "Destination already present in day")
				span.SetStatus(codes.Error, "Duplicate destination in day")
				return fmt.Errorf("destination already added to this day: %w", api.ErrConflict)
			case "23503":
				span.SetStatus(codes.Error, "Foreign key violation")
				return fmt.Errorf("referenced destination does not exist: %w", api.ErrBadRequest)
			}
		}
		l.ErrorContext(ctx, "Failed to insert itinerary item", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("database error inserting itinerary item: %w", err)
	}

	span.SetStatus(codes.Ok, "Item inserted")
	return nil
}

func (r *PostgresTourRepo) UpdateItem(ctx context.Context, itemID uuid.UUID, title, content, timeOfDay, iconType *string) error {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "UpdateItem", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "itinerary_items"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
        UPDATE itinerary_items
        SET title = COALESCE($2, title),
            content = COALESCE($3, content),
            time_of_day = COALESCE($4, time_of_day),
            icon_type = COALESCE($5, icon_type)
        WHERE id = $1`, itemID, title, content, timeOfDay, iconType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating itinerary item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Item not found")
		return fmt.Errorf("itinerary item %s: %w", itemID.String(), api.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Item updated")
	return nil
}

func (r *PostgresTourRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "DeleteItem", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "itinerary_items"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM itinerary_items WHERE id = $1`, itemID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting itinerary item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Item not found")
		return fmt.Errorf("itinerary item %s: %w", itemID.String(), api.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Item deleted")
	return nil
}

func (r *PostgresTourRepo) DeleteDestinationItem(ctx context.Context, dayID, destinationID uuid.UUID) error {
	ctx, span := otel.Tracer("TourRepo").Start(ctx, "DeleteDestinationItem", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "itinerary_items"),
		attribute.String("db.destination.id", destinationID.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
        DELETE FROM itinerary_items
        WHERE day_id = $1 AND destination_id = $2 AND kind = $3`,
		dayID, destinationID, types.ItemKindDestination)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting destination item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Item not found")
		return fmt.Errorf("destination not found in day: %w", api.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Destination item deleted")
	return nil
}
