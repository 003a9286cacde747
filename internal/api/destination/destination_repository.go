package destination

import (
	"context"
	"encoding/json"
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

var _ DestinationRepo = (*PostgresDestinationRepo)(nil)

// DestinationRepo defines the contract for destination persistence.
type DestinationRepo interface {
	CreateDestination(ctx context.Context, params types.CreateDestinationParams, slug string) (types.Destination, error)
	GetDestination(ctx context.Context, id uuid.UUID) (types.Destination, error)
	GetDestinationBySlug(ctx context.Context, citySlug, slug string) (types.Destination, error)
	SearchDestinations(ctx context.Context, filter types.DestinationFilter) ([]types.Destination, int, error)
	ListPopular(ctx context.Context, limit int) ([]types.Destination, error)
	ListSummariesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]types.DestinationSummary, error)
	SaveDestination(ctx context.Context, d types.Destination, tagIDs []uuid.UUID) (types.Destination, error)
	DeleteDestination(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type PostgresDestinationRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresDestinationRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresDestinationRepo {
	return &PostgresDestinationRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const destinationColumns = `d.id, d.title, d.slug, d.city_id, d.type_id, d.address, d.latitude, d.longitude,
       d.album, d.details, d.open_hour, d.contact_info,
       d.views, d.total_rate, d.average_rating, d.created_by, d.created_at, d.updated_at`

// scanDestination reads one destination row. A jsonb document that
// fails to parse degrades to its zero value.
func scanDestination(row pgx.Row) (types.Destination, error) {
	var d types.Destination
	var albumRaw, detailsRaw, openHourRaw, contactRaw []byte
	err := row.Scan(
		&d.ID, &d.Name, &d.Slug, &d.CityID, &d.TypeID, &d.Address, &d.Latitude, &d.Longitude,
		&albumRaw, &detailsRaw, &openHourRaw, &contactRaw,
		&d.Views, &d.TotalRate, &d.AverageRating, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return types.Destination{}, err
	}
	if err := json.Unmarshal(albumRaw, &d.Album); err != nil {
		d.Album = types.DestinationAlbum{}
	}
	if err := json.Unmarshal(detailsRaw, &d.Details); err != nil {
		d.Details = types.DestinationDetails{}
	}
	if err := json.Unmarshal(openHourRaw, &d.OpenHours); err != nil {
		d.OpenHours = types.OpenHours{}
	}
	if err := json.Unmarshal(contactRaw, &d.ContactInfo); err != nil {
		d.ContactInfo = types.ContactInfo{}
	}
	return d, nil
}

// attachRelations loads city summaries, types and tags for the given
// destinations in three round trips.
func (r *PostgresDestinationRepo) attachRelations(ctx context.Context, dests []types.Destination) error {
	if len(dests) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(dests))
	index := make(map[uuid.UUID]int, len(dests))
	for i, d := range dests {
		ids[i] = d.ID
		index[d.ID] = i
	}

	cityQuery := `
        SELECT DISTINCT d.id, c.id, c.name, c.slug
        FROM destinations d
        JOIN cities c ON c.id = d.city_id
        WHERE d.id = ANY($1)`
	rows, err := r.pgpool.Query(ctx, cityQuery, ids)
	if err != nil {
		return fmt.Errorf("database error fetching destination cities: %w", err)
	}
	for rows.Next() {
		var destID uuid.UUID
		var cs types.CitySummary
		if err := rows.Scan(&destID, &cs.ID, &cs.Name, &cs.Slug); err != nil {
			rows.Close()
			return fmt.Errorf("database error scanning destination city: %w", err)
		}
		dests[index[destID]].City = &cs
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("database error reading destination cities: %w", err)
	}

	typeQuery := `
        SELECT d.id, dt.id, dt.title, dt.slug, dt.created_at, dt.updated_at
        FROM destinations d
        JOIN destination_types dt ON dt.id = d.type_id
        WHERE d.id = ANY($1)`
	rows, err = r.pgpool.Query(ctx, typeQuery, ids)
	if err != nil {
		return fmt.Errorf("database error fetching destination types: %w", err)
	}
	for rows.Next() {
		var destID uuid.UUID
		var dt types.DestinationType
		if err := rows.Scan(&destID, &dt.ID, &dt.Title, &dt.Slug, &dt.CreatedAt, &dt.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("database error scanning destination type: %w", err)
		}
		dests[index[destID]].Type = &dt
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("database error reading destination types: %w", err)
	}

	tagQuery := `
        SELECT dtag.destination_id, t.id, t.title, t.slug, t.created_at, t.updated_at
        FROM destination_tags dtag
        JOIN tags t ON t.id = dtag.tag_id
        WHERE dtag.destination_id = ANY($1)
        ORDER BY t.title`
	rows, err = r.pgpool.Query(ctx, tagQuery, ids)
	if err != nil {
		return fmt.Errorf("database error fetching destination tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var destID uuid.UUID
		var t types.Tag
		if err := rows.Scan(&destID, &t.ID, &t.Title, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return fmt.Errorf("database error scanning destination tag: %w", err)
		}
		i := index[destID]
		dests[i].Tags = append(dests[i].Tags, t)
	}
	return rows.Err()
}

func (r *PostgresDestinationRepo) CreateDestination(ctx context.Context, params types.CreateDestinationParams, slug string) (types.Destination, error) {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "CreateDestination", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "destinations"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateDestination"), slog.String("title", params.Name))
	l.DebugContext(ctx, "Inserting destination")

	album, err := json.Marshal(params.Album)
	if err != nil {
		return types.Destination{}, fmt.Errorf("error encoding album: %w", err)
	}
	details, err := json.Marshal(params.Details)
	if err != nil {
		return types.Destination{}, fmt.Errorf("error encoding details: %w", err)
	}
	openHour, err := json.Marshal(params.OpenHours)
	if err != nil {
		return types.Destination{}, fmt.Errorf("error encoding open hours: %w", err)
	}
	contact, err := json.Marshal(params.ContactInfo)
	if err != nil {
		return types.Destination{}, fmt.Errorf("error encoding contact info: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return types.Destination{}, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	d, err := scanDestination(tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO destinations AS d (title, slug, city_id, type_id, address, latitude, longitude, album, details, open_hour, contact_info, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING %s`, destinationColumns),
		params.Name, slug, params.CityID, params.TypeID, params.Address, params.Latitude, params.Longitude,
		album, details, openHour, contact, params.CreatedBy))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				l.WarnContext(ctx, "Destination slug already exists in city", slog.String("slug", slug))
				span.SetStatus(codes.Error, "Unique violation")
				return types.Destination{}, fmt.Errorf("destination %q already exists in this city: %w", params.Name, api.ErrConflict)
			case "23503":
				span.SetStatus(codes.Error, "Foreign key violation")
				return types.Destination{}, fmt.Errorf("referenced city or type does not exist: %w", api.ErrBadRequest)
			}
		}
		l.ErrorContext(ctx, "Failed to insert destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return types.Destination{}, fmt.Errorf("database error creating destination: %w", err)
	}

	for _, tagID := range params.TagIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO destination_tags (destination_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, d.ID, tagID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				span.SetStatus(codes.Error, "Foreign key violation")
				return types.Destination{}, fmt.Errorf("tag %s does not exist: %w", tagID.String(), api.ErrBadRequest)
			}
			span.RecordError(err)
			return types.Destination{}, fmt.Errorf("database error tagging destination: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return types.Destination{}, fmt.Errorf("database error committing destination: %w", err)
	}

	dests := []types.Destination{d}
	if err := r.attachRelations(ctx, dests); err != nil {
		l.WarnContext(ctx, "Failed to load destination relations after insert", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Destination created", slog.String("destinationID", d.ID.String()))
	span.SetStatus(codes.Ok, "Destination created")
	return dests[0], nil
}

func (r *PostgresDestinationRepo) GetDestination(ctx context.Context, id uuid.UUID) (types.Destination, error) {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "GetDestination", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "destinations"),
		attribute.String("db.destination.id", id.String()),
	))
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM destinations d WHERE d.id = $1`, destinationColumns)
	return r.getDestination(ctx, span, query, id)
}

func (r *PostgresDestinationRepo) GetDestinationBySlug(ctx context.Context, citySlug, slug string) (types.Destination, error) {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "GetDestinationBySlug", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "destinations"),
		attribute.String("db.destination.slug", slug),
	))
	defer span.End()

	query := fmt.Sprintf(`
        SELECT %s FROM destinations d
        JOIN cities c ON c.id = d.city_id
        WHERE c.slug = $1 AND d.slug = $2`, destinationColumns)
	return r.getDestination(ctx, span, query, citySlug, slug)
}

func (r *PostgresDestinationRepo) getDestination(ctx context.Context, span trace.Span, query string, args ...any) (types.Destination, error) {
	d, err := scanDestination(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Destination not found")
			return types.Destination{}, fmt.Errorf("destination: %w", api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.Destination{}, fmt.Errorf("database error fetching destination: %w", err)
	}

	dests := []types.Destination{d}
	if err := r.attachRelations(ctx, dests); err != nil {
		span.RecordError(err)
		return types.Destination{}, err
	}

	span.SetStatus(codes.Ok, "Destination fetched")
	return dests[0], nil
}

// SearchDestinations applies the filter and returns one page plus the
// total match count.
func (r *PostgresDestinationRepo) SearchDestinations(ctx context.Context, filter types.DestinationFilter) ([]types.Destination, int, error) {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "SearchDestinations", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "destinations"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SearchDestinations"))

	where := "TRUE"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		p := arg("%" + filter.Query + "%")
		where += fmt.Sprintf(" AND (d.title ILIKE %s OR d.address ILIKE %s)", p, p)
	}
	if filter.CityID != nil {
		where += fmt.Sprintf(" AND d.city_id = %s", arg(*filter.CityID))
	}
	if filter.TypeID != nil {
		where += fmt.Sprintf(" AND d.type_id = %s", arg(*filter.TypeID))
	}
	if len(filter.TagIDs) > 0 {
		where += fmt.Sprintf(` AND d.id IN (
            SELECT destination_id FROM destination_tags
            WHERE tag_id = ANY(%s)
            GROUP BY destination_id
            HAVING COUNT(DISTINCT tag_id) = %s)`, arg(filter.TagIDs), arg(len(filter.TagIDs)))
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM destinations d WHERE %s`, where)
	if err := r.pgpool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		l.ErrorContext(ctx, "Failed to count destinations", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB count failed")
		return nil, 0, fmt.Errorf("database error counting destinations: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT %s FROM destinations d
        WHERE %s
        ORDER BY d.views DESC, d.title
        LIMIT %s OFFSET %s`, destinationColumns, where, arg(filter.Limit), arg((filter.Page-1)*filter.Limit))

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to search destinations", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error searching destinations: %w", err)
	}
	defer rows.Close()

	var dests []types.Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("database error scanning destination: %w", err)
		}
		dests = append(dests, d)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("database error reading destinations: %w", err)
	}

	if err := r.attachRelations(ctx, dests); err != nil {
		span.RecordError(err)
		return nil, 0, err
	}

	span.SetStatus(codes.Ok, "Destinations searched")
	return dests, total, nil
}

func (r *PostgresDestinationRepo) ListPopular(ctx context.Context, limit int) ([]types.Destination, error) {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "ListPopular", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "destinations"),
		attribute.Int("limit", limit),
	))
	defer span.End()

	query := fmt.Sprintf(`
        SELECT %s FROM destinations d
        ORDER BY d.views DESC, d.average_rating DESC
        LIMIT $1`, destinationColumns)

	rows, err := r.pgpool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing popular destinations: %w", err)
	}
	defer rows.Close()

	var dests []types.Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning destination: %w", err)
		}
		dests = append(dests, d)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading destinations: %w", err)
	}

	if err := r.attachRelations(ctx, dests); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Popular destinations listed")
	return dests, nil
}

// ListSummariesByIDs resolves the compact shape used by itineraries
// and chat suggestions. Unknown ids are simply absent from the map.
func (r *PostgresDestinationRepo) ListSummariesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]types.DestinationSummary, error) {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "ListSummariesByIDs", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "destinations"),
		attribute.Int("count", len(ids)),
	))
	defer span.End()

	result := make(map[uuid.UUID]types.DestinationSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `
        SELECT d.id, d.title, d.slug, d.address, d.album, d.average_rating, c.id, c.name, c.slug
        FROM destinations d
        JOIN cities c ON c.id = d.city_id
        WHERE d.id = ANY($1)`

	rows, err := r.pgpool.Query(ctx, query, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching destination summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s types.DestinationSummary
		var cs types.CitySummary
		var albumRaw []byte
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Address, &albumRaw, &s.AverageRating, &cs.ID, &cs.Name, &cs.Slug); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning destination summary: %w", err)
		}
		var album types.DestinationAlbum
		if err := json.Unmarshal(albumRaw, &album); err == nil && len(album.Highlight) > 0 {
			s.Image = album.Highlight[0]
		}
		s.City = &cs
		result[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading destination summaries: %w", err)
	}

	span.SetStatus(codes.Ok, "Destination summaries fetched")
	return result, nil
}

// SaveDestination writes the full row and replaces its tags in one
// transaction.
func (r *PostgresDestinationRepo) SaveDestination(ctx context.Context, d types.Destination, tagIDs []uuid.UUID) (types.Destination, error) {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "SaveDestination", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "destinations"),
		attribute.String("db.destination.id", d.ID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SaveDestination"), slog.String("destinationID", d.ID.String()))

	album, err := json.Marshal(d.Album)
	if err != nil {
		return types.Destination{}, fmt.Errorf("error encoding album: %w", err)
	}
	details, err := json.Marshal(d.Details)
	if err != nil {
		return types.Destination{}, fmt.Errorf("error encoding details: %w", err)
	}
	openHour, err := json.Marshal(d.OpenHours)
	if err != nil {
		return types.Destination{}, fmt.Errorf("error encoding open hours: %w", err)
	}
	contact, err := json.Marshal(d.ContactInfo)
	if err != nil {
		return types.Destination{}, fmt.Errorf("error encoding contact info: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return types.Destination{}, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`
        UPDATE destinations AS d
        SET title = $2, slug = $3, city_id = $4, type_id = $5, address = $6, latitude = $7, longitude = $8,
            album = $9, details = $10, open_hour = $11, contact_info = $12, updated_at = NOW()
        WHERE d.id = $1
        RETURNING %s`, destinationColumns)

	saved, err := scanDestination(tx.QueryRow(ctx, query,
		d.ID, d.Name, d.Slug, d.CityID, d.TypeID, d.Address, d.Latitude, d.Longitude,
		album, details, openHour, contact))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Destination not found")
			return types.Destination{}, fmt.Errorf("destination %s: %w", d.ID.String(), api.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "Unique violation")
			return types.Destination{}, fmt.Errorf("destination %q already exists in this city: %w", d.Name, api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to update destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return types.Destination{}, fmt.Errorf("database error updating destination: %w", err)
	}

	if tagIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM destination_tags WHERE destination_id = $1`, d.ID); err != nil {
			span.RecordError(err)
			return types.Destination{}, fmt.Errorf("database error clearing destination tags: %w", err)
		}
		for _, tagID := range tagIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO destination_tags (destination_id, tag_id) VALUES ($1, $2)`, d.ID, tagID); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23503" {
					span.SetStatus(codes.Error, "Foreign key violation")
					return types.Destination{}, fmt.Errorf("tag %s does not exist: %w", tagID.String(), api.ErrBadRequest)
				}
				span.RecordError(err)
				return types.Destination{}, fmt.Errorf("database error tagging destination: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return types.Destination{}, fmt.Errorf("database error committing destination update: %w", err)
	}

	dests := []types.Destination{saved}
	if err := r.attachRelations(ctx, dests); err != nil {
		span.RecordError(err)
		return types.Destination{}, err
	}

	l.InfoContext(ctx, "Destination saved")
	span.SetStatus(codes.Ok, "Destination saved")
	return dests[0], nil
}

func (r *PostgresDestinationRepo) DeleteDestination(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "DeleteDestination", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "destinations"),
		attribute.String("db.destination.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "DeleteDestination"), slog.String("destinationID", id.String()))

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM destinations WHERE id = $1`, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete destination", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting destination: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Destination not found")
		return fmt.Errorf("destination %s: %w", id.String(), api.ErrNotFound)
	}

	l.InfoContext(ctx, "Destination deleted")
	span.SetStatus(codes.Ok, "Destination deleted")
	return nil
}

func (r *PostgresDestinationRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("DestinationRepo").Start(ctx, "IncrementViews", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "destinations"),
		attribute.String("db.destination.id", id.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `UPDATE destinations SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error incrementing destination views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Destination not found")
		return fmt.Errorf("destination %s: %w", id.String(), api.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Views incremented")
	return nil
}
