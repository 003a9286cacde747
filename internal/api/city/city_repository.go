package city

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

var _ CityRepo = (*PostgresCityRepo)(nil)

// CityRepo defines the contract for city persistence.
type CityRepo interface {
	CreateCity(ctx context.Context, params types.CreateCityParams, slug string) (types.City, error)
	GetCity(ctx context.Context, id uuid.UUID) (types.City, error)
	GetCityBySlug(ctx context.Context, slug string) (types.City, error)
	ListCities(ctx context.Context) ([]types.City, error)
	ListCitiesByType(ctx context.Context, typeID uuid.UUID) ([]types.City, error)
	ListCitiesWithCounts(ctx context.Context) ([]types.CityWithCount, error)
	SaveCity(ctx context.Context, c types.City, typeIDs []uuid.UUID) (types.City, error)
	DeletionImpact(ctx context.Context, id uuid.UUID) (types.CityDeletionImpact, error)
	DeleteCity(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type PostgresCityRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresCityRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresCityRepo {
	return &PostgresCityRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const cityColumns = `id, name, slug, description, views, images, weather, info, created_by, created_at, updated_at`

// scanCity reads one city row. The jsonb columns are unmarshalled
// defensively: a bad document degrades to the zero value instead of
// failing the whole read.
func scanCity(row pgx.Row) (types.City, error) {
	var c types.City
	var weatherRaw, infoRaw []byte
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.Views, &c.Images,
		&weatherRaw, &infoRaw, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return types.City{}, err
	}
	if err := json.Unmarshal(weatherRaw, &c.Weather); err != nil {
		c.Weather = nil
	}
	if err := json.Unmarshal(infoRaw, &c.Info); err != nil {
		c.Info = nil
	}
	return c, nil
}

// attachTypes loads the type assignments for the given cities in one
// round trip.
func (r *PostgresCityRepo) attachTypes(ctx context.Context, cities []types.City) error {
	if len(cities) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(cities))
	index := make(map[uuid.UUID]int, len(cities))
	for i, c := range cities {
		ids[i] = c.ID
		index[c.ID] = i
	}

	query := `
        SELECT cta.city_id, ct.id, ct.title, ct.slug, ct.created_at, ct.updated_at
        FROM city_type_assignments cta
        JOIN city_types ct ON ct.id = cta.type_id
        WHERE cta.city_id = ANY($1)
        ORDER BY ct.title`

	rows, err := r.pgpool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("database error fetching city types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cityID uuid.UUID
		var t types.CityType
		if err := rows.Scan(&cityID, &t.ID, &t.Title, &t.Slug, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return fmt.Errorf("database error scanning city type: %w", err)
		}
		i := index[cityID]
		cities[i].Types = append(cities[i].Types, t)
	}
	return rows.Err()
}

func (r *PostgresCityRepo) CreateCity(ctx context.Context, params types.CreateCityParams, slug string) (types.City, error) {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "CreateCity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "cities"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateCity"), slog.String("name", params.Name))
	l.DebugContext(ctx, "Inserting city")

	weather, err := json.Marshal(params.Weather)
	if err != nil {
		return types.City{}, fmt.Errorf("error encoding weather: %w", err)
	}
	info, err := json.Marshal(params.Info)
	if err != nil {
		return types.City{}, fmt.Errorf("error encoding info: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return types.City{}, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`
        INSERT INTO cities (name, slug, description, images, weather, info, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING %s`, cityColumns)

	c, err := scanCity(tx.QueryRow(ctx, query, params.Name, slug, params.Description, params.Images, weather, info, params.CreatedBy))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "City slug already exists", slog.String("slug", slug))
			span.SetStatus(codes.Error, "Unique violation")
			return types.City{}, fmt.Errorf("city %q already exists: %w", params.Name, api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return types.City{}, fmt.Errorf("database error creating city: %w", err)
	}

	for _, typeID := range params.TypeIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO city_type_assignments (city_id, type_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, c.ID, typeID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				span.SetStatus(codes.Error, "Foreign key violation")
				return types.City{}, fmt.Errorf("city type %s does not exist: %w", typeID.String(), api.ErrBadRequest)
			}
			span.RecordError(err)
			return types.City{}, fmt.Errorf("database error assigning city type: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return types.City{}, fmt.Errorf("database error committing city: %w", err)
	}

	cities := []types.City{c}
	if err := r.attachTypes(ctx, cities); err != nil {
		l.WarnContext(ctx, "Failed to load city types after insert", slog.Any("error", err))
	}

	l.InfoContext(ctx, "City created", slog.String("cityID", c.ID.String()))
	span.SetStatus(codes.Ok, "City created")
	return cities[0], nil
}

func (r *PostgresCityRepo) GetCity(ctx context.Context, id uuid.UUID) (types.City, error) {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "GetCity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
		attribute.String("db.city.id", id.String()),
	))
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM cities WHERE id = $1`, cityColumns)
	return r.getCity(ctx, span, query, id)
}

func (r *PostgresCityRepo) GetCityBySlug(ctx context.Context, slug string) (types.City, error) {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "GetCityBySlug", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
		attribute.String("db.city.slug", slug),
	))
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM cities WHERE slug = $1`, cityColumns)
	return r.getCity(ctx, span, query, slug)
}

func (r *PostgresCityRepo) getCity(ctx context.Context, span trace.Span, query string, arg any) (types.City, error) {
	c, err := scanCity(r.pgpool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "City not found")
			return types.City{}, fmt.Errorf("city: %w", api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.City{}, fmt.Errorf("database error fetching city: %w", err)
	}

	cities := []types.City{c}
	if err := r.attachTypes(ctx, cities); err != nil {
		span.RecordError(err)
		return types.City{}, err
	}

	span.SetStatus(codes.Ok, "City fetched")
	return cities[0], nil
}

func (r *PostgresCityRepo) ListCities(ctx context.Context) ([]types.City, error) {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "ListCities", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
	))
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM cities ORDER BY name`, cityColumns)
	return r.listCities(ctx, span, query)
}

func (r *PostgresCityRepo) ListCitiesByType(ctx context.Context, typeID uuid.UUID) ([]types.City, error) {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "ListCitiesByType", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
		attribute.String("db.city_type.id", typeID.String()),
	))
	defer span.End()

	query := fmt.Sprintf(`
        SELECT %s FROM cities
        WHERE id IN (SELECT city_id FROM city_type_assignments WHERE type_id = $1)
        ORDER BY name`, cityColumns)
	return r.listCities(ctx, span, query, typeID)
}

func (r *PostgresCityRepo) listCities(ctx context.Context, span trace.Span, query string, args ...any) ([]types.City, error) {
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing cities: %w", err)
	}
	defer rows.Close()

	var cities []types.City
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning city: %w", err)
		}
		cities = append(cities, c)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading cities: %w", err)
	}

	if err := r.attachTypes(ctx, cities); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Cities listed")
	return cities, nil
}

func (r *PostgresCityRepo) ListCitiesWithCounts(ctx context.Context) ([]types.CityWithCount, error) {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "ListCitiesWithCounts", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities, destinations"),
	))
	defer span.End()

	query := fmt.Sprintf(`
        SELECT %s, (SELECT COUNT(*) FROM destinations d WHERE d.city_id = cities.id)
        FROM cities
        ORDER BY name`, cityColumns)

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing cities with counts: %w", err)
	}
	defer rows.Close()

	var result []types.CityWithCount
	for rows.Next() {
		var c types.CityWithCount
		var weatherRaw, infoRaw []byte
		err := rows.Scan(
			&c.ID, &c.Name, &c.Slug, &c.Description, &c.Views, &c.Images,
			&weatherRaw, &infoRaw, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
			&c.DestinationCount,
		)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning city with count: %w", err)
		}
		if err := json.Unmarshal(weatherRaw, &c.Weather); err != nil {
			c.Weather = nil
		}
		if err := json.Unmarshal(infoRaw, &c.Info); err != nil {
			c.Info = nil
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading cities with counts: %w", err)
	}

	cities := make([]types.City, len(result))
	for i := range result {
		cities[i] = result[i].City
	}
	if err := r.attachTypes(ctx, cities); err != nil {
		span.RecordError(err)
		return nil, err
	}
	for i := range result {
		result[i].Types = cities[i].Types
	}

	span.SetStatus(codes.Ok, "Cities with counts listed")
	return result, nil
}

// SaveCity writes the full city row and replaces its type
// assignments in one transaction.
func (r *PostgresCityRepo) SaveCity(ctx context.Context, c types.City, typeIDs []uuid.UUID) (types.City, error) {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "SaveCity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "cities"),
		attribute.String("db.city.id", c.ID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SaveCity"), slog.String("cityID", c.ID.String()))

	weather, err := json.Marshal(c.Weather)
	if err != nil {
		return types.City{}, fmt.Errorf("error encoding weather: %w", err)
	}
	info, err := json.Marshal(c.Info)
	if err != nil {
		return types.City{}, fmt.Errorf("error encoding info: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return types.City{}, fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`
        UPDATE cities
        SET name = $2, slug = $3, description = $4, images = $5, weather = $6, info = $7, updated_at = NOW()
        WHERE id = $1
        RETURNING %s`, cityColumns)

	saved, err := scanCity(tx.QueryRow(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.Images, weather, info))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "City not found")
			return types.City{}, fmt.Errorf("city %s: %w", c.ID.String(), api.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "Unique violation")
			return types.City{}, fmt.Errorf("city %q already exists: %w", c.Name, api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to update city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return types.City{}, fmt.Errorf("database error updating city: %w", err)
	}

	if typeIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM city_type_assignments WHERE city_id = $1`, c.ID); err != nil {
			span.RecordError(err)
			return types.City{}, fmt.Errorf("database error clearing city types: %w", err)
		}
		for _, typeID := range typeIDs {
			if _, err := tx.Exec(ctx, `INSERT INTO city_type_assignments (city_id, type_id) VALUES ($1, $2)`, c.ID, typeID); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23503" {
					span.SetStatus(codes.Error, "Foreign key violation")
					return types.City{}, fmt.Errorf("city type %s does not exist: %w", typeID.String(), api.ErrBadRequest)
				}
				span.RecordError(err)
				return types.City{}, fmt.Errorf("database error assigning city type: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return types.City{}, fmt.Errorf("database error committing city update: %w", err)
	}

	cities := []types.City{saved}
	if err := r.attachTypes(ctx, cities); err != nil {
		span.RecordError(err)
		return types.City{}, err
	}

	l.InfoContext(ctx, "City saved")
	span.SetStatus(codes.Ok, "City saved")
	return cities[0], nil
}

// DeletionImpact counts everything a city delete would take with it.
func (r *PostgresCityRepo) DeletionImpact(ctx context.Context, id uuid.UUID) (types.CityDeletionImpact, error) {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "DeletionImpact", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.city.id", id.String()),
	))
	defer span.End()

	query := `
        SELECT c.name,
               (SELECT COUNT(*) FROM destinations d WHERE d.city_id = c.id),
               (SELECT COUNT(DISTINCT td.tour_id)
                FROM itinerary_items ii
                JOIN tour_days td ON td.id = ii.day_id
                JOIN destinations d ON d.id = ii.destination_id
                WHERE d.city_id = c.id)
        FROM cities c
        WHERE c.id = $1`

	impact := types.CityDeletionImpact{CityID: id}
	err := r.pgpool.QueryRow(ctx, query, id).Scan(&impact.Name, &impact.DestinationCount, &impact.TourCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "City not found")
			return types.CityDeletionImpact{}, fmt.Errorf("city %s: %w", id.String(), api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return types.CityDeletionImpact{}, fmt.Errorf("database error computing deletion impact: %w", err)
	}

	span.SetStatus(codes.Ok, "Deletion impact computed")
	return impact, nil
}

// DeleteCity removes the city and everything under it in one
// transaction. The child tables cascade off destinations.
func (r *PostgresCityRepo) DeleteCity(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "DeleteCity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "cities"),
		attribute.String("db.city.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "DeleteCity"), slog.String("cityID", id.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	destTag, err := tx.Exec(ctx, `DELETE FROM destinations WHERE city_id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting city destinations: %w", err)
	}

	cityTag, err := tx.Exec(ctx, `DELETE FROM cities WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("database error deleting city: %w", err)
	}
	if cityTag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "City not found")
		return fmt.Errorf("city %s: %w", id.String(), api.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error committing city delete: %w", err)
	}

	l.InfoContext(ctx, "City deleted", slog.Int64("destinationsRemoved", destTag.RowsAffected()))
	span.SetStatus(codes.Ok, "City deleted")
	return nil
}

func (r *PostgresCityRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CityRepo").Start(ctx, "IncrementViews", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "cities"),
		attribute.String("db.city.id", id.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `UPDATE cities SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error incrementing city views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "City not found")
		return fmt.Errorf("city %s: %w", id.String(), api.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Views incremented")
	return nil
}
