package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/internal/types"
)

var _ AdminRepo = (*PostgresAdminRepo)(nil)

// AdminRepo answers the aggregate questions behind the statistics
// dashboard.
type AdminRepo interface {
	CountUsers(ctx context.Context) (int, error)
	CountAdmins(ctx context.Context) (int, error)
	CountCities(ctx context.Context) (int, error)
	CountDestinations(ctx context.Context) (int, error)
	CountTours(ctx context.Context) (int, error)
	CityViews(ctx context.Context) ([]types.CityViewStat, error)
	DestinationStats(ctx context.Context, limit int) ([]types.DestinationStat, error)
	SignupsSince(ctx context.Context, since time.Time) (map[string]int, error)
}

type PostgresAdminRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresAdminRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresAdminRepo {
	return &PostgresAdminRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

func (r *PostgresAdminRepo) count(ctx context.Context, name, query string) (int, error) {
	ctx, span := otel.Tracer("AdminRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
	))
	defer span.End()

	var n int
	if err := r.pgpool.QueryRow(ctx, query).Scan(&n); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return 0, fmt.Errorf("database error counting rows: %w", err)
	}
	span.SetStatus(codes.Ok, "Counted")
	return n, nil
}

func (r *PostgresAdminRepo) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, "CountUsers", `SELECT COUNT(*) FROM users`)
}

func (r *PostgresAdminRepo) CountAdmins(ctx context.Context) (int, error) {
	return r.count(ctx, "CountAdmins", `SELECT COUNT(*) FROM users WHERE is_admin`)
}

func (r *PostgresAdminRepo) CountCities(ctx context.Context) (int, error) {
	return r.count(ctx, "CountCities", `SELECT COUNT(*) FROM cities`)
}

func (r *PostgresAdminRepo) CountDestinations(ctx context.Context) (int, error) {
	return r.count(ctx, "CountDestinations", `SELECT COUNT(*) FROM destinations`)
}

func (r *PostgresAdminRepo) CountTours(ctx context.Context) (int, error) {
	return r.count(ctx, "CountTours", `SELECT COUNT(*) FROM tours`)
}

func (r *PostgresAdminRepo) CityViews(ctx context.Context) ([]types.CityViewStat, error) {
	ctx, span := otel.Tracer("AdminRepo").Start(ctx, "CityViews", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT c.id, c.name, c.views, COALESCE(SUM(d.views), 0)
        FROM cities c
        LEFT JOIN destinations d ON d.city_id = c.id
        GROUP BY c.id
        ORDER BY c.views DESC`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error loading city views: %w", err)
	}
	defer rows.Close()

	var stats []types.CityViewStat
	for rows.Next() {
		var s types.CityViewStat
		if err := rows.Scan(&s.ID, &s.Name, &s.Views, &s.DestinationViews); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning city views: %w", err)
		}
		stats = append(stats, s)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading city views: %w", err)
	}

	span.SetStatus(codes.Ok, "City views loaded")
	return stats, nil
}

func (r *PostgresAdminRepo) DestinationStats(ctx context.Context, limit int) ([]types.DestinationStat, error) {
	ctx, span := otel.Tracer("AdminRepo").Start(ctx, "DestinationStats", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "destinations"),
		attribute.Int("db.limit", limit),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT id, title, views, total_rate, average_rating
        FROM destinations
        ORDER BY views DESC
        LIMIT $1`, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error loading destination stats: %w", err)
	}
	defer rows.Close()

	var stats []types.DestinationStat
	for rows.Next() {
		var s types.DestinationStat
		if err := rows.Scan(&s.ID, &s.Name, &s.Views, &s.TotalRate, &s.AverageRating); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning destination stats: %w", err)
		}
		stats = append(stats, s)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading destination stats: %w", err)
	}

	span.SetStatus(codes.Ok, "Destination stats loaded")
	return stats, nil
}

// SignupsSince returns signups per calendar day keyed by YYYY-MM-DD.
// Days without signups are absent; the service zero-fills the window.
func (r *PostgresAdminRepo) SignupsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	ctx, span := otel.Tracer("AdminRepo").Start(ctx, "SignupsSince", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT to_char(created_at::date, 'YYYY-MM-DD'), COUNT(*)
        FROM users
        WHERE created_at >= $1
        GROUP BY created_at::date`, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error loading signups: %w", err)
	}
	defer rows.Close()

	signups := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning signups: %w", err)
		}
		signups[day] = n
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading signups: %w", err)
	}

	span.SetStatus(codes.Ok, "Signups loaded")
	return signups, nil
}
