package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/vivutravel/vivu-backend/internal/types"
)

// signupWindowDays is the trailing window of the signup chart.
const signupWindowDays = 7

// topPlacesLimit caps the per-destination breakdown.
const topPlacesLimit = 20

const statsCacheKey = "admin:statistics"

var _ AdminService = (*AdminServiceImpl)(nil)

type AdminService interface {
	Statistics(ctx context.Context) (types.Statistics, error)
}

type AdminServiceImpl struct {
	logger *slog.Logger
	repo   AdminRepo
	cache  *cache.Cache
	now    func() time.Time
}

func NewAdminService(repo AdminRepo, cacheTTL time.Duration, logger *slog.Logger) *AdminServiceImpl {
	return &AdminServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(cacheTTL, 2*cacheTTL),
		now:    time.Now,
	}
}

// Statistics gathers the dashboard numbers, fanning the independent
// aggregates out concurrently. The result is cached briefly since the
// dashboard polls.
func (s *AdminServiceImpl) Statistics(ctx context.Context) (types.Statistics, error) {
	ctx, span := otel.Tracer("AdminService").Start(ctx, "Statistics")
	defer span.End()

	if cached, found := s.cache.Get(statsCacheKey); found {
		span.SetStatus(codes.Ok, "Statistics served from cache")
		return cached.(types.Statistics), nil
	}

	var stats types.Statistics
	since := s.now().AddDate(0, 0, -(signupWindowDays - 1)).Truncate(24 * time.Hour)
	var signups map[string]int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Users, err = s.repo.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Admins, err = s.repo.CountAdmins(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Cities, err = s.repo.CountCities(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Destinations, err = s.repo.CountDestinations(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Tours, err = s.repo.CountTours(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.CityViews, err = s.repo.CityViews(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TopPlaces, err = s.repo.DestinationStats(gctx, topPlacesLimit)
		return err
	})
	g.Go(func() (err error) {
		signups, err = s.repo.SignupsSince(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Statistics gathering failed")
		return types.Statistics{}, err
	}

	stats.Signups = fillSignupWindow(signups, since, signupWindowDays)

	s.cache.Set(statsCacheKey, stats, cache.DefaultExpiration)
	s.logger.DebugContext(ctx, "Statistics recomputed", slog.Int("users", stats.Users))
	span.SetStatus(codes.Ok, "Statistics gathered")
	return stats, nil
}

// fillSignupWindow expands the sparse per-day counts into a dense
// window, oldest day first, zero for days without signups.
func fillSignupWindow(signups map[string]int, since time.Time, days int) []types.SignupCount {
	window := make([]types.SignupCount, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		window = append(window, types.SignupCount{Day: day, Count: signups[day]})
	}
	return window
}
