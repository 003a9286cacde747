package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/vivutravel/vivu-backend/internal/api/auth"
	"github.com/vivutravel/vivu-backend/internal/api/taxonomy"
	"github.com/vivutravel/vivu-backend/internal/container"
)

// SetupRouter wires every endpoint under /api/v1. Server-wide
// middleware (request id, logging, recoverer) is applied by main
// before mounting this router.
func SetupRouter(c *container.Container) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httprate.LimitByIP(300, time.Minute))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong")) //nolint:errcheck
	})

	authenticate := auth.Authenticate(c.Logger, c.Config.JWT)
	identify := auth.Identify(c.Logger, c.Config.JWT)
	requireAdmin := auth.RequireAdmin(c.Logger)

	r.Route("/api/v1", func(r chi.Router) {

		// Public routes.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", c.AuthHandler.Register)
			r.Post("/auth/login", c.AuthHandler.Login)
			r.Get("/auth/google", c.AuthHandler.GoogleLogin)
			r.Get("/auth/google/callback", c.AuthHandler.GoogleCallback)

			r.Get("/cities", c.CityHandler.ListCities)
			r.Get("/cities/counts", c.CityHandler.ListCitiesWithCounts)
			r.Get("/cities/slug/{slug}", c.CityHandler.GetCityBySlug)
			r.Get("/cities/{id}", c.CityHandler.GetCity)

			r.Get("/destinations", c.DestinationHandler.SearchDestinations)
			r.Get("/destinations/popular", c.DestinationHandler.ListPopular)
			r.Get("/destinations/{id}", c.DestinationHandler.GetDestination)
			r.Get("/cities/{citySlug}/destinations/{slug}", c.DestinationHandler.GetDestinationBySlug)

			r.Get("/destinations/{id}/comments", c.CommentHandler.ListComments)
			r.Get("/comments/{id}", c.CommentHandler.GetComment)

			r.Get("/tags", c.TaxonomyHandler.List(taxonomy.KindTag))
			r.Get("/city-types", c.TaxonomyHandler.List(taxonomy.KindCityType))
			r.Get("/destination-types", c.TaxonomyHandler.List(taxonomy.KindDestinationType))

			// Tour reads resolve visibility against the caller when a
			// token is supplied.
			r.With(identify).Get("/tours", c.TourHandler.ListPublicTours)
			r.With(identify).Get("/tours/{id}", c.TourHandler.GetTour)
		})

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/auth/me", c.AuthHandler.GetAccount)

			r.Put("/users/me/name", c.UserHandler.UpdateName)
			r.Put("/users/me/password", c.UserHandler.UpdatePassword)
			r.Put("/users/me/avatar", c.UserHandler.UpdateAvatar)
			r.Get("/users/me/favorites", c.UserHandler.ListFavorites)
			r.Post("/users/me/favorites", c.UserHandler.AddFavorite)
			r.Delete("/users/me/favorites/{id}", c.UserHandler.RemoveFavorite)

			r.Post("/comments", c.CommentHandler.CreateComment)
			r.Delete("/comments/{id}", c.CommentHandler.DeleteComment)

			r.Post("/tours", c.TourHandler.CreateTour)
			r.Get("/tours/mine", c.TourHandler.ListMyTours)
			r.Get("/tours/slug/{slug}", c.TourHandler.GetMyTourBySlug)
			r.Put("/tours/{id}", c.TourHandler.UpdateTour)
			r.Delete("/tours/{id}", c.TourHandler.DeleteTour)
			r.Post("/tours/{id}/destinations", c.TourHandler.AddDestination())
			r.Put("/tours/{id}/destinations", c.TourHandler.UpdateDestination())
			r.Post("/tours/{id}/destinations/remove", c.TourHandler.RemoveDestination())
			r.Post("/tours/{id}/notes", c.TourHandler.AddNote())
			r.Put("/tours/{id}/notes", c.TourHandler.UpdateNote())
			r.Post("/tours/{id}/notes/remove", c.TourHandler.RemoveNote())

			r.Post("/chats/completions", c.ChatHandler.SendMessage)
			r.Get("/chats", c.ChatHandler.ListChats)
			r.Post("/chats", c.ChatHandler.NewChat)
			r.Get("/chats/{id}", c.ChatHandler.GetChat)
			r.Delete("/chats/{id}", c.ChatHandler.DeleteChat)
		})

		// Admin routes: content management and the dashboard.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(requireAdmin)

			r.Post("/cities", c.CityHandler.CreateCity)
			r.Put("/cities/{id}", c.CityHandler.UpdateCity)
			r.Get("/cities/{id}/impact", c.CityHandler.DeletionImpact)
			r.Delete("/cities/{id}", c.CityHandler.DeleteCity)

			r.Post("/destinations", c.DestinationHandler.CreateDestination)
			r.Put("/destinations/{id}", c.DestinationHandler.UpdateDestination)
			r.Delete("/destinations/{id}", c.DestinationHandler.DeleteDestination)

			r.Post("/tags", c.TaxonomyHandler.Create(taxonomy.KindTag))
			r.Put("/tags/{id}", c.TaxonomyHandler.Update(taxonomy.KindTag))
			r.Delete("/tags/{id}", c.TaxonomyHandler.Delete(taxonomy.KindTag))
			r.Post("/city-types", c.TaxonomyHandler.Create(taxonomy.KindCityType))
			r.Put("/city-types/{id}", c.TaxonomyHandler.Update(taxonomy.KindCityType))
			r.Delete("/city-types/{id}", c.TaxonomyHandler.Delete(taxonomy.KindCityType))
			r.Post("/destination-types", c.TaxonomyHandler.Create(taxonomy.KindDestinationType))
			r.Put("/destination-types/{id}", c.TaxonomyHandler.Update(taxonomy.KindDestinationType))
			r.Delete("/destination-types/{id}", c.TaxonomyHandler.Delete(taxonomy.KindDestinationType))

			r.Get("/admin/users", c.UserHandler.ListUsers)
			r.Get("/admin/users/{id}", c.UserHandler.GetUser)
			r.Put("/admin/users/{id}/role", c.UserHandler.SetAdmin)
			r.Delete("/admin/users/{id}", c.UserHandler.DeleteUser)
			r.Get("/admin/statistics", c.AdminHandler.Statistics)
		})
	})

	return r
}
