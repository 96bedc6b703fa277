package routes

import (
	"net/http"

	"github.com/arenaprime/bracket-engine/handlers"
	"github.com/arenaprime/bracket-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

type Config struct {
	JWTSecret        []byte
	OrganizerKeyHash string
}

func SetupRoutes(
	router *chi.Mux,
	cfg Config,
	bracketHandler *handlers.BracketHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Organizer-Key"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Диспетчер действий движка: только организаторы, с лимитом частоты.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rate.Limit(5), 10))
		r.Use(middleware.Authenticate(cfg.JWTSecret, cfg.OrganizerKeyHash))
		r.Use(middleware.RequireRole("organizer"))

		r.Post("/api/bracket", bracketHandler.DispatchHandler)
	})

	// Публичные маршруты чтения прогресса.
	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/{tournamentID}/stats", bracketHandler.StatsHandler)
		r.Get("/{tournamentID}/rooms", bracketHandler.RoomsHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
