package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/reunite-project/reunite/internal/web/handlers"
	"github.com/reunite-project/reunite/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	submissionsHandler := handlers.NewSubmissionsHandler(s.deps.Pipeline, s.deps.Submissions, s.deps.Extractor)
	casesHandler := handlers.NewCasesHandler(s.deps.Cases, s.deps.Store, s.config.Matching.PurgeGracePeriod)
	matchesHandler := handlers.NewMatchesHandler(s.deps.Matches, s.deps.Cases)
	statsHandler := handlers.NewStatsHandler(s.deps.Cases, s.deps.Matches, s.deps.Store)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Public submission endpoints
		r.Post("/submissions", submissionsHandler.Submit)
		r.Post("/submissions/photo", submissionsHandler.SubmitPhoto)
		r.Get("/submissions/{code}", submissionsHandler.GetByCode)

		// Police endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(s.config.Server.APIToken))

			// Cases
			r.Post("/cases", casesHandler.Create)
			r.Get("/cases", casesHandler.List)
			r.Get("/cases/{id}", casesHandler.Get)
			r.Post("/cases/{id}/status", casesHandler.UpdateStatus)
			r.Post("/cases/{id}/embeddings", casesHandler.RegisterEmbedding)

			// Matches
			r.Get("/matches", matchesHandler.List)
			r.Get("/matches/{id}", matchesHandler.Get)
			r.Post("/matches/{id}/verify", matchesHandler.Verify)

			// Stats
			r.Get("/stats", statsHandler.Get)
		})
	})
}
