package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-dedup/internal/dedupe"
	"github.com/kozaktomas/photo-dedup/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	detector := dedupe.NewDetector(s.photos, s.groups, s.jobs, s.config.Thumbnails.Dir)
	duplicatesHandler := handlers.NewDuplicatesHandler(s.config, s.photos, s.groups, detector)
	jobsHandler := handlers.NewJobsHandler(s.jobs)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Duplicate groups
		r.Get("/duplicates", duplicatesHandler.List)
		r.Get("/duplicates/stats", duplicatesHandler.Stats)
		r.Post("/duplicates/detect", duplicatesHandler.Detect)
		r.Get("/duplicates/{groupID}", duplicatesHandler.Get)
		r.Post("/duplicates/{groupID}/resolve", duplicatesHandler.Resolve)
		r.Post("/duplicates/{groupID}/dismiss", duplicatesHandler.Dismiss)
		r.Post("/duplicates/{groupID}/revert", duplicatesHandler.Revert)
		r.Delete("/duplicates/{groupID}", duplicatesHandler.Delete)

		// Detection jobs (long-running operations)
		r.Get("/jobs/{jobID}", jobsHandler.Get)
	})
}
