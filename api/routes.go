package api

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes wires the marketplace surface. Public routes get an optional
// principal so owner-only response shaping still works; everything that
// mutates state requires authentication.
func setupRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)
		r.Use(authMiddleware.optionallyAuthenticate)

		r.Post("/auth/register", handlers.authHandler.register())
		r.Post("/auth/login", handlers.authHandler.login())
		r.Get("/health", handlers.healthHandler.health())

		r.Get("/projects", handlers.projectHandler.listProjects())
		r.Get("/projects/{projectID}", handlers.projectHandler.getProject())
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)
		r.Use(authMiddleware.authenticate)

		r.Get("/projects/recommended", handlers.projectHandler.recommendedProjects())
		r.Post("/projects", handlers.projectHandler.createProject())
		r.Put("/projects/{projectID}", handlers.projectHandler.updateProject())
		r.Delete("/projects/{projectID}", handlers.projectHandler.deleteProject())

		r.Post("/projects/{projectID}/applications", handlers.applicationHandler.submitApplication())
		r.Get("/projects/{projectID}/applications", handlers.applicationHandler.listProjectApplications())
		r.Post("/projects/{projectID}/applications/{applicationID}/decision", handlers.applicationHandler.decideApplication())

		r.Get("/users/me/applications", handlers.applicationHandler.listMyApplications())
		r.Put("/users/me/skills", handlers.authHandler.updateSkills())
	})
}
