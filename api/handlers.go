package api

import (
	"time"

	"github.com/freelancehub/backend/database"
	"github.com/freelancehub/backend/services/notify"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(database database.Database, notifier *notify.Notifier, jwtSecret []byte, startupTime time.Time) *routeHandlers {
	return &routeHandlers{
		authHandler:        newAuthHandler(database.UserRepo(), jwtSecret),
		projectHandler:     newProjectHandler(database.ProjectRepo(), database.UserRepo()),
		applicationHandler: newApplicationHandler(database.ApplicationRepo(), notifier),
		healthHandler:      newHealthHandler(startupTime),
	}
}
