package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/freelancehub/backend/database"
	"github.com/freelancehub/backend/errs"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	authHandler        authHandler
	projectHandler     projectHandler
	applicationHandler applicationHandler
	healthHandler      healthHandler
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error   string `json:"error"`
	Status  string `json:"status"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return errs.NewInvalidJSONError(err)
	}
	return nil
}

// parsePageRequest reads page/limit query parameters. Out-of-range values
// fall back to defaults in the repository layer.
func parsePageRequest(r *http.Request) database.PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return database.PageRequest{Page: page, Limit: limit}
}
