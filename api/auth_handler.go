package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/freelancehub/backend/database"
	"github.com/freelancehub/backend/errs"
	"github.com/freelancehub/backend/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type authHandler struct {
	responder Responder
	logger    zerolog.Logger
	userRepo  *database.UserRepo
	jwtSecret []byte
}

func newAuthHandler(userRepo *database.UserRepo, jwtSecret []byte) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder: NewResponder(logger),
		logger:    logger,
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

type registerRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	DisplayName string   `json:"display_name"`
	Role        string   `json:"role"`
	Skills      []string `json:"skills"`
	Phone       string   `json:"phone"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// register creates a new client, freelancer or mentor account
func (h authHandler) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("email"))
			return
		}
		if len(req.Password) < 8 {
			h.responder.WriteError(w, errs.NewInvalidFieldError("password", "must be at least 8 characters"))
			return
		}
		if strings.TrimSpace(req.DisplayName) == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("display_name"))
			return
		}
		role, err := models.ParseRole(req.Role)
		if err != nil {
			h.responder.WriteError(w, errs.NewInvalidFieldError("role", err.Error()))
			return
		}
		if role == models.RoleAdmin {
			h.responder.WriteError(w, errs.NewForbiddenError("admin accounts can not be self-registered"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("hashing password", err))
			return
		}

		user := &models.User{
			Email:        req.Email,
			DisplayName:  strings.TrimSpace(req.DisplayName),
			PasswordHash: string(hash),
			Role:         role,
			Skills:       models.NormalizeSkills(req.Skills),
			Phone:        strings.TrimSpace(req.Phone),
		}
		if err := h.userRepo.Add(user); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		token, err := signToken(h.jwtSecret, user, tokenTTL)
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("signing token", err))
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, authResponse{Token: token, User: user})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login exchanges credentials for a bearer token
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			// Do not reveal whether the account exists
			h.responder.WriteError(w, errs.NewUnauthorizedError("invalid credentials"))
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			h.responder.WriteError(w, errs.NewUnauthorizedError("invalid credentials"))
			return
		}

		token, err := signToken(h.jwtSecret, user, tokenTTL)
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("signing token", err))
			return
		}

		h.responder.WriteJSON(w, authResponse{Token: token, User: user})
	}
}

type updateSkillsRequest struct {
	Skills []string `json:"skills"`
}

// updateSkills replaces the caller's declared skill set, which feeds the
// recommendation query
func (h authHandler) updateSkills() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFrom(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthorizedError("authentication required"))
			return
		}
		if principal.Role != models.RoleFreelancer {
			h.responder.WriteError(w, errs.NewForbiddenError("only freelancers declare skills"))
			return
		}

		var req updateSkillsRequest
		if err := decodeJSON(r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.userRepo.UpdateSkills(principal.ID, req.Skills)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, user)
	}
}

type healthHandler struct {
	responder   Responder
	startupTime time.Time
}

func newHealthHandler(startupTime time.Time) healthHandler {
	return healthHandler{
		responder:   NewResponder(log.With().Str("handlerName", "healthHandler").Logger()),
		startupTime: startupTime,
	}
}

func (h healthHandler) health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, map[string]any{
			"status": "ok",
			"uptime": time.Since(h.startupTime).String(),
		})
	}
}
