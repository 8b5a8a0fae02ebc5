package api

import (
	"context"

	"github.com/freelancehub/backend/models"
	"github.com/google/uuid"
)

type keyType string

const principalKey keyType = "principal"

// Principal is the authenticated caller, resolved once by the auth
// middleware. Role is a member of the closed models.Role set.
type Principal struct {
	ID   uuid.UUID
	Role models.Role
}

// ctxWithPrincipal adds the authenticated principal to the context
func ctxWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// principalFrom retrieves the authenticated principal, if any
func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
