package api

import (
	"fmt"
	"time"

	"github.com/freelancehub/backend/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func signToken(secret []byte, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, tokenStr string) (Principal, error) {
	var claims authClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token subject: %w", err)
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token role: %w", err)
	}
	return Principal{ID: userID, Role: role}, nil
}
