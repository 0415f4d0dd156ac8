package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the bearer token payload.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin is a convenience for role checks in services.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
