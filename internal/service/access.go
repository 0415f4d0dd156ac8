package service

import (
	"time"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

func hasRole(actor *models.JWTClaims, roles ...models.UserRole) bool {
	if actor == nil {
		return false
	}
	for _, r := range roles {
		if actor.Role == r {
			return true
		}
	}
	return false
}

func isSelfOrAdmin(actor *models.JWTClaims, userID string) bool {
	return actor != nil && (actor.Role == models.RoleAdmin || actor.UserID == userID)
}

var nowUTC = func() time.Time { return time.Now().UTC() }
