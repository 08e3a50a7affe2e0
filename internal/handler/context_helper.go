package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/veridex/custody-api/internal/middleware"
	"github.com/veridex/custody-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext rebuilds the acting user from the JWT claims. The services
// only consult identity, role and the superuser flag, all of which travel in
// the token.
func actorFromContext(c *gin.Context) *models.User {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:          claims.UserID,
		Email:       claims.Email,
		FullName:    claims.FullName,
		Role:        claims.Role,
		IsSuperuser: claims.IsSuperuser,
		Active:      true,
	}
}
