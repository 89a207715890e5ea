package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"logistics-backend/internal/shared/server/middleware"
	"logistics-backend/internal/shared/server/respond"
)

// registerMeRoutes lets a client check which operator its bearer token belongs to.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", "")
			return
		}
		fields := gin.H{"userId": userID}
		for key, v := range map[string]string{
			"role":  middleware.UserRoleFromContext(c),
			"email": middleware.UserEmailFromContext(c),
		} {
			if v != "" {
				fields[key] = v
			}
		}
		respond.Success(c, fields)
	})
}
