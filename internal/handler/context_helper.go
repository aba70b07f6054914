package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/middleware"
)

func actorID(c *gin.Context) string {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}
