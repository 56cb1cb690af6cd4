package handlers

import (
	"fastaid/middleware"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger returns the app logger tagged with the route and caller.
func getLogger(c *gin.Context) *zap.Logger {
	return utils.GetLogger().With(
		zap.String("route", c.FullPath()),
		zap.String("subject", middleware.Subject(c)),
		zap.String("role", middleware.Role(c)),
	)
}
