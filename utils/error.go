package utils

import (
	"net/http"

	"fastaid/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// RespondError maps a tagged service error onto its HTTP status.
func RespondError(c *gin.Context, message string, err error) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.KindOf(err)
	logger := GetLogger()
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.String("kind", string(kind)), zap.Error(err))
	} else {
		logger.Debug(message, zap.String("kind", string(kind)), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Message: message, Code: string(kind), Details: err.Error()})
}
