package utils

import (
	"bidding-engine/internal/biddingerrors"
	"errors"

	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response.
// Rejections also carry their kind and reason so clients can tell a lost race from a bad request.
func JSONError(c *gin.Context, status int, err error, message string) {
	body := gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	}

	var rej *biddingerrors.Rejection
	if errors.As(err, &rej) {
		body["kind"] = rej.Kind.String()
		body["reason"] = rej.Reason
	}

	c.JSON(status, body)
}
