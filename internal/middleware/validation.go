package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/temcen/cartrec/internal/validation"
)

const maxBodyBytes = 64 << 10

// ValidateBody checks the JSON request body against a named schema and
// restores the body for downstream handlers
func ValidateBody(validator *validation.SchemaValidator, schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
		if err != nil {
			sendValidationError(c, http.StatusBadRequest, "BODY_READ_ERROR", "Failed to read request body")
			return
		}
		if len(bodyBytes) > maxBodyBytes {
			sendValidationError(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body is too large")
			return
		}
		if len(bodyBytes) == 0 {
			sendValidationError(c, http.StatusBadRequest, "EMPTY_BODY", "Request body is required")
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		result := validator.ValidateJSON(schemaName, bodyBytes)
		if !result.Valid {
			apiError := result.ToAPIError()
			if errorObj, ok := apiError["error"].(map[string]interface{}); ok {
				errorObj["timestamp"] = time.Now().UTC().Format(time.RFC3339)
				errorObj["requestId"] = c.GetString(ContextRequestID)
				errorObj["path"] = c.Request.URL.Path
			}

			c.AbortWithStatusJSON(http.StatusBadRequest, apiError)
			return
		}

		c.Next()
	}
}

func sendValidationError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": c.GetString(ContextRequestID),
		},
	})
}
