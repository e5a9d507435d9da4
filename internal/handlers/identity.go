package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// userIDFromRequest resolves the calling user from the X-User-ID header,
// falling back to the user_id query parameter for SSE clients that cannot
// set headers.
func userIDFromRequest(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		raw = c.Query("user_id")
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing user id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id: %w", err)
	}
	return id, nil
}
