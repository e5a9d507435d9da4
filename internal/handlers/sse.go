package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnweave/backend/internal/platform/logger"
	"github.com/learnweave/backend/internal/services"
	"github.com/learnweave/backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.Hub
}

func NewSSEHandler(baseLog *logger.Logger, hub *sse.Hub) *SSEHandler {
	return &SSEHandler{
		log: baseLog.With("handler", "SSEHandler"),
		hub: hub,
	}
}

// Stream subscribes the caller to their personal progress channel and keeps
// the connection open until the client disconnects.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID, err := userIDFromRequest(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_user", err)
		return
	}

	client := h.hub.NewClient(userID)
	h.hub.AddChannel(client, services.UserChannel(userID))
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
