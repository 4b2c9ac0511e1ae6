package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stakepact/server/internal/middleware"
)

// listNotifications returns the caller's notifications, newest first.
// ?unread=true filters to unread rows.
func (h *Handlers) listNotifications(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	notifications, err := h.store.ListNotificationsByUser(c.Request.Context(), middleware.GetUserID(c), unreadOnly)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, len(notifications))
	for i, n := range notifications {
		out[i] = gin.H{
			"id":        n.ID,
			"type":      n.Type,
			"title":     n.Title,
			"message":   n.Message,
			"data":      n.Data,
			"read":      n.Read,
			"createdAt": n.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (h *Handlers) readNotification(c *gin.Context) {
	if err := h.store.MarkNotificationRead(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}
