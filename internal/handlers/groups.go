package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stakepact/server/internal/middleware"
	"github.com/stakepact/server/internal/models"
)

type createGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type joinGroupRequest struct {
	InviteCode string `json:"inviteCode" binding:"required"`
}

func groupJSON(g *models.Group) gin.H {
	return gin.H{
		"id":         g.ID,
		"name":       g.Name,
		"inviteCode": g.InviteCode,
		"creatorId":  g.CreatorID,
		"status":     g.Status,
		"createdAt":  g.CreatedAt,
	}
}

func (h *Handlers) createGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), middleware.GetUserID(c), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": groupJSON(group)})
}

func (h *Handlers) listGroups(c *gin.Context) {
	groups, err := h.groups.ListMyGroups(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, len(groups))
	for i, g := range groups {
		out[i] = groupJSON(g)
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

func (h *Handlers) getGroup(c *gin.Context) {
	detail, err := h.groups.GetGroup(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	members := make([]gin.H, len(detail.Members))
	for i, m := range detail.Members {
		members[i] = gin.H{"userId": m.UserID, "role": m.Role, "joinedAt": m.JoinedAt}
	}
	c.JSON(http.StatusOK, gin.H{"group": groupJSON(detail.Group), "members": members})
}

func (h *Handlers) joinGroup(c *gin.Context) {
	var req joinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := h.groups.JoinGroup(c.Request.Context(), middleware.GetUserID(c), req.InviteCode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": groupJSON(group)})
}

func (h *Handlers) activateGroup(c *gin.Context) {
	group, err := h.rules.ActivateGroup(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": groupJSON(group)})
}
