package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stakepact/server/internal/middleware"
	"github.com/stakepact/server/internal/models"
)

type deletionVoteRequest struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVE DECLINE"`
}

func deletionRequestJSON(r *models.DeletionRequest) gin.H {
	return gin.H{
		"id":          r.ID,
		"groupId":     r.GroupID,
		"requestedBy": r.RequestedBy,
		"status":      r.Status,
		"requestedAt": r.RequestedAt,
		"expiresAt":   r.ExpiresAt,
	}
}

func (h *Handlers) requestDeletion(c *gin.Context) {
	req, err := h.deletions.Request(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": deletionRequestJSON(req)})
}

func (h *Handlers) voteDeletion(c *gin.Context) {
	var req deletionVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	outcome, err := h.deletions.Vote(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Decision)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

func (h *Handlers) cancelDeletion(c *gin.Context) {
	if err := h.deletions.Cancel(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (h *Handlers) deletionStatus(c *gin.Context) {
	status, err := h.deletions.Status(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	votes := make([]gin.H, len(status.Votes))
	for i, v := range status.Votes {
		votes[i] = gin.H{"voterId": v.VoterID, "decision": v.Decision, "createdAt": v.CreatedAt}
	}
	c.JSON(http.StatusOK, gin.H{
		"request": deletionRequestJSON(status.Request),
		"votes":   votes,
	})
}
