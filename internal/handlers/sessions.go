package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stakepact/server/internal/middleware"
	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/service"
)

type meetingURLRequest struct {
	MeetingURL string `json:"meetingUrl" binding:"required,url"`
}

type voteEntryRequest struct {
	RuleID       string `json:"ruleId" binding:"required"`
	TargetUserID string `json:"targetUserId" binding:"required"`
	Value        string `json:"value" binding:"required,votevalue"`
}

type submitVotesRequest struct {
	Votes []voteEntryRequest `json:"votes" binding:"required,min=1,dive"`
}

func sessionJSON(s *models.CallSession) gin.H {
	return gin.H{
		"id":          s.ID,
		"groupId":     s.GroupID,
		"status":      s.Status,
		"meetingUrl":  s.MeetingURL,
		"createdAt":   s.CreatedAt,
		"finalizedAt": s.FinalizedAt,
	}
}

func (h *Handlers) scheduleSession(c *gin.Context) {
	session, err := h.sessions.Schedule(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sessionJSON(session)})
}

func (h *Handlers) latestSession(c *gin.Context) {
	session, err := h.sessions.Latest(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionJSON(session)})
}

func (h *Handlers) setMeetingURL(c *gin.Context) {
	var req meetingURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.sessions.SetMeetingURL(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.MeetingURL); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handlers) startSession(c *gin.Context) {
	session, err := h.sessions.Start(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sessionJSON(session)})
}

func (h *Handlers) submitVotes(c *gin.Context) {
	var req submitVotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entries := make([]service.VoteEntry, len(req.Votes))
	for i, v := range req.Votes {
		entries[i] = service.VoteEntry{
			RuleID:       v.RuleID,
			TargetUserID: v.TargetUserID,
			Value:        v.Value,
		}
	}

	if err := h.sessions.SubmitVotes(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), entries); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": len(entries)})
}

func (h *Handlers) finalizeSession(c *gin.Context) {
	result, err := h.sessions.Finalize(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	obligations := make([]gin.H, len(result.Obligations))
	for i, o := range result.Obligations {
		obligations[i] = obligationJSON(o)
	}
	losses := make([]gin.H, len(result.CauseLosses))
	for i, l := range result.CauseLosses {
		losses[i] = causeLossJSON(l)
	}
	c.JSON(http.StatusOK, gin.H{
		"session":     sessionJSON(result.Session),
		"obligations": obligations,
		"causeLosses": losses,
	})
}
