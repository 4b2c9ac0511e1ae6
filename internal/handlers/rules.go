package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stakepact/server/internal/middleware"
	"github.com/stakepact/server/internal/service"
)

type proposeRuleRequest struct {
	Title string `json:"title" binding:"required"`
	// StakeAmount is in paise.
	StakeAmount int64 `json:"stakeAmount" binding:"required,gt=0"`
}

func ruleStatusJSON(rs *service.RuleStatus) gin.H {
	return gin.H{
		"id":            rs.Rule.ID,
		"groupId":       rs.Rule.GroupID,
		"creatorId":     rs.Rule.CreatorID,
		"title":         rs.Rule.Title,
		"stakeAmount":   rs.Rule.StakeAmount,
		"approvalCount": rs.ApprovalCount,
		"binding":       rs.Binding,
		"createdAt":     rs.Rule.CreatedAt,
	}
}

func (h *Handlers) proposeRule(c *gin.Context) {
	var req proposeRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rule, err := h.rules.ProposeRule(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Title, req.StakeAmount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": gin.H{
		"id":          rule.ID,
		"groupId":     rule.GroupID,
		"creatorId":   rule.CreatorID,
		"title":       rule.Title,
		"stakeAmount": rule.StakeAmount,
		"createdAt":   rule.CreatedAt,
	}})
}

func (h *Handlers) listRules(c *gin.Context) {
	groupID := c.Param("id")
	statuses, err := h.rules.ListRules(c.Request.Context(), groupID, middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, len(statuses))
	for i, rs := range statuses {
		out[i] = ruleStatusJSON(rs)
	}

	check, err := h.rules.CanActivate(c.Request.Context(), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rules":          out,
		"canActivate":    check.Ready,
		"pendingReasons": check.Reasons,
	})
}

func (h *Handlers) approveRule(c *gin.Context) {
	status, err := h.rules.Approve(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": ruleStatusJSON(status)})
}

func (h *Handlers) rejectRule(c *gin.Context) {
	if err := h.rules.Reject(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
