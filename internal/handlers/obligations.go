package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stakepact/server/internal/middleware"
	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/service"
)

type resolveCauseLossRequest struct {
	Status string `json:"status" binding:"required,oneof=DONATED SKIPPED"`
}

func obligationJSON(o *models.PaymentObligation) gin.H {
	return gin.H{
		"id":            o.ID,
		"groupId":       o.GroupID,
		"ruleId":        o.RuleID,
		"fromUserId":    o.FromUserID,
		"toUserId":      o.ToUserID,
		"amount":        o.Amount,
		"status":        o.Status,
		"callSessionId": o.CallSessionID,
		"settledAt":     o.SettledAt,
		"createdAt":     o.CreatedAt,
	}
}

func causeLossJSON(l *models.CauseLoss) gin.H {
	return gin.H{
		"id":        l.ID,
		"userId":    l.UserID,
		"groupId":   l.GroupID,
		"ruleId":    l.RuleID,
		"cycleId":   l.CycleID,
		"amount":    l.Amount,
		"status":    l.Status,
		"createdAt": l.CreatedAt,
	}
}

func obligationViewJSON(v *service.ObligationView) gin.H {
	out := obligationJSON(v.Obligation)
	if v.UpiLink != "" {
		out["upiLink"] = v.UpiLink
	}
	return out
}

// myObligations lists what the caller owes and is owed, optionally scoped
// to one group via ?groupId=.
func (h *Handlers) myObligations(c *gin.Context) {
	owed, receiving, err := h.obligations.MyObligations(c.Request.Context(), middleware.GetUserID(c), c.Query("groupId"))
	if err != nil {
		fail(c, err)
		return
	}

	owedOut := make([]gin.H, len(owed))
	for i, v := range owed {
		owedOut[i] = obligationViewJSON(v)
	}
	receivingOut := make([]gin.H, len(receiving))
	for i, v := range receiving {
		receivingOut[i] = obligationViewJSON(v)
	}
	c.JSON(http.StatusOK, gin.H{"owed": owedOut, "receiving": receivingOut})
}

func (h *Handlers) markPaid(c *gin.Context) {
	obligation, err := h.obligations.MarkPaid(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"obligation": obligationJSON(obligation)})
}

func (h *Handlers) confirmReceived(c *gin.Context) {
	obligation, err := h.obligations.ConfirmReceived(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"obligation": obligationJSON(obligation)})
}

func (h *Handlers) netBalances(c *gin.Context) {
	balances, err := h.obligations.NetBalances(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, len(balances))
	for i, b := range balances {
		out[i] = gin.H{"fromUserId": b.FromUserID, "toUserId": b.ToUserID, "amount": b.Amount}
	}
	c.JSON(http.StatusOK, gin.H{"balances": out})
}

func (h *Handlers) myCauseLosses(c *gin.Context) {
	losses, err := h.obligations.MyCauseLosses(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, len(losses))
	for i, l := range losses {
		out[i] = causeLossJSON(l)
	}
	c.JSON(http.StatusOK, gin.H{"causeLosses": out})
}

func (h *Handlers) resolveCauseLoss(c *gin.Context) {
	var req resolveCauseLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	loss, err := h.obligations.ResolveCauseLoss(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"causeLoss": causeLossJSON(loss)})
}
