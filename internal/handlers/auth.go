package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stakepact/server/internal/middleware"
	"github.com/stakepact/server/internal/models"
)

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName" binding:"required"`
	Password    string `json:"password" binding:"required"`
	UpiVPA      string `json:"upiVpa"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"email":       u.Email,
		"displayName": u.DisplayName,
		"upiVpa":      u.UpiVPA,
		"totalPaid":   u.TotalPaid,
		"totalEarned": u.TotalEarned,
		"createdAt":   u.CreatedAt,
	}
}

func (h *Handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if req.UpiVPA != "" {
		user.UpiVPA = req.UpiVPA
		// Best effort; the account exists either way.
		if err := h.store.SetUserVPA(c.Request.Context(), user.ID, req.UpiVPA); err != nil {
			slog.Warn("register: failed to store UPI VPA", "user_id", user.ID, "error", err)
		}
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": userJSON(user)})
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userJSON(user)})
}

func (h *Handlers) me(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}
