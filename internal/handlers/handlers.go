// Package handlers maps the HTTP/JSON surface onto the service layer.
// Amounts cross the wire as integer paise, never floats.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stakepact/server/internal/auth"
	"github.com/stakepact/server/internal/middleware"
	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/service"
	"github.com/stakepact/server/internal/storage"
)

// Handlers bundles the services behind the HTTP surface.
type Handlers struct {
	auth        auth.Authenticator
	jwt         *auth.JWTManager
	groups      *service.GroupService
	rules       *service.RuleService
	deletions   *service.DeletionService
	sessions    *service.SessionService
	obligations *service.ObligationService
	store       storage.Store
}

// New creates the handler set. The store is used directly only for the
// thin reads (profile, notifications) that never grew a service.
func New(
	authenticator auth.Authenticator,
	jwt *auth.JWTManager,
	groups *service.GroupService,
	rules *service.RuleService,
	deletions *service.DeletionService,
	sessions *service.SessionService,
	obligations *service.ObligationService,
	store storage.Store,
) *Handlers {
	registerValidations()
	return &Handlers{
		auth:        authenticator,
		jwt:         jwt,
		groups:      groups,
		rules:       rules,
		deletions:   deletions,
		sessions:    sessions,
		obligations: obligations,
		store:       store,
	}
}

// registerValidations adds custom binding validations to gin's validator.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("votevalue", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == models.VoteYes || s == models.VoteNo
		})
	}
}

// Routes mounts the API.
func (h *Handlers) Routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)

	authed := api.Group("", middleware.RequireAuth(h.jwt))
	authed.GET("/me", h.me)

	authed.POST("/groups", h.createGroup)
	authed.GET("/groups", h.listGroups)
	authed.GET("/groups/:id", h.getGroup)
	authed.POST("/groups/join", h.joinGroup)
	authed.POST("/groups/:id/activate", h.activateGroup)

	authed.POST("/groups/:id/rules", h.proposeRule)
	authed.GET("/groups/:id/rules", h.listRules)
	authed.POST("/rules/:id/approve", h.approveRule)
	authed.POST("/rules/:id/reject", h.rejectRule)

	authed.POST("/groups/:id/deletion", h.requestDeletion)
	authed.POST("/groups/:id/deletion/vote", h.voteDeletion)
	authed.POST("/groups/:id/deletion/cancel", h.cancelDeletion)
	authed.GET("/groups/:id/deletion", h.deletionStatus)

	authed.POST("/groups/:id/sessions", h.scheduleSession)
	authed.GET("/groups/:id/sessions/latest", h.latestSession)
	authed.PATCH("/sessions/:id/meeting-url", h.setMeetingURL)
	authed.POST("/sessions/:id/start", h.startSession)
	authed.POST("/sessions/:id/votes", h.submitVotes)
	authed.POST("/sessions/:id/finalize", h.finalizeSession)

	authed.GET("/obligations", h.myObligations)
	authed.POST("/obligations/:id/mark-paid", h.markPaid)
	authed.POST("/obligations/:id/confirm", h.confirmReceived)
	authed.GET("/groups/:id/balances", h.netBalances)

	authed.GET("/cause-losses", h.myCauseLosses)
	authed.POST("/cause-losses/:id/status", h.resolveCauseLoss)

	authed.GET("/notifications", h.listNotifications)
	authed.POST("/notifications/:id/read", h.readNotification)
}

// fail maps domain errors onto HTTP statuses and surfaces the reason
// verbatim, the way the UI expects.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrNotAMember),
		errors.Is(err, models.ErrForbidden),
		errors.Is(err, models.ErrSelfApproval),
		errors.Is(err, models.ErrRequesterVote):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrAlreadyPending),
		errors.Is(err, models.ErrAlreadyVoted):
		status = http.StatusConflict
	case errors.Is(err, models.ErrVotesIncomplete):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrEmailExists):
		status = http.StatusBadRequest
	}

	c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
