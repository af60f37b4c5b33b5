package reminder

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/middleware"
	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/service/reminder"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/httputil"
)

type Handler struct {
	service *reminder.Service
}

func NewHandler(service *reminder.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the trigger callback behind token auth and the
// manual sweep for operators.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth gin.HandlerFunc) {
	reminders := r.Group("/reminders")
	{
		reminders.POST("/trigger", auth, h.Trigger)
		reminders.POST("/sweep", h.Sweep)
	}
}

// Trigger is the external scheduler's callback. The bearer token minted
// at registration names one appointment and kind; the body must agree
// with it, so a leaked token cannot trigger anything else.
func (h *Handler) Trigger(c *gin.Context) {
	var req model.TriggerReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	claims := middleware.TriggerClaims(c)
	if claims == nil || claims.AppointmentID != req.AppointmentID || claims.Kind != req.Kind {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("token does not match trigger request"))
		return
	}

	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid appointment ID"))
		return
	}
	kind, err := model.ParseReminderKind(req.Kind)
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	outcome, err := h.service.OnReminderTrigger(c.Request.Context(), id, kind, reminder.SourceScheduler)
	if err != nil && !apperrors.IsCode(err, apperrors.ErrTransient) {
		httputil.RespondWithError(c, err)
		return
	}
	// A failed dispatch still answers 200; the claim was released and
	// the sweep owns the retry. The scheduler must not re-fire.
	httputil.RespondWithSuccess(c, gin.H{"outcome": outcome})
}

func (h *Handler) Sweep(c *gin.Context) {
	stats, err := h.service.Sweep(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}
