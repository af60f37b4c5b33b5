package availability

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/service/availability"
	"github.com/jwalitptl/studio-api/internal/timewindow"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/httputil"
)

type Handler struct {
	service *availability.Service
}

func NewHandler(service *availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	workers := r.Group("/workers/:worker_id")
	{
		workers.GET("/availability", h.GetRules)
		workers.PUT("/business-hours", h.UpsertBusinessHours)
		workers.POST("/days-off", h.CreateDayOff)
		workers.DELETE("/days-off/:id", h.DeleteDayOff)
		workers.POST("/unavailable-dates", h.CreateUnavailableDate)
		workers.DELETE("/unavailable-dates/:id", h.DeleteUnavailableDate)
		workers.POST("/unavailable-times", h.CreateUnavailableTime)
		workers.GET("/unavailable-times", h.ListUnavailableTimes)
		workers.DELETE("/unavailable-times/:id", h.DeleteUnavailableTime)
		workers.GET("/slots", h.FreeSlots)
		workers.GET("/slots/check", h.CheckSlot)
	}
}

func workerID(c *gin.Context) model.WorkerID {
	return model.WorkerID(c.Param("worker_id"))
}

func (h *Handler) GetRules(c *gin.Context) {
	rules, err := h.service.Rules(c.Request.Context(), workerID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rules)
}

func (h *Handler) UpsertBusinessHours(c *gin.Context) {
	var req model.UpsertBusinessHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	hours, err := h.service.UpsertBusinessHours(c.Request.Context(), workerID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, hours)
}

func (h *Handler) CreateDayOff(c *gin.Context) {
	var req model.CreateDayOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	dayOff, err := h.service.CreateDayOff(c.Request.Context(), workerID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, dayOff)
}

func (h *Handler) DeleteDayOff(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid ID"))
		return
	}
	if err := h.service.DeleteDayOff(c.Request.Context(), workerID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) CreateUnavailableDate(c *gin.Context) {
	var req model.CreateUnavailableDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	date, err := h.service.CreateUnavailableDate(c.Request.Context(), workerID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, date)
}

func (h *Handler) DeleteUnavailableDate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid ID"))
		return
	}
	if err := h.service.DeleteUnavailableDate(c.Request.Context(), workerID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) CreateUnavailableTime(c *gin.Context) {
	var req model.CreateUnavailableTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	block, err := h.service.CreateUnavailableTime(c.Request.Context(), workerID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, block)
}

func (h *Handler) ListUnavailableTimes(c *gin.Context) {
	date, err := timewindow.ParseDate(c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid date"))
		return
	}

	blocks, err := h.service.UnavailableTimes(c.Request.Context(), workerID(c), date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, blocks)
}

func (h *Handler) DeleteUnavailableTime(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid ID"))
		return
	}
	if err := h.service.DeleteUnavailableTime(c.Request.Context(), workerID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) FreeSlots(c *gin.Context) {
	date, err := timewindow.ParseDate(c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid date"))
		return
	}
	duration := model.DefaultDurationMinutes
	if raw := c.Query("duration_min"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid duration"))
			return
		}
	}

	slots, err := h.service.FreeSlots(c.Request.Context(), workerID(c), date, duration)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	httputil.RespondWithSuccess(c, gin.H{"date": c.Query("date"), "slots": out})
}

func (h *Handler) CheckSlot(c *gin.Context) {
	date, err := timewindow.ParseDate(c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid date"))
		return
	}
	start, err := timewindow.ParseClock(c.Query("time"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid time"))
		return
	}
	duration := model.DefaultDurationMinutes
	if raw := c.Query("duration_min"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid duration"))
			return
		}
	}

	available, err := h.service.IsSlotAvailable(c.Request.Context(), workerID(c), date, int(start), duration)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"available": available})
}
