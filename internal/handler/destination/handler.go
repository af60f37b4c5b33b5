package destination

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/service/dispatch"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/httputil"
)

type Handler struct {
	service *dispatch.Service
}

func NewHandler(service *dispatch.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	workers := r.Group("/workers/:worker_id/destinations")
	{
		workers.POST("", h.Register)
		workers.GET("", h.List)
	}
	r.DELETE("/destinations/:id", h.Remove)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	destination, err := h.service.RegisterDestination(c.Request.Context(), model.WorkerID(c.Param("worker_id")), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, destination)
}

func (h *Handler) List(c *gin.Context) {
	destinations, err := h.service.ListDestinations(c.Request.Context(), model.WorkerID(c.Param("worker_id")))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, destinations)
}

func (h *Handler) Remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid destination ID"))
		return
	}
	if err := h.service.RemoveDestination(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}
