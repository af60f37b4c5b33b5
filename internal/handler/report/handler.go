package report

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/studio-api/internal/model"
	"github.com/jwalitptl/studio-api/internal/service/report"
	"github.com/jwalitptl/studio-api/internal/timewindow"
	apperrors "github.com/jwalitptl/studio-api/pkg/errors"
	"github.com/jwalitptl/studio-api/pkg/httputil"
)

type Handler struct {
	service *report.Service
}

func NewHandler(service *report.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	expenses := r.Group("/expenses")
	{
		expenses.POST("", h.CreateExpense)
		expenses.GET("", h.ListExpenses)
		expenses.DELETE("/:id", h.DeleteExpense)
	}
	r.GET("/reports/range", h.RangeReport)
}

func (h *Handler) CreateExpense(c *gin.Context) {
	var req model.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation(err.Error()))
		return
	}

	expense, err := h.service.CreateExpense(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, expense)
}

func (h *Handler) ListExpenses(c *gin.Context) {
	filters := &model.ExpenseFilters{
		WorkerID: model.WorkerID(c.Query("worker_id")),
		Category: c.Query("category"),
	}
	if from := c.Query("from"); from != "" {
		date, err := timewindow.ParseDate(from)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid from date"))
			return
		}
		filters.StartDate = date
	}
	if to := c.Query("to"); to != "" {
		date, err := timewindow.ParseDate(to)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewValidation("invalid to date"))
			return
		}
		filters.EndDate = date
	}

	expenses, err := h.service.ListExpenses(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, expenses)
}

func (h *Handler) DeleteExpense(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid expense ID"))
		return
	}
	if err := h.service.DeleteExpense(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) RangeReport(c *gin.Context) {
	rangeReport, err := h.service.RangeReport(
		c.Request.Context(),
		model.WorkerID(c.Query("worker_id")),
		c.Query("from"),
		c.Query("to"),
	)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rangeReport)
}
