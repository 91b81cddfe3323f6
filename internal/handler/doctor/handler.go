package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/schedule"
)

// Handler exposes doctors' weekly schedules.
type Handler struct {
	service *schedule.Service
}

func NewHandler(service *schedule.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r gin.IRoutes) {
	r.GET("/doctors/:doctorId/schedule", h.GetSchedule)
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.PUT("/doctors/:doctorId/schedule", h.ReplaceSchedule)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	doctorID, err := handler.ParseID(c, "doctorId", "doctor")
	if err != nil {
		_ = c.Error(err)
		return
	}

	days, err := h.service.WeeklySchedule(c.Request.Context(), doctorID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, days)
}

func (h *Handler) ReplaceSchedule(c *gin.Context) {
	doctorID, err := handler.ParseID(c, "doctorId", "doctor")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.ReplaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(handler.BindError(c, err, handler.SourceBody))
		return
	}

	days, err := h.service.ReplaceWeeklySchedule(c.Request.Context(), doctorID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, days)
}
