package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/service/appointment"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the availability lookup.
func (h *Handler) RegisterPublicRoutes(r gin.IRoutes) {
	r.GET("/doctors/:doctorId/availability", h.GetAvailability)
}

// RegisterRoutes mounts booking; r is expected to authenticate callers.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/appointments", h.BookAppointment)
}

func (h *Handler) GetAvailability(c *gin.Context) {
	doctorID, err := handler.ParseID(c, "doctorId", "doctor")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var q model.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(handler.BindError(c, err, handler.SourceQuery))
		return
	}
	q.DoctorID = doctorID

	slots, err := h.service.ListAvailableSlots(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, slots)
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		_ = c.Error(handler.BindError(c, err, handler.SourceBody))
		return
	}

	apt, err := h.service.BookAppointment(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, apt)
}
