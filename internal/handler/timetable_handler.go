package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/service"
	"github.com/campusops/timetable-api/pkg/response"
)

// TimetableHandler serves the read-only weekly timetable view.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Week godoc
// @Summary Get the weekly timetable
// @Description Groups active section meetings by day, sorted by start time. Optional filters narrow to one teacher, room, or section.
// @Tags Timetable
// @Produce json
// @Param teacher query string false "Filter by teacher"
// @Param room query string false "Filter by room"
// @Param section query string false "Filter by section"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) Week(c *gin.Context) {
	filter := service.TimetableFilter{
		TeacherID: c.Query("teacher"),
		RoomID:    c.Query("room"),
		SectionID: c.Query("section"),
	}
	days, err := h.service.Week(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}
