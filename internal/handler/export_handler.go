package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/service"
	"github.com/campusops/timetable-api/pkg/response"
)

// ExportHandler serves CSV and PDF downloads of the timetable data.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

func (h *ExportHandler) download(c *gin.Context, name, mime string, render func(context.Context) ([]byte, error)) {
	payload, err := render(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("%s-%s", time.Now().UTC().Format("2006-01-02"), name)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mime, payload)
}

// Rooms godoc
// @Summary Export rooms as CSV
// @Tags Exports
// @Produce text/csv
// @Success 200 {file} file
// @Router /exports/rooms.csv [get]
func (h *ExportHandler) Rooms(c *gin.Context) {
	h.download(c, "rooms.csv", "text/csv", h.service.RoomsCSV)
}

// Teachers godoc
// @Summary Export teachers as CSV
// @Tags Exports
// @Produce text/csv
// @Success 200 {file} file
// @Router /exports/teachers.csv [get]
func (h *ExportHandler) Teachers(c *gin.Context) {
	h.download(c, "teachers.csv", "text/csv", h.service.TeachersCSV)
}

// Subjects godoc
// @Summary Export subjects as CSV
// @Tags Exports
// @Produce text/csv
// @Success 200 {file} file
// @Router /exports/subjects.csv [get]
func (h *ExportHandler) Subjects(c *gin.Context) {
	h.download(c, "subjects.csv", "text/csv", h.service.SubjectsCSV)
}

// Sections godoc
// @Summary Export sections as CSV
// @Description Schedule cells use semicolon-separated "Day HH:MM-HH:MM" entries.
// @Tags Exports
// @Produce text/csv
// @Success 200 {file} file
// @Router /exports/sections.csv [get]
func (h *ExportHandler) Sections(c *gin.Context) {
	h.download(c, "sections.csv", "text/csv", h.service.SectionsCSV)
}

// Timetable godoc
// @Summary Export the weekly timetable as PDF
// @Tags Exports
// @Produce application/pdf
// @Success 200 {file} file
// @Router /exports/timetable.pdf [get]
func (h *ExportHandler) Timetable(c *gin.Context) {
	h.download(c, "timetable.pdf", "application/pdf", h.service.TimetablePDF)
}
