package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/service"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
	"github.com/campusops/timetable-api/pkg/response"
)

// ImportHandler accepts CSV uploads for bulk entity creation.
type ImportHandler struct {
	service        *service.ImportService
	maxUploadBytes int64
}

// NewImportHandler constructs an import handler.
func NewImportHandler(svc *service.ImportService, maxUploadBytes int64) *ImportHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 8 << 20
	}
	return &ImportHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

func (h *ImportHandler) upload(c *gin.Context, parse func(context.Context, io.Reader) (*service.ImportSummary, error)) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "multipart field 'file' is required"))
		return
	}
	if fh.Size > h.maxUploadBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "uploaded file is too large"))
		return
	}
	file, err := fh.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	summary, err := parse(c.Request.Context(), io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Sections godoc
// @Summary Import sections from CSV
// @Description Malformed rows are rejected with their line numbers and never abort the run.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Section CSV file"
// @Success 200 {object} response.Envelope
// @Router /imports/sections [post]
func (h *ImportHandler) Sections(c *gin.Context) {
	h.upload(c, h.service.Sections)
}

// Rooms godoc
// @Summary Import rooms from CSV
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Room CSV file"
// @Success 200 {object} response.Envelope
// @Router /imports/rooms [post]
func (h *ImportHandler) Rooms(c *gin.Context) {
	h.upload(c, h.service.Rooms)
}

// Teachers godoc
// @Summary Import teachers from CSV
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Teacher CSV file"
// @Success 200 {object} response.Envelope
// @Router /imports/teachers [post]
func (h *ImportHandler) Teachers(c *gin.Context) {
	h.upload(c, h.service.Teachers)
}
