package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type generationService interface {
	Readiness(ctx context.Context, req dto.GenerateRequest) (*engine.Readiness, error)
	Start(ctx context.Context, req dto.GenerateRequest, actorID string) (*dto.RunAccepted, error)
	Get(ctx context.Context, id string) (*dto.RunResponse, error)
	Stop(ctx context.Context, id string) (*dto.RunResponse, error)
	RefreshRoster(ctx context.Context, departmentID string) error
}

type exportService interface {
	Render(run dto.RunResponse, format, title string) (*service.RenderedExport, error)
	Store(run dto.RunResponse, format, title string) (*service.ExportResult, error)
	Resolve(token string) (*service.ExportDownload, error)
}

// GenerationHandler exposes timetable generation endpoints.
type GenerationHandler struct {
	generation generationService
	exports    exportService
	apiPrefix  string
}

// NewGenerationHandler constructs the handler.
func NewGenerationHandler(generation generationService, exports exportService, apiPrefix string) *GenerationHandler {
	return &GenerationHandler{generation: generation, exports: exports, apiPrefix: apiPrefix}
}

// Readiness godoc
// @Summary Check whether a roster can be scheduled
// @Tags Generation
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Roster and generation options"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /generations/readiness [post]
func (h *GenerationHandler) Readiness(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid generation payload"))
		return
	}
	readiness, err := h.generation.Readiness(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, readiness)
}

// Create godoc
// @Summary Queue a timetable generation run
// @Tags Generation
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Roster and generation options"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /generations [post]
func (h *GenerationHandler) Create(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid generation payload"))
		return
	}
	accepted, err := h.generation.Start(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, accepted, fmt.Sprintf("%s/generations/%s", h.apiPrefix, accepted.RunID))
}

// Get godoc
// @Summary Get run status, progress and best schedule
// @Tags Generation
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /generations/{id} [get]
func (h *GenerationHandler) Get(c *gin.Context) {
	run, err := h.generation.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// Stop godoc
// @Summary Stop a queued or running generation
// @Tags Generation
// @Produce json
// @Param id path string true "Run ID"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /generations/{id}/stop [post]
func (h *GenerationHandler) Stop(c *gin.Context) {
	run, err := h.generation.Stop(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, run)
}

// Export godoc
// @Summary Download the best schedule of a run
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Run ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Param title query string false "Document title"
// @Success 200 {file} file
// @Failure 412 {object} response.Envelope
// @Router /generations/{id}/export [get]
func (h *GenerationHandler) Export(c *gin.Context) {
	run, err := h.generation.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	rendered, err := h.exports.Render(*run, c.DefaultQuery("format", service.FormatCSV), c.Query("title"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, int64(len(rendered.Data)), rendered.ContentType, bytes.NewReader(rendered.Data), map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", rendered.Filename),
	})
}

// StoreExport godoc
// @Summary Store an export and return a signed download URL
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.ExportRequest true "Export format"
// @Success 201 {object} response.Envelope
// @Router /generations/{id}/exports [post]
func (h *GenerationHandler) StoreExport(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid export payload"))
		return
	}
	run, err := h.generation.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	stored, err := h.exports.Store(*run, req.Format, req.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ExportResponse{RunID: run.RunID, Format: stored.Format, URL: stored.URL, ExpiresAt: stored.ExpiresAt})
}

// Download godoc
// @Summary Download a stored export through its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *GenerationHandler) Download(c *gin.Context) {
	download, err := h.exports.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	size := int64(-1)
	if info, statErr := download.File.Stat(); statErr == nil {
		size = info.Size()
	}
	contentType := download.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Expires", download.ExpiresAt.UTC().Format(http.TimeFormat))
	c.DataFromReader(http.StatusOK, size, contentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}

// RefreshRoster godoc
// @Summary Drop the cached stored roster
// @Tags Roster
// @Param departmentId query string false "Department to refresh; all when empty"
// @Success 204
// @Router /roster/refresh [post]
func (h *GenerationHandler) RefreshRoster(c *gin.Context) {
	if err := h.generation.RefreshRoster(c.Request.Context(), c.Query("departmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Algorithms godoc
// @Summary List generation presets
// @Tags Generation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /generations/algorithms [get]
func (h *GenerationHandler) Algorithms(c *gin.Context) {
	out := make([]gin.H, 0, 3)
	for _, a := range []engine.Algorithm{engine.AlgorithmFast, engine.AlgorithmOptimized, engine.AlgorithmThorough} {
		p := engine.PresetFor(a)
		out = append(out, gin.H{"name": a, "maxAttempts": p.MaxAttempts, "intervalMs": p.Interval.Milliseconds()})
	}
	response.JSON(c, http.StatusOK, out)
}
