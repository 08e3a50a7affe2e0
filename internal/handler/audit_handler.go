package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/models"
	"github.com/veridex/custody-api/internal/service"
	appErrors "github.com/veridex/custody-api/pkg/errors"
	"github.com/veridex/custody-api/pkg/response"
)

// AuditHandler exposes the audit trail and export endpoints.
type AuditHandler struct {
	audit   *service.AuditService
	exports *service.ExportJobService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *service.AuditService, exports *service.ExportJobService) *AuditHandler {
	return &AuditHandler{audit: audit, exports: exports}
}

// CaseTrail godoc
// @Summary Case audit trail
// @Tags Audit
// @Produce json
// @Param id path string true "Case ID or human identifier"
// @Param action query string false "Filter by action"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/audit [get]
func (h *AuditHandler) CaseTrail(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	logs, err := h.audit.CaseTrail(c.Request.Context(), actorFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Combined godoc
// @Summary Combined audit view for a case
// @Description Case, evidence and custody trails merged for auditors
// @Tags Audit
// @Produce json
// @Param id path string true "Case ID or human identifier"
// @Param evidenceId query string false "Scope custody logs to one evidence item"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/audit/combined [get]
func (h *AuditHandler) Combined(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	view, err := h.audit.Combined(c.Request.Context(), actorFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// EvidenceTrail godoc
// @Summary Evidence audit trail
// @Tags Audit
// @Produce json
// @Param id path string true "Evidence ID"
// @Param action query string false "Filter by action"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /evidence/{id}/audit [get]
func (h *AuditHandler) EvidenceTrail(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	logs, err := h.audit.EvidenceTrail(c.Request.Context(), actorFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// ExportEvidenceTrail godoc
// @Summary Download evidence audit trail as CSV
// @Tags Audit
// @Produce text/csv
// @Param id path string true "Evidence ID"
// @Success 200 {file} binary
// @Router /evidence/{id}/audit/export [get]
func (h *AuditHandler) ExportEvidenceTrail(c *gin.Context) {
	data, filename, err := h.audit.ExportEvidenceTrailCSV(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportCaseTrail godoc
// @Summary Download case audit trail as CSV
// @Tags Audit
// @Produce text/csv
// @Param id path string true "Case ID or human identifier"
// @Success 200 {file} binary
// @Router /cases/{id}/audit/export [get]
func (h *AuditHandler) ExportCaseTrail(c *gin.Context) {
	data, filename, err := h.audit.ExportCaseTrailCSV(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// Stats godoc
// @Summary Audit action counters
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /audit/stats [get]
func (h *AuditHandler) Stats(c *gin.Context) {
	stats, err := h.audit.Stats(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// CreateExport godoc
// @Summary Enqueue an asynchronous audit export
// @Tags Audit
// @Accept json
// @Produce json
// @Param payload body dto.CreateExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /audit/exports [post]
func (h *AuditHandler) CreateExport(c *gin.Context) {
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.exports.CreateJob(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Audit
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /audit/exports/{id} [get]
func (h *AuditHandler) ExportStatus(c *gin.Context) {
	job, err := h.exports.GetStatus(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// DownloadExport godoc
// @Summary Download a finished export by signed token
// @Description The token embeds the job, path and expiry; no session is required
// @Tags Audit
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 410 {object} response.Envelope
// @Router /audit/exports/download/{token} [get]
func (h *AuditHandler) DownloadExport(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "application/octet-stream"
	switch download.Format {
	case models.ExportFormatCSV:
		contentType = "text/csv"
	case models.ExportFormatPDF:
		contentType = "application/pdf"
	}

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}
