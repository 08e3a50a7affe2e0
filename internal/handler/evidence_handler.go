package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/service"
	appErrors "github.com/veridex/custody-api/pkg/errors"
	"github.com/veridex/custody-api/pkg/response"
)

// EvidenceHandler exposes encrypted evidence endpoints.
type EvidenceHandler struct {
	evidence *service.EvidenceService
}

// NewEvidenceHandler constructs EvidenceHandler.
func NewEvidenceHandler(evidence *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence}
}

// Upload godoc
// @Summary Upload evidence file
// @Description Attach an encrypted evidence file to a case
// @Tags Evidence
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Case ID"
// @Param file formData file true "Evidence file"
// @Param description formData string true "Description"
// @Param mediaType formData string false "Declared media type"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /cases/{id}/evidence [post]
func (h *EvidenceHandler) Upload(c *gin.Context) {
	var req dto.UploadEvidenceRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form fields"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "evidence file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file"))
		return
	}

	meta, err := h.evidence.Upload(c.Request.Context(), actorFromContext(c), c.Param("id"), fileHeader.Filename, data, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, meta)
}

// ListByCase godoc
// @Summary List evidence for a case
// @Tags Evidence
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/evidence [get]
func (h *EvidenceHandler) ListByCase(c *gin.Context) {
	items, err := h.evidence.ListByCase(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get evidence metadata
// @Tags Evidence
// @Produce json
// @Param id path string true "Evidence ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /evidence/{id} [get]
func (h *EvidenceHandler) Get(c *gin.Context) {
	meta, err := h.evidence.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meta, nil)
}

// Download godoc
// @Summary Download decrypted evidence content
// @Tags Evidence
// @Produce application/octet-stream
// @Param id path string true "Evidence ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /evidence/{id}/download [get]
func (h *EvidenceHandler) Download(c *gin.Context) {
	ev, data, err := h.evidence.Download(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ev.OriginalFilename))
	c.Header("X-Content-SHA256", ev.SHA256)
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// UpdateDescription godoc
// @Summary Update evidence description
// @Tags Evidence
// @Accept json
// @Produce json
// @Param id path string true "Evidence ID"
// @Param payload body dto.UpdateEvidenceDescriptionRequest true "Description payload"
// @Success 200 {object} response.Envelope
// @Router /evidence/{id} [put]
func (h *EvidenceHandler) UpdateDescription(c *gin.Context) {
	var req dto.UpdateEvidenceDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	meta, err := h.evidence.UpdateDescription(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meta, nil)
}

// Invalidate godoc
// @Summary Mark evidence invalid
// @Tags Evidence
// @Accept json
// @Produce json
// @Param id path string true "Evidence ID"
// @Param payload body dto.ReasonRequest true "Invalidation reason"
// @Success 204 {object} response.Envelope
// @Router /evidence/{id}/invalidate [post]
func (h *EvidenceHandler) Invalidate(c *gin.Context) {
	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.evidence.Invalidate(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// VerifyCase godoc
// @Summary Integrity report for a whole case
// @Description Verify every evidence item of a case and aggregate the outcomes
// @Tags Evidence
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/verify [post]
func (h *EvidenceHandler) VerifyCase(c *gin.Context) {
	report, err := h.evidence.VerifyCase(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Verify godoc
// @Summary Verify evidence integrity
// @Description Re-hash the stored content and compare against the recorded fingerprint
// @Tags Evidence
// @Produce json
// @Param id path string true "Evidence ID"
// @Success 200 {object} response.Envelope
// @Router /evidence/{id}/verify [post]
func (h *EvidenceHandler) Verify(c *gin.Context) {
	result, err := h.evidence.Verify(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
