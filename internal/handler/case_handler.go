package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/service"
	appErrors "github.com/veridex/custody-api/pkg/errors"
	"github.com/veridex/custody-api/pkg/response"
)

// CaseHandler exposes case lifecycle endpoints.
type CaseHandler struct {
	cases *service.CaseService
}

// NewCaseHandler constructs CaseHandler.
func NewCaseHandler(cases *service.CaseService) *CaseHandler {
	return &CaseHandler{cases: cases}
}

// Create godoc
// @Summary Create case
// @Description Register a new case with encrypted sensitive fields
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body dto.CreateCaseRequest true "Case payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.cases.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// List godoc
// @Summary List cases visible to the caller
// @Tags Cases
// @Produce json
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	var filter dto.CaseListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	cases, pagination, err := h.cases.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, pagination)
}

// Get godoc
// @Summary Get case by ID or human identifier
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	detail, err := h.cases.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update case fields
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.UpdateCaseRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [put]
func (h *CaseHandler) Update(c *gin.Context) {
	var req dto.UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.cases.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ProposeAssignment godoc
// @Summary Propose investigators for a case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ProposeAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /cases/{id}/assignments [post]
func (h *CaseHandler) ProposeAssignment(c *gin.Context) {
	var req dto.ProposeAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.cases.ProposeAssignment(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ReviewAssignment godoc
// @Summary Approve or reject a pending assignment request
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Assignment request ID"
// @Param payload body dto.ClosureDecisionRequest true "Decision payload"
// @Success 204 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *CaseHandler) ReviewAssignment(c *gin.Context) {
	var req dto.ClosureDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cases.ReviewAssignment(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Decision == "approve"); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DirectAssign godoc
// @Summary Assign investigators directly, bypassing the approval queue
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.DirectAssignmentRequest true "Assignment payload"
// @Success 204 {object} response.Envelope
// @Router /cases/{id}/assignees [put]
func (h *CaseHandler) DirectAssign(c *gin.Context) {
	var req dto.DirectAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cases.DirectAssign(c.Request.Context(), actorFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RequestClosure godoc
// @Summary Request case closure
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ReasonRequest true "Closure reason"
// @Success 204 {object} response.Envelope
// @Router /cases/{id}/closure [post]
func (h *CaseHandler) RequestClosure(c *gin.Context) {
	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cases.RequestClosure(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DecideClosure godoc
// @Summary Approve or reject a pending closure request
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ClosureDecisionRequest true "Decision payload"
// @Success 204 {object} response.Envelope
// @Router /cases/{id}/closure [put]
func (h *CaseHandler) DecideClosure(c *gin.Context) {
	var req dto.ClosureDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cases.DecideClosure(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Decision == "approve"); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Archive godoc
// @Summary Archive a closed case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 204 {object} response.Envelope
// @Router /cases/{id}/archive [post]
func (h *CaseHandler) Archive(c *gin.Context) {
	if err := h.cases.Archive(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Withdraw godoc
// @Summary Withdraw a case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ReasonRequest true "Withdrawal reason"
// @Success 204 {object} response.Envelope
// @Router /cases/{id}/withdraw [post]
func (h *CaseHandler) Withdraw(c *gin.Context) {
	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cases.Withdraw(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Invalidate godoc
// @Summary Invalidate a case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ReasonRequest true "Invalidation reason"
// @Success 204 {object} response.Envelope
// @Router /cases/{id}/invalidate [post]
func (h *CaseHandler) Invalidate(c *gin.Context) {
	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.cases.Invalidate(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reopen godoc
// @Summary Reopen a closed case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 204 {object} response.Envelope
// @Router /cases/{id}/reopen [post]
func (h *CaseHandler) Reopen(c *gin.Context) {
	if err := h.cases.Reopen(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
