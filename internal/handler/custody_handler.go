package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridex/custody-api/internal/dto"
	"github.com/veridex/custody-api/internal/service"
	appErrors "github.com/veridex/custody-api/pkg/errors"
	"github.com/veridex/custody-api/pkg/response"
)

// CustodyHandler exposes storage and custody transfer endpoints.
type CustodyHandler struct {
	custody *service.CustodyService
}

// NewCustodyHandler constructs CustodyHandler.
func NewCustodyHandler(custody *service.CustodyService) *CustodyHandler {
	return &CustodyHandler{custody: custody}
}

// ListStorages godoc
// @Summary List active storages
// @Tags Custody
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /storages [get]
func (h *CustodyHandler) ListStorages(c *gin.Context) {
	storages, err := h.custody.ListStorages(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, storages, nil)
}

// StorageDetail godoc
// @Summary Get storage detail
// @Tags Custody
// @Produce json
// @Param id path string true "Storage ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /storages/{id} [get]
func (h *CustodyHandler) StorageDetail(c *gin.Context) {
	detail, err := h.custody.GetStorageDetail(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// StorageByCase godoc
// @Summary Get the storage container of a case
// @Tags Custody
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/storage [get]
func (h *CustodyHandler) StorageByCase(c *gin.Context) {
	storage, err := h.custody.StorageByCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, storage, nil)
}

// SetLock godoc
// @Summary Lock or unlock a case storage
// @Tags Custody
// @Accept json
// @Produce json
// @Param id path string true "Storage ID"
// @Param payload body object true "Lock payload"
// @Success 204 {object} response.Envelope
// @Router /storages/{id}/lock [put]
func (h *CustodyHandler) SetLock(c *gin.Context) {
	var payload struct {
		Locked *bool `json:"locked" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "locked flag required"))
		return
	}
	if err := h.custody.SetLock(c.Request.Context(), actorFromContext(c), c.Param("id"), *payload.Locked); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reassign godoc
// @Summary Reassign the custodian of a storage
// @Tags Custody
// @Accept json
// @Produce json
// @Param id path string true "Storage ID"
// @Param payload body dto.ReassignCustodianRequest true "Reassignment payload"
// @Success 200 {object} response.Envelope
// @Router /storages/{id}/custodian [put]
func (h *CustodyHandler) Reassign(c *gin.Context) {
	var req dto.ReassignCustodianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.custody.ReassignCustodian(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Dashboard godoc
// @Summary Custody dashboard counters
// @Tags Custody
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /custody/dashboard [get]
func (h *CustodyHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.custody.Dashboard(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// RequestTransfer godoc
// @Summary Request custody transfer for an evidence item
// @Tags Custody
// @Accept json
// @Produce json
// @Param id path string true "Evidence ID"
// @Param payload body dto.RequestTransferRequest true "Transfer payload"
// @Success 201 {object} response.Envelope
// @Router /evidence/{id}/transfers [post]
func (h *CustodyHandler) RequestTransfer(c *gin.Context) {
	var req dto.RequestTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	transfer, err := h.custody.RequestTransfer(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transfer)
}

// ReviewTransfer godoc
// @Summary Approve or reject a pending custody transfer
// @Tags Custody
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param payload body dto.ReviewTransferRequest true "Decision payload"
// @Success 204 {object} response.Envelope
// @Router /transfers/{id} [put]
func (h *CustodyHandler) ReviewTransfer(c *gin.Context) {
	var req dto.ReviewTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.custody.ReviewTransfer(c.Request.Context(), actorFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PendingTransfers godoc
// @Summary List pending custody transfers
// @Tags Custody
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /transfers/pending [get]
func (h *CustodyHandler) PendingTransfers(c *gin.Context) {
	transfers, err := h.custody.ListPendingTransfers(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transfers, nil)
}

// ChainOfCustody godoc
// @Summary Chain of custody for an evidence item
// @Description Chronological list of completed custody handovers
// @Tags Custody
// @Produce json
// @Param id path string true "Evidence ID"
// @Success 200 {object} response.Envelope
// @Router /evidence/{id}/chain [get]
func (h *CustodyHandler) ChainOfCustody(c *gin.Context) {
	chain, err := h.custody.ChainOfCustody(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, chain, nil)
}
