package api

import (
	"net/http"

	"github.com/blnkfinance/recordlist"
	"github.com/blnkfinance/recordlist/internal/apierror"
	"github.com/gin-gonic/gin"

	model2 "github.com/blnkfinance/recordlist/api/model"
)

func batchResponse(c *gin.Context, code int) {
	switch code {
	case recordlist.CodeSuccess:
		c.JSON(http.StatusOK, model2.BatchResult{Code: code, Message: "done"})
	case recordlist.CodeNoop:
		c.JSON(http.StatusOK, model2.BatchResult{Code: code, Message: "nothing to do"})
	default:
		c.JSON(http.StatusUnprocessableEntity, model2.BatchResult{Code: code, Message: "one or more items failed"})
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrBadRequest, "malformed request body", err.Error()))
		return false
	}
	return true
}

func (a *Api) AcceptInbox(c *gin.Context) {
	var req model2.AcceptInbox
	if !bindJSON(c, &req) {
		return
	}
	if err := req.ValidateAcceptInbox(); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid request", err.Error()))
		return
	}
	itemType, err := recordlist.ParseInboxItemType(req.Type)
	if err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	batchResponse(c, a.list.AcceptFromInbox(c.Request.Context(), c.Param("id"), req.Indices, itemType))
}

func (a *Api) AcceptPayments(c *gin.Context) {
	var req model2.AcceptPayments
	if !bindJSON(c, &req) {
		return
	}
	if err := req.ValidateAcceptPayments(); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid request", err.Error()))
		return
	}
	paymentType, err := recordlist.ParsePaymentType(req.Type)
	if err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	batchResponse(c, a.list.AcceptFromPaymentBox(c.Request.Context(), c.Param("id"), req.Indices, paymentType))
}

func (a *Api) CancelPayments(c *gin.Context) {
	var req model2.CancelPayments
	if !bindJSON(c, &req) {
		return
	}
	if err := req.ValidateCancelPayments(); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid request", err.Error()))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	batchResponse(c, a.list.CancelOutgoingPayments(c.Request.Context(), c.Param("id"), req.AccountID, req.Indices))
}

func (a *Api) DiscardPayments(c *gin.Context) {
	var req model2.DiscardPayments
	if !bindJSON(c, &req) {
		return
	}
	if err := req.ValidateDiscardPayments(); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid request", err.Error()))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	batchResponse(c, a.list.DiscardIncomingPayments(c.Request.Context(), req.ServerID, c.Param("id"), req.Indices))
}

func (a *Api) AutoAccept(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list.PerformAutoAccept(c.Request.Context())
	c.JSON(http.StatusOK, a.list.LastAutoAcceptReport())
}

func (a *Api) RefreshAccount(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.list.RefreshAccount(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrDownstream, "account refresh failed", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account refreshed"})
}
