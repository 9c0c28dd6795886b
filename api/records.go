package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/blnkfinance/recordlist/describe"
	"github.com/blnkfinance/recordlist/internal/apierror"
	"github.com/blnkfinance/recordlist/model"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	model2 "github.com/blnkfinance/recordlist/api/model"
)

func (a *Api) GetRecords(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if populate, _ := strconv.ParseBool(c.Query("populate")); populate {
		if err := a.list.Populate(c.Request.Context()); err != nil {
			respondError(c, apierror.NewAPIError(apierror.ErrBadRequest, "could not populate record list", err.Error()))
			return
		}
	}

	records := a.list.Records()
	views := make([]describe.View, 0, len(records))
	for i, r := range records {
		views = append(views, a.formatter.View(i, r))
	}
	c.JSON(http.StatusOK, views)
}

func (a *Api) GetRecord(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	index, r, ok := a.record(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.formatter.View(index, r))
}

// record resolves the :index path parameter. It writes the error response itself.
func (a *Api) record(c *gin.Context) (int, *model.Record, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		respondError(c, apierror.NewAPIError(apierror.ErrInvalidInput, "index must be a non-negative integer", nil))
		return 0, nil, false
	}
	r, err := a.list.Record(index)
	if err != nil {
		respondError(c, apierror.NewAPIError(apierror.ErrNotFound, "no record at this index", err.Error()))
		return 0, nil, false
	}
	return index, r, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), err)
}

func (a *Api) respondAction(c *gin.Context, action string, result model.ActionResult) {
	trace.SpanFromContext(c.Request.Context()).SetAttributes(
		attribute.String("record.action", action),
		attribute.String("record.result", result.String()),
	)
	if err := apierror.FromActionResult(result, action); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": action + " succeeded"})
}

func (a *Api) AcceptRecord(c *gin.Context) {
	var req model2.AcceptRecord
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, r, ok := a.record(c)
	if !ok {
		return
	}
	a.respondAction(c, "accept", acceptRecord(c.Request.Context(), r, req.AccountID))
}

func acceptRecord(ctx context.Context, r *model.Record, accountID string) model.ActionResult {
	switch r.RecordType() {
	case model.RecordTypeInstrument:
		return r.AcceptIncomingInstrument(ctx, accountID)
	case model.RecordTypeTransfer:
		return r.AcceptIncomingTransfer(ctx)
	case model.RecordTypeReceipt:
		return r.AcceptIncomingReceipt(ctx)
	}
	return model.ResultPreconditionFailed
}

func (a *Api) CancelRecord(c *gin.Context) {
	var req model2.CancelRecord
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, r, ok := a.record(c)
	if !ok {
		return
	}
	a.respondAction(c, "cancel", r.CancelOutgoing(c.Request.Context(), req.AccountID))
}

func (a *Api) DiscardRecord(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, r, ok := a.record(c)
	if !ok {
		return
	}
	a.respondAction(c, "discard", r.DiscardIncoming(c.Request.Context()))
}

func (a *Api) DiscardOutgoingCash(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, r, ok := a.record(c)
	if !ok {
		return
	}
	a.respondAction(c, "discard cash", r.DiscardOutgoingCash(c.Request.Context()))
}

func (a *Api) DeleteRecord(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, r, ok := a.record(c)
	if !ok {
		return
	}
	a.respondAction(c, "delete", r.DeleteRecord(c.Request.Context()))
}
