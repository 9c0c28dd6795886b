package model

import "context"

// RecordHandle dispatches record actions to the list that built the record.
// Implementations re-resolve the target entry against a freshly loaded box.
type RecordHandle interface {
	AcceptIncomingInstrument(ctx context.Context, r *Record, intoAccountID string) ActionResult
	AcceptIncomingFromInbox(ctx context.Context, r *Record) ActionResult
	CancelOutgoing(ctx context.Context, r *Record, viaAccountID string) ActionResult
	DiscardIncoming(ctx context.Context, r *Record) ActionResult
	DeleteRecord(ctx context.Context, r *Record) ActionResult
	DiscardOutgoingCash(ctx context.Context, r *Record) ActionResult
}

// CanDeleteRecord reports whether the record may be removed from its box.
func (r *Record) CanDeleteRecord() bool {
	return r.IsMail() || (r.isRecord && !r.isPending)
}

// CanAcceptIncoming reports whether the record is an incoming item awaiting acceptance.
func (r *Record) CanAcceptIncoming() bool {
	return !r.isRecord &&
		!r.isExpired &&
		(r.isReceipt || !r.IsMail()) &&
		!(r.isPending && r.isOutgoing)
}

func (r *Record) CanDiscardIncoming() bool {
	return !r.isOutgoing &&
		r.isPending &&
		!r.IsMail() &&
		!r.isRecord &&
		!r.isReceipt &&
		r.recordType != RecordTypeTransfer
}

func (r *Record) CanCancelOutgoing() bool {
	return r.isOutgoing &&
		!r.isCanceled &&
		r.isPending &&
		!r.IsMail() &&
		!r.isRecord &&
		!r.isReceipt &&
		r.recordType != RecordTypeTransfer
}

func (r *Record) CanDiscardOutgoingCash() bool {
	return r.isOutgoing && r.isPending && r.isCash && r.boxIndex >= 0
}

// AcceptIncomingInstrument deposits or confirms an incoming instrument from the payment
// inbox. intoAccountID may be empty, in which case a matching account is looked up.
func (r *Record) AcceptIncomingInstrument(ctx context.Context, intoAccountID string) ActionResult {
	if r.handle == nil || !r.CanAcceptIncoming() || r.recordType != RecordTypeInstrument {
		return ResultPreconditionFailed
	}
	return r.handle.AcceptIncomingInstrument(ctx, r, intoAccountID)
}

// AcceptIncomingTransfer accepts a pending transfer from the asset account inbox.
func (r *Record) AcceptIncomingTransfer(ctx context.Context) ActionResult {
	if r.handle == nil || !r.CanAcceptIncoming() || r.recordType != RecordTypeTransfer {
		return ResultPreconditionFailed
	}
	return r.handle.AcceptIncomingFromInbox(ctx, r)
}

// AcceptIncomingReceipt accepts a receipt from the asset account inbox.
func (r *Record) AcceptIncomingReceipt(ctx context.Context) ActionResult {
	if r.handle == nil || !r.CanAcceptIncoming() || r.recordType != RecordTypeReceipt {
		return ResultPreconditionFailed
	}
	return r.handle.AcceptIncomingFromInbox(ctx, r)
}

// CancelOutgoing cancels an outgoing instrument. Cheques are cancelled against their own
// account; other instruments need viaAccountID.
func (r *Record) CancelOutgoing(ctx context.Context, viaAccountID string) ActionResult {
	if r.handle == nil || !r.CanCancelOutgoing() {
		return ResultPreconditionFailed
	}
	return r.handle.CancelOutgoing(ctx, r, viaAccountID)
}

func (r *Record) DiscardIncoming(ctx context.Context) ActionResult {
	if r.handle == nil || !r.CanDiscardIncoming() {
		return ResultPreconditionFailed
	}
	return r.handle.DiscardIncoming(ctx, r)
}

func (r *Record) DeleteRecord(ctx context.Context) ActionResult {
	if r.handle == nil || !r.CanDeleteRecord() {
		return ResultPreconditionFailed
	}
	return r.handle.DeleteRecord(ctx, r)
}

func (r *Record) DiscardOutgoingCash(ctx context.Context) ActionResult {
	if r.handle == nil || !r.CanDiscardOutgoingCash() {
		return ResultPreconditionFailed
	}
	return r.handle.DiscardOutgoingCash(ctx, r)
}
