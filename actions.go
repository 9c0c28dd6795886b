package recordlist

import (
	"context"
	"slices"

	"github.com/blnkfinance/recordlist/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// recordHandle dispatches the actions of records built by one Populate pass. It stops
// working once the list is cleared.
type recordHandle struct {
	list       *RecordList
	generation uint64
}

var _ model.RecordHandle = (*recordHandle)(nil)

func (h *recordHandle) stale() bool {
	return h.generation != h.list.generation
}

// locateEntry finds the record's entry in a freshly loaded box by transaction id. The
// stored box index is only trusted when it still points at the same id.
func locateEntry(box *model.Box, r *model.Record) int {
	id := r.EntryID()
	if id == 0 {
		return -1
	}
	if idx := int(r.BoxIndex()); idx >= 0 && idx < box.Size() && box.Entries[idx].TransactionID == id {
		return idx
	}
	return box.IndexOf(id)
}

func recordFields(r *model.Record) logrus.Fields {
	return logrus.Fields{
		"nym":         r.OwnerNymID(),
		"server":      r.TransportServerID(),
		"account":     r.AccountID(),
		"box":         r.Source().Kind,
		"transaction": r.EntryID(),
	}
}

func (h *recordHandle) AcceptIncomingInstrument(ctx context.Context, r *model.Record, intoAccountID string) model.ActionResult {
	ctx, span := tracer.Start(ctx, "Accepting incoming instrument")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction.id", r.EntryID()))

	const action = "accept_instrument"
	l := h.list
	switch {
	case h.stale(), r.IsSmartContract(), r.OwnerNymID() == "", r.TransportServerID() == "", r.EntryID() == 0:
		return observeAction(action, model.ResultPreconditionFailed)
	case r.Source().Kind != model.BoxPaymentInbox:
		return observeAction(action, model.ResultPreconditionFailed)
	}

	box, err := l.datasource.LoadBox(ctx, r.Source(), false)
	if err != nil {
		span.RecordError(err)
		return observeAction(action, model.ResultDownstreamFailed)
	}
	idx := locateEntry(box, r)
	if idx < 0 {
		logrus.WithFields(recordFields(r)).Warn("instrument is no longer in the payment inbox")
		return observeAction(action, model.ResultNotFound)
	}
	entry := box.Entries[idx]
	if !entry.HasInstrument() {
		return observeAction(action, model.ResultPreconditionFailed)
	}
	inst, err := l.decodeEntry(entry)
	if err != nil {
		span.RecordError(err)
		return observeAction(action, model.ResultPreconditionFailed)
	}
	if inst.Type == model.InstrumentSmartContract {
		logrus.WithFields(recordFields(r)).Warn("smart contracts are not accepted as payments")
		return observeAction(action, model.ResultPreconditionFailed)
	}

	var account *model.Account
	if intoAccountID != "" {
		account, err = l.datasource.GetAccount(ctx, intoAccountID)
	} else {
		account, err = l.findAcceptingAccount(ctx, r.OwnerNymID(), inst)
	}
	if err != nil {
		span.RecordError(err)
		logrus.WithFields(recordFields(r)).WithError(err).Warn("no account to accept the instrument into")
		return observeAction(action, model.ResultNotFound)
	}
	if account.NymID != r.OwnerNymID() {
		logrus.WithFields(recordFields(r)).WithField("into", account.AccountID).Warn("account belongs to another nym")
		return observeAction(action, model.ResultPreconditionFailed)
	}
	return observeAction(action, l.processPayment(ctx, r.Source(), idx, entry, inst, account))
}

func (h *recordHandle) AcceptIncomingFromInbox(ctx context.Context, r *model.Record) model.ActionResult {
	ctx, span := tracer.Start(ctx, "Accepting inbox item")
	defer span.End()

	const action = "accept_inbox_item"
	l := h.list
	if h.stale() || r.Source().Kind != model.BoxAccountInbox || r.AccountID() == "" || r.EntryID() == 0 {
		return observeAction(action, model.ResultPreconditionFailed)
	}
	account, err := l.datasource.GetAccount(ctx, r.AccountID())
	if err != nil {
		span.RecordError(err)
		return observeAction(action, model.ResultDownstreamFailed)
	}

	_, result := l.acceptInbox(ctx, account, func(box *model.Box) ([]int, error) {
		idx := locateEntry(box, r)
		if idx < 0 {
			return nil, errEntryGone
		}
		return []int{idx}, nil
	})
	return observeAction(action, result)
}

// CancelOutgoing rescans the outpayments box for the instrument's opening number, since
// that box is not guaranteed to keep its order between passes.
func (h *recordHandle) CancelOutgoing(ctx context.Context, r *model.Record, viaAccountID string) model.ActionResult {
	ctx, span := tracer.Start(ctx, "Cancelling outgoing instrument")
	defer span.End()

	const action = "cancel_outgoing"
	l := h.list
	nymID := r.OwnerNymID()
	if h.stale() || nymID == "" || r.TransactionNum() == 0 {
		return observeAction(action, model.ResultPreconditionFailed)
	}

	ref := model.NymBoxRef(nymID, model.BoxOutpayments)
	box, err := l.datasource.LoadBox(ctx, ref, false)
	if err != nil {
		span.RecordError(err)
		return observeAction(action, model.ResultDownstreamFailed)
	}
	idx := -1
	for i, entry := range box.Entries {
		inst, err := l.decodeEntry(entry)
		if err == nil && inst.OpeningNum == r.TransactionNum() {
			idx = i
			break
		}
	}
	if idx < 0 {
		logrus.WithFields(recordFields(r)).Warn("instrument is no longer in the outpayments box")
		return observeAction(action, model.ResultNotFound)
	}

	accountID := viaAccountID
	if r.IsCheque() && r.AccountID() != "" {
		accountID = r.AccountID()
	}
	return observeAction(action, l.cancelOutpayment(ctx, nymID, accountID, idx, box.Entries[idx]))
}

func (h *recordHandle) DiscardIncoming(ctx context.Context, r *model.Record) model.ActionResult {
	return h.removeEntry(ctx, "discard_incoming", r, model.BoxPaymentInbox)
}

func (h *recordHandle) DeleteRecord(ctx context.Context, r *model.Record) model.ActionResult {
	return h.removeEntry(ctx, "delete_record", r,
		model.BoxMailIn, model.BoxMailOut, model.BoxPaymentRecord, model.BoxExpired, model.BoxAccountRecord)
}

func (h *recordHandle) DiscardOutgoingCash(ctx context.Context, r *model.Record) model.ActionResult {
	return h.removeEntry(ctx, "discard_outgoing_cash", r, model.BoxOutpayments)
}

// removeEntry deletes the record's entry from its source box without moving it anywhere.
func (h *recordHandle) removeEntry(ctx context.Context, action string, r *model.Record, kinds ...model.BoxKind) model.ActionResult {
	ctx, span := tracer.Start(ctx, "Removing box entry")
	defer span.End()
	span.SetAttributes(attribute.String("action", action))

	l := h.list
	ref := r.Source()
	if h.stale() || !slices.Contains(kinds, ref.Kind) || r.EntryID() == 0 {
		return observeAction(action, model.ResultPreconditionFailed)
	}

	box, err := l.datasource.LoadBox(ctx, ref, false)
	if err != nil {
		span.RecordError(err)
		return observeAction(action, model.ResultDownstreamFailed)
	}
	idx := locateEntry(box, r)
	if idx < 0 {
		logrus.WithFields(recordFields(r)).Warn("entry is no longer in its box")
		return observeAction(action, model.ResultNotFound)
	}
	if err := l.datasource.RemoveBoxEntry(ctx, ref, idx, false); err != nil {
		span.RecordError(err)
		logrus.WithFields(recordFields(r)).WithError(err).Error("failed to remove box entry")
		return observeAction(action, model.ResultDownstreamFailed)
	}
	return observeAction(action, model.ResultSuccess)
}
