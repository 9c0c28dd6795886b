package recordlist

import (
	"context"
	"fmt"

	"github.com/blnkfinance/recordlist/model"
	"github.com/blnkfinance/recordlist/notary"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// PaymentType filters which payment inbox instruments AcceptFromPaymentBox deposits.
type PaymentType string

const (
	PaymentAny         PaymentType = "any"
	PaymentCheque      PaymentType = "cheque"
	PaymentVoucher     PaymentType = "voucher"
	PaymentInvoice     PaymentType = "invoice"
	PaymentPurse       PaymentType = "purse"
	PaymentPaymentPlan PaymentType = "paymentPlan"
)

// ParsePaymentType validates a payment type name. The empty string means any.
func ParsePaymentType(s string) (PaymentType, error) {
	switch t := PaymentType(s); t {
	case "":
		return PaymentAny, nil
	case PaymentAny, PaymentCheque, PaymentVoucher, PaymentInvoice, PaymentPurse, PaymentPaymentPlan:
		return t, nil
	}
	return "", fmt.Errorf("unknown payment type %q", s)
}

// Matches reports whether an instrument of type t is covered. Smart contracts never are.
func (p PaymentType) Matches(t model.InstrumentType) bool {
	switch p {
	case PaymentAny:
		return t != model.InstrumentSmartContract && t != model.InstrumentNotice
	case PaymentCheque:
		return t == model.InstrumentCheque
	case PaymentVoucher:
		return t == model.InstrumentVoucher
	case PaymentInvoice:
		return t == model.InstrumentInvoice
	case PaymentPurse:
		return t == model.InstrumentPurse
	case PaymentPaymentPlan:
		return t == model.InstrumentPaymentPlan
	}
	return false
}

// AcceptFromPaymentBox deposits or confirms instruments from the payment inbox of the
// account's nym on the account's server, into that account.
//
// It returns CodeSuccess when every selected instrument was processed, CodeNoop when the
// box was empty or nothing matched paymentType, and CodeFailure otherwise.
func (l *RecordList) AcceptFromPaymentBox(ctx context.Context, accountID, indices string, paymentType PaymentType) int {
	ctx, span := tracer.Start(ctx, "Accepting from payment inbox")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID), attribute.String("payment.type", string(paymentType)))

	if accountID == "" {
		return observeCode("accept_payments", CodeFailure)
	}
	selection, err := ParseIndices(indices)
	if err != nil {
		span.RecordError(err)
		return observeCode("accept_payments", CodeFailure)
	}
	account, err := l.datasource.GetAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		logrus.WithField("account", accountID).WithError(err).Error("failed to load account")
		return observeCode("accept_payments", CodeFailure)
	}

	ref := model.ServerBoxRef(account.ServerID, account.NymID, model.BoxPaymentInbox)
	box, err := l.datasource.LoadBox(ctx, ref, false)
	if err != nil {
		span.RecordError(err)
		return observeCode("accept_payments", CodeFailure)
	}
	positions, err := selection.Resolve(box.Size())
	if err != nil {
		span.RecordError(err)
		return observeCode("accept_payments", CodeFailure)
	}
	if len(positions) == 0 {
		return observeCode("accept_payments", CodeNoop)
	}

	processed, failed := 0, 0
	for _, pos := range positions {
		entry := box.Entries[pos]
		if !entry.HasInstrument() {
			skipEntry(ref, pos, "abbreviated entry cannot be deposited", nil)
			failed++
			continue
		}
		inst, err := l.decodeEntry(entry)
		if err != nil {
			skipEntry(ref, pos, "undecodable instrument", err)
			failed++
			continue
		}
		if !paymentType.Matches(inst.Type) {
			continue
		}
		processed++
		if !l.processPayment(ctx, ref, pos, entry, inst, account).Succeeded() {
			failed++
		}
	}

	switch {
	case failed > 0:
		return observeCode("accept_payments", CodeFailure)
	case processed == 0:
		return observeCode("accept_payments", CodeNoop)
	}
	return observeCode("accept_payments", CodeSuccess)
}

// processPayment settles one instrument from the payment inbox src against account and,
// on success, moves the entry to the payment record box. src is the inbox of the server
// that delivered the payment, which for routed payments is not the account's server.
func (l *RecordList) processPayment(ctx context.Context, src model.BoxRef, index int, entry model.BoxEntry, inst *model.Instrument, account *model.Account) model.ActionResult {
	fields := logrus.Fields{
		"account":  account.AccountID,
		"nym":      account.NymID,
		"server":   account.ServerID,
		"box":      src.ServerID,
		"index":    index,
		"document": inst.Type,
	}
	switch {
	case src.Kind != model.BoxPaymentInbox || src.NymID != account.NymID:
		logrus.WithFields(fields).Warn("accepting account does not belong to the payment inbox owner")
		return model.ResultPreconditionFailed
	case inst.NotaryID != account.ServerID || inst.InstrumentDefinitionID != account.UnitTypeID:
		logrus.WithFields(fields).Warn("instrument does not match the accepting account")
		return model.ResultPreconditionFailed
	}

	var result model.ActionResult
	switch {
	case inst.Type.IsChequeLike():
		result = l.depositCheque(ctx, account, entry)
	case inst.Type == model.InstrumentPurse:
		result = l.depositCash(ctx, account, entry)
	case inst.Type == model.InstrumentPaymentPlan:
		result = l.confirmPaymentPlan(ctx, account, entry)
	default:
		logrus.WithFields(fields).Warn("instrument type cannot be accepted from the payment inbox")
		return model.ResultPreconditionFailed
	}
	if !result.Succeeded() {
		return result
	}

	if err := l.moveSettledEntry(ctx, src, index, entry); err != nil {
		// The notary has already settled the instrument.
		logrus.WithFields(fields).WithError(err).Error("settled instrument could not be moved to the record box")
	}
	logrus.WithFields(fields).Info("payment accepted")
	return model.ResultSuccess
}

// moveSettledEntry moves entry from src to the record box. index is a hint; the entry is
// matched by transaction id in a fresh load of src.
func (l *RecordList) moveSettledEntry(ctx context.Context, src model.BoxRef, index int, entry model.BoxEntry) error {
	box, err := l.datasource.LoadBox(ctx, src, false)
	if err != nil {
		return err
	}
	if index < 0 || index >= box.Size() || box.Entries[index].TransactionID != entry.TransactionID {
		index = box.IndexOf(entry.TransactionID)
	}
	if index < 0 {
		return errEntryGone
	}
	return l.datasource.RemoveBoxEntry(ctx, src, index, true)
}

func (l *RecordList) depositCheque(ctx context.Context, account *model.Account, entry model.BoxEntry) model.ActionResult {
	return l.dispatch(ctx, notary.KindDepositCheque, account.NymID, account.ServerID, account.AccountID, entry.Contents)
}

func (l *RecordList) depositCash(ctx context.Context, account *model.Account, entry model.BoxEntry) model.ActionResult {
	return l.dispatch(ctx, notary.KindDepositCash, account.NymID, account.ServerID, account.AccountID, entry.Contents)
}

func (l *RecordList) confirmPaymentPlan(ctx context.Context, account *model.Account, entry model.BoxEntry) model.ActionResult {
	return l.dispatch(ctx, notary.KindConfirmPaymentPlan, account.NymID, account.ServerID, account.AccountID, entry.Contents)
}

// CancelOutgoingPayments cancels instruments in the nym's outpayments box. Cheques are
// cancelled against their own account; other instruments against accountID.
func (l *RecordList) CancelOutgoingPayments(ctx context.Context, nymID, accountID, indices string) int {
	ctx, span := tracer.Start(ctx, "Cancelling outgoing payments")
	defer span.End()
	span.SetAttributes(attribute.String("nym.id", nymID))

	if nymID == "" {
		return observeCode("cancel_outgoing", CodeFailure)
	}
	selection, err := ParseIndices(indices)
	if err != nil {
		span.RecordError(err)
		return observeCode("cancel_outgoing", CodeFailure)
	}

	ref := model.NymBoxRef(nymID, model.BoxOutpayments)
	box, err := l.datasource.LoadBox(ctx, ref, false)
	if err != nil {
		span.RecordError(err)
		return observeCode("cancel_outgoing", CodeFailure)
	}
	positions, err := selection.Resolve(box.Size())
	if err != nil {
		span.RecordError(err)
		return observeCode("cancel_outgoing", CodeFailure)
	}
	if len(positions) == 0 {
		return observeCode("cancel_outgoing", CodeNoop)
	}

	failed := 0
	for _, pos := range positions {
		if !l.cancelOutpayment(ctx, nymID, accountID, pos, box.Entries[pos]).Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return observeCode("cancel_outgoing", CodeFailure)
	}
	return observeCode("cancel_outgoing", CodeSuccess)
}

func (l *RecordList) cancelOutpayment(ctx context.Context, nymID, viaAccountID string, index int, entry model.BoxEntry) model.ActionResult {
	ref := model.NymBoxRef(nymID, model.BoxOutpayments)
	inst, err := l.decodeEntry(entry)
	if err != nil {
		skipEntry(ref, index, "undecodable instrument", err)
		return model.ResultPreconditionFailed
	}

	var kind notary.TransactionKind
	accountID := viaAccountID
	switch {
	case inst.Type == model.InstrumentCheque:
		kind = notary.KindCancelCheque
		if own := inst.AccountFor(nymID); own != "" {
			accountID = own
		}
	case inst.Type.IsChequeLike():
		kind = notary.KindCancelCheque
	case inst.Type.IsCronItem():
		kind = notary.KindCancelCronItem
	default:
		skipEntry(ref, index, fmt.Sprintf("%s cannot be cancelled", inst.Type), nil)
		return model.ResultPreconditionFailed
	}
	if accountID == "" {
		skipEntry(ref, index, "no account to cancel against", nil)
		return model.ResultPreconditionFailed
	}

	if result := l.dispatch(ctx, kind, nymID, inst.NotaryID, accountID, entry.Contents); !result.Succeeded() {
		return result
	}
	if err := l.datasource.RemoveBoxEntry(ctx, ref, index, true); err != nil {
		logrus.WithFields(logrus.Fields{"nym": nymID, "index": index}).WithError(err).Error("cancelled instrument could not be moved to the record box")
	}
	return model.ResultSuccess
}

// DiscardIncomingPayments removes entries from a payment inbox without settling them.
func (l *RecordList) DiscardIncomingPayments(ctx context.Context, serverID, nymID, indices string) int {
	ctx, span := tracer.Start(ctx, "Discarding incoming payments")
	defer span.End()

	if serverID == "" || nymID == "" {
		return observeCode("discard_incoming", CodeFailure)
	}
	selection, err := ParseIndices(indices)
	if err != nil {
		span.RecordError(err)
		return observeCode("discard_incoming", CodeFailure)
	}

	ref := model.ServerBoxRef(serverID, nymID, model.BoxPaymentInbox)
	box, err := l.datasource.LoadBox(ctx, ref, false)
	if err != nil {
		span.RecordError(err)
		return observeCode("discard_incoming", CodeFailure)
	}
	positions, err := selection.Resolve(box.Size())
	if err != nil {
		span.RecordError(err)
		return observeCode("discard_incoming", CodeFailure)
	}
	if len(positions) == 0 {
		return observeCode("discard_incoming", CodeNoop)
	}

	failed := 0
	for _, pos := range positions {
		if err := l.datasource.RemoveBoxEntry(ctx, ref, pos, false); err != nil {
			logrus.WithFields(logrus.Fields{"server": serverID, "nym": nymID, "index": pos}).WithError(err).Error("failed to discard payment")
			failed++
		}
	}
	if failed > 0 {
		return observeCode("discard_incoming", CodeFailure)
	}
	return observeCode("discard_incoming", CodeSuccess)
}
