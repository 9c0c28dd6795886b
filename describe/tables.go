package describe

import "github.com/blnkfinance/recordlist/model"

type sign int

const (
	anySign sign = iota
	negative
	positive
)

type flag int

const (
	either flag = iota
	yes
	no
)

func (f flag) matches(v bool) bool {
	switch f {
	case yes:
		return v
	case no:
		return !v
	}
	return true
}

// anyOrigin matches every origin, including none.
const anyOrigin model.OriginType = -1

// key is what the noun table is indexed by.
type key struct {
	recordType model.RecordType
	label      string
	origin     model.OriginType
	sign       sign
	canceled   bool
}

func keyOf(r *model.Record) key {
	k := key{
		recordType: r.RecordType(),
		label:      r.InstrumentTypeLabel(),
		origin:     r.OriginType(),
		sign:       positive,
		canceled:   r.IsCanceled(),
	}
	if r.AmountValue() < 0 {
		k.sign = negative
	}
	return k
}

type nounRow struct {
	recordType model.RecordType
	label      string // empty matches any label
	origin     model.OriginType
	sign       sign
	canceled   flag
	message    string
}

func (row nounRow) matches(k key) bool {
	if row.recordType != k.recordType {
		return false
	}
	if row.label != "" && row.label != k.label {
		return false
	}
	if row.origin != anyOrigin && row.origin != k.origin {
		return false
	}
	if row.sign != anySign && row.sign != k.sign {
		return false
	}
	return row.canceled.matches(k.canceled)
}

// nouns is checked top to bottom; the first matching row wins.
var nouns = []nounRow{
	{recordType: model.RecordTypeMail, origin: anyOrigin, message: "nounMessage"},

	{recordType: model.RecordTypeTransfer, origin: anyOrigin, canceled: yes, message: "nounTransferCanceled"},
	{recordType: model.RecordTypeTransfer, origin: anyOrigin, message: "nounTransfer"},

	{recordType: model.RecordTypeReceipt, label: string(model.TransactionFinalReceipt), origin: anyOrigin, message: "nounFinalReceipt"},
	{recordType: model.RecordTypeReceipt, label: string(model.TransactionMarketReceipt), origin: anyOrigin, message: "nounMarketReceipt"},
	{recordType: model.RecordTypeReceipt, label: string(model.TransactionPaymentReceipt), origin: model.OriginTypePaymentPlan, message: "nounPaymentPlanReceipt"},
	{recordType: model.RecordTypeReceipt, label: string(model.TransactionPaymentReceipt), origin: model.OriginTypeSmartContract, message: "nounSmartContractReceipt"},
	{recordType: model.RecordTypeReceipt, label: string(model.TransactionPaymentReceipt), origin: model.OriginTypePayDividend, message: "nounDividendReceipt"},
	{recordType: model.RecordTypeReceipt, label: string(model.TransactionChequeReceipt), origin: anyOrigin, sign: positive, message: "nounInvoiceReceipt"},
	{recordType: model.RecordTypeReceipt, label: string(model.TransactionChequeReceipt), origin: anyOrigin, sign: negative, message: "nounChequeReceipt"},
	{recordType: model.RecordTypeReceipt, label: string(model.TransactionVoucherReceipt), origin: anyOrigin, message: "nounVoucherReceipt"},
	{recordType: model.RecordTypeReceipt, label: string(model.TransactionTransferReceipt), origin: anyOrigin, message: "nounTransferReceipt"},
	{recordType: model.RecordTypeReceipt, origin: anyOrigin, message: "nounReceipt"},

	{recordType: model.RecordTypeInstrument, label: string(model.InstrumentCheque), origin: anyOrigin, message: "nounCheque"},
	{recordType: model.RecordTypeInstrument, label: string(model.InstrumentVoucher), origin: anyOrigin, message: "nounVoucher"},
	{recordType: model.RecordTypeInstrument, label: string(model.InstrumentInvoice), origin: anyOrigin, message: "nounInvoice"},
	{recordType: model.RecordTypeInstrument, label: string(model.InstrumentPurse), origin: anyOrigin, message: "nounCash"},
	{recordType: model.RecordTypeInstrument, label: string(model.InstrumentPaymentPlan), origin: anyOrigin, message: "nounPaymentPlan"},
	{recordType: model.RecordTypeInstrument, label: string(model.InstrumentSmartContract), origin: anyOrigin, message: "nounSmartContract"},
	{recordType: model.RecordTypeInstrument, origin: anyOrigin, message: "nounPayment"},

	{recordType: model.RecordTypeNotice, origin: model.OriginTypePaymentPlan, message: "nounPaymentPlanNotice"},
	{recordType: model.RecordTypeNotice, origin: model.OriginTypeSmartContract, message: "nounSmartContractNotice"},
	{recordType: model.RecordTypeNotice, origin: anyOrigin, message: "nounNotice"},

	{recordType: model.RecordTypeErrorState, origin: anyOrigin, message: "nounError"},
}

type directionRow struct {
	recordType model.RecordType
	outgoing   bool
	message    string
}

// Receipts and error states carry no direction prefix.
var directions = []directionRow{
	{recordType: model.RecordTypeMail, outgoing: true, message: "directionSent"},
	{recordType: model.RecordTypeMail, outgoing: false, message: "directionReceived"},
	{recordType: model.RecordTypeTransfer, outgoing: true, message: "directionOutgoing"},
	{recordType: model.RecordTypeTransfer, outgoing: false, message: "directionIncoming"},
	{recordType: model.RecordTypeInstrument, outgoing: true, message: "directionOutgoing"},
	{recordType: model.RecordTypeInstrument, outgoing: false, message: "directionIncoming"},
	{recordType: model.RecordTypeNotice, outgoing: true, message: "directionOutgoing"},
	{recordType: model.RecordTypeNotice, outgoing: false, message: "directionIncoming"},
}

type statusRow struct {
	canceled flag
	expired  flag
	failed   flag
	record   flag
	pending  flag
	message  string
}

func (row statusRow) matches(r *model.Record) bool {
	return row.canceled.matches(r.IsCanceled()) &&
		row.expired.matches(r.IsExpired()) &&
		row.failed.matches(r.HasSuccess() && !r.IsSuccess()) &&
		row.record.matches(r.IsRecord()) &&
		row.pending.matches(r.IsPending())
}

var statuses = []statusRow{
	{canceled: yes, message: "statusCanceled"},
	{expired: yes, message: "statusExpired"},
	{failed: yes, message: "statusFailed"},
	{record: yes, message: "statusCompleted"},
	{pending: yes, message: "statusPending"},
}
