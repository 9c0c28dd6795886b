/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"strconv"
	"time"
)

// RecordType is the normalized category of a Record. It is fixed at construction.
type RecordType int

const (
	RecordTypeMail RecordType = iota
	RecordTypeTransfer
	RecordTypeReceipt
	RecordTypeInstrument
	RecordTypeNotice
	RecordTypeErrorState
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeMail:
		return "mail"
	case RecordTypeTransfer:
		return "transfer"
	case RecordTypeReceipt:
		return "receipt"
	case RecordTypeInstrument:
		return "instrument"
	case RecordTypeNotice:
		return "notice"
	}
	return "error"
}

// OriginType names the cron item a notice or receipt originated from.
type OriginType int

const (
	OriginTypeNone OriginType = iota
	OriginTypeMarketOffer
	OriginTypePaymentPlan
	OriginTypeSmartContract
	OriginTypePayDividend
	OriginTypeError
)

func (o OriginType) String() string {
	switch o {
	case OriginTypeNone:
		return "none"
	case OriginTypeMarketOffer:
		return "market_offer"
	case OriginTypePaymentPlan:
		return "payment_plan"
	case OriginTypeSmartContract:
		return "smart_contract"
	case OriginTypePayDividend:
		return "pay_dividend"
	}
	return "error"
}

// RecordAttributes are the construction-time values of a Record.
type RecordAttributes struct {
	RecordType          RecordType
	TransportServerID   string
	PaymentServerID     string
	UnitTypeID          string
	CurrencySymbol      string
	OwnerNymID          string
	AccountID           string
	Name                string
	Date                time.Time
	Amount              int64
	InstrumentTypeLabel string
	IsPending           bool
	IsOutgoing          bool
	IsRecord            bool
	IsReceipt           bool
	Source              BoxRef
}

// Record is one normalized item of wallet activity built from a single box entry.
//
// Structural facts are fixed by SetContents. Lifecycle facts are set by the aggregator
// while the record is being built. Actions never mutate the record; they dispatch
// through the handle of the list that built it.
type Record struct {
	handle RecordHandle
	now    func() time.Time

	recordType          RecordType
	transportServerID   string
	paymentServerID     string
	unitTypeID          string
	currencySymbol      string
	ownerNymID          string
	accountID           string
	otherNymID          string
	otherAccountID      string
	name                string
	date                string
	amount              string
	instrumentTypeLabel string
	memo                string
	contents            []byte

	transactionNum     int64
	transNumForDisplay int64
	closingNum         int64
	entryID            int64
	boxIndex           int32
	source             BoxRef

	validFrom time.Time
	validTo   time.Time

	isCash          bool
	isCheque        bool
	isVoucher       bool
	isInvoice       bool
	isPaymentPlan   bool
	isSmartContract bool
	isNotice        bool

	isPending      bool
	isOutgoing     bool
	isRecord       bool
	isReceipt      bool
	isExpired      bool
	isCanceled     bool
	isFinalReceipt bool
	hasSuccess     bool
	isSuccess      bool
	hasOriginType  bool
	originType     OriginType
}

// NewRecord builds a Record. handle may be nil, in which case every action fails its precondition.
func NewRecord(handle RecordHandle, attrs RecordAttributes) *Record {
	return &Record{
		handle:              handle,
		now:                 time.Now,
		recordType:          attrs.RecordType,
		transportServerID:   attrs.TransportServerID,
		paymentServerID:     attrs.PaymentServerID,
		unitTypeID:          attrs.UnitTypeID,
		currencySymbol:      attrs.CurrencySymbol,
		ownerNymID:          attrs.OwnerNymID,
		accountID:           attrs.AccountID,
		name:                attrs.Name,
		date:                formatSeconds(attrs.Date),
		amount:              strconv.FormatInt(attrs.Amount, 10),
		instrumentTypeLabel: attrs.InstrumentTypeLabel,
		isPending:           attrs.IsPending,
		isOutgoing:          attrs.IsOutgoing,
		isRecord:            attrs.IsRecord,
		isReceipt:           attrs.IsReceipt,
		isNotice:            attrs.RecordType == RecordTypeNotice,
		source:              attrs.Source,
		boxIndex:            -1,
	}
}

// SetClock replaces the time source used for expiry checks.
func (r *Record) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Record) RecordType() RecordType { return r.recordType }
func (r *Record) TransportServerID() string { return r.transportServerID }
func (r *Record) PaymentServerID() string { return r.paymentServerID }
func (r *Record) UnitTypeID() string { return r.unitTypeID }
func (r *Record) CurrencySymbol() string { return r.currencySymbol }
func (r *Record) OwnerNymID() string { return r.ownerNymID }
func (r *Record) AccountID() string { return r.accountID }
func (r *Record) OtherNymID() string { return r.otherNymID }
func (r *Record) OtherAccountID() string { return r.otherAccountID }
func (r *Record) Name() string { return r.name }
func (r *Record) Date() string { return r.date }
func (r *Record) Amount() string { return r.amount }
func (r *Record) InstrumentTypeLabel() string { return r.instrumentTypeLabel }
func (r *Record) Memo() string { return r.memo }
func (r *Record) Contents() []byte { return r.contents }
func (r *Record) TransactionNum() int64 { return r.transactionNum }
func (r *Record) EntryID() int64 { return r.entryID }
func (r *Record) BoxIndex() int32 { return r.boxIndex }
func (r *Record) Source() BoxRef { return r.source }
func (r *Record) ValidFrom() time.Time { return r.validFrom }
func (r *Record) ValidTo() time.Time { return r.validTo }

// AmountValue returns the signed amount as an integer.
func (r *Record) AmountValue() int64 {
	v, _ := strconv.ParseInt(r.amount, 10, 64)
	return v
}

// TransNumForDisplay returns the display number, falling back to the transaction number
// when no display number was set.
func (r *Record) TransNumForDisplay() int64 {
	if r.transNumForDisplay <= 0 {
		return r.transactionNum
	}
	return r.transNumForDisplay
}

// ClosingNum is only meaningful on final receipts; it is zero otherwise.
func (r *Record) ClosingNum() int64 {
	if !r.isFinalReceipt || r.closingNum <= 0 {
		return 0
	}
	return r.closingNum
}

func (r *Record) IsMail() bool { return r.recordType == RecordTypeMail }
func (r *Record) IsTransfer() bool { return r.recordType == RecordTypeTransfer }
func (r *Record) IsCash() bool { return r.isCash }
func (r *Record) IsCheque() bool { return r.isCheque }
func (r *Record) IsVoucher() bool { return r.isVoucher }
func (r *Record) IsInvoice() bool { return r.isInvoice }
func (r *Record) IsPaymentPlan() bool { return r.isPaymentPlan }
func (r *Record) IsSmartContract() bool { return r.isSmartContract }
func (r *Record) IsNotice() bool { return r.isNotice }
func (r *Record) IsPending() bool { return r.isPending }
func (r *Record) IsOutgoing() bool { return r.isOutgoing }
func (r *Record) IsRecord() bool { return r.isRecord }
func (r *Record) IsReceipt() bool { return r.isReceipt }
func (r *Record) IsExpired() bool { return r.isExpired }
func (r *Record) IsCanceled() bool { return r.isCanceled }
func (r *Record) IsFinalReceipt() bool { return r.isFinalReceipt }
func (r *Record) HasSuccess() bool { return r.hasSuccess }

// IsSuccess is only meaningful when HasSuccess is true.
func (r *Record) IsSuccess() bool { return r.hasSuccess && r.isSuccess }

func (r *Record) HasOriginType() bool { return r.hasOriginType }

// OriginType returns OriginTypeNone unless an origin was recorded.
func (r *Record) OriginType() OriginType {
	if !r.hasOriginType {
		return OriginTypeNone
	}
	return r.originType
}

func (r *Record) IsOriginTypeMarketOffer() bool {
	return r.hasOriginType && r.originType == OriginTypeMarketOffer
}

func (r *Record) IsOriginTypePaymentPlan() bool {
	return r.hasOriginType && r.originType == OriginTypePaymentPlan
}

func (r *Record) IsOriginTypeSmartContract() bool {
	return r.hasOriginType && r.originType == OriginTypeSmartContract
}

func (r *Record) IsOriginTypePayDividend() bool {
	return r.hasOriginType && r.originType == OriginTypePayDividend
}

func (r *Record) SetOtherNymID(id string) { r.otherNymID = id }
func (r *Record) SetOtherAccountID(id string) { r.otherAccountID = id }
func (r *Record) SetMemo(memo string) { r.memo = memo }
func (r *Record) SetBoxIndex(index int32) { r.boxIndex = index }
func (r *Record) SetEntryID(id int64) { r.entryID = id }
func (r *Record) SetTransactionNum(n int64) { r.transactionNum = n }
func (r *Record) SetTransNumForDisplay(n int64) {
	r.transNumForDisplay = n
}
func (r *Record) SetExpired() { r.isExpired = true }
func (r *Record) SetCanceled() { r.isCanceled = true }

// SetFinalReceipt marks the record as the final receipt of a cron item.
func (r *Record) SetFinalReceipt(closingNum int64) {
	r.isFinalReceipt = true
	r.closingNum = closingNum
}

func (r *Record) SetSuccess(success bool) {
	r.hasSuccess = true
	r.isSuccess = success
}

// SetOriginType records the origin. OriginTypeNone clears it.
func (r *Record) SetOriginType(origin OriginType) {
	r.originType = origin
	r.hasOriginType = origin != OriginTypeNone
}

// SetContents stores the opaque contents and derives the structural facts from the
// decoded instrument. inst may be nil for mail and abbreviated entries.
func (r *Record) SetContents(contents []byte, inst *Instrument) {
	r.contents = contents
	if inst == nil {
		return
	}
	switch inst.Type {
	case InstrumentCheque:
		r.isCheque = true
	case InstrumentVoucher:
		r.isVoucher = true
	case InstrumentInvoice:
		r.isInvoice = true
	case InstrumentPaymentPlan:
		r.isPaymentPlan = true
	case InstrumentSmartContract:
		r.isSmartContract = true
	case InstrumentPurse:
		r.isCash = true
	case InstrumentNotice:
		r.isNotice = true
	}
}

// SetDateRange stores the validity window. A pending item whose window has closed is
// marked expired; mail and settled records never expire this way.
func (r *Record) SetDateRange(validFrom, validTo time.Time) {
	r.validFrom = validFrom
	r.validTo = validTo
	if r.IsMail() || r.isRecord || validTo.IsZero() || validTo.Unix() <= 0 {
		return
	}
	if r.now().After(validTo) {
		r.SetExpired()
	}
}
