package model

import (
	"errors"
	"fmt"
	"time"
)

// InstrumentType is the kind of financial payload carried in a box entry.
type InstrumentType string

const (
	InstrumentCheque        InstrumentType = "cheque"
	InstrumentVoucher       InstrumentType = "voucher"
	InstrumentInvoice       InstrumentType = "invoice"
	InstrumentPaymentPlan   InstrumentType = "paymentPlan"
	InstrumentSmartContract InstrumentType = "smartContract"
	InstrumentPurse         InstrumentType = "cash"
	InstrumentNotice        InstrumentType = "notice"
)

// Valid reports whether t is a known instrument type.
func (t InstrumentType) Valid() bool {
	switch t {
	case InstrumentCheque, InstrumentVoucher, InstrumentInvoice, InstrumentPaymentPlan,
		InstrumentSmartContract, InstrumentPurse, InstrumentNotice:
		return true
	}
	return false
}

// IsChequeLike reports whether the instrument is settled by a cheque deposit.
func (t InstrumentType) IsChequeLike() bool {
	return t == InstrumentCheque || t == InstrumentVoucher || t == InstrumentInvoice
}

// IsCronItem reports whether the instrument activates a recurring item on the notary.
func (t InstrumentType) IsCronItem() bool {
	return t == InstrumentPaymentPlan || t == InstrumentSmartContract
}

// Instrument is a decoded financial payload.
type Instrument struct {
	Type                   InstrumentType
	ValidFrom              time.Time
	ValidTo                time.Time
	Amount                 int64
	Memo                   string
	SenderNymID            string
	SenderAcctID           string
	RecipientNymID         string
	RecipientAcctID        string
	OpeningNum             int64
	DisplayNum             int64
	NotaryID               string
	InstrumentDefinitionID string
}

var (
	ErrUnknownInstrumentType = errors.New("unknown instrument type")
	ErrMissingNotary         = errors.New("instrument has no notary id")
	ErrMissingDefinition     = errors.New("instrument has no instrument definition id")
	ErrInvalidWindow         = errors.New("instrument validity window ends before it starts")
)

// Validate is the instrument's own validity self-check.
func (i *Instrument) Validate() error {
	if !i.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownInstrumentType, i.Type)
	}
	if i.Type != InstrumentNotice {
		if i.NotaryID == "" {
			return ErrMissingNotary
		}
		if i.InstrumentDefinitionID == "" {
			return ErrMissingDefinition
		}
	}
	if !i.ValidTo.IsZero() && i.ValidTo.Before(i.ValidFrom) {
		return ErrInvalidWindow
	}
	return nil
}

// AccountFor returns the account the given nym uses on this instrument.
func (i *Instrument) AccountFor(nymID string) string {
	if i.RecipientNymID != "" && i.RecipientNymID == nymID && i.SenderNymID != nymID {
		return i.RecipientAcctID
	}
	return i.SenderAcctID
}

// TransNumForDisplay returns the number both parties see for this instrument.
func (i *Instrument) TransNumForDisplay() int64 {
	if i.DisplayNum > 0 {
		return i.DisplayNum
	}
	return i.OpeningNum
}

// OutgoingAmount returns the amount as seen by the sender: cheques, vouchers and cash
// show a positive face value as money leaving, invoices show a negative face value
// as money expected to arrive.
func (i *Instrument) OutgoingAmount() int64 {
	switch i.Type {
	case InstrumentCheque, InstrumentVoucher, InstrumentPurse:
		if i.Amount > 0 {
			return -i.Amount
		}
	case InstrumentInvoice:
		if i.Amount < 0 {
			return -i.Amount
		}
	}
	return i.Amount
}
