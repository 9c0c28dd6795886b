package describe

import (
	"time"

	"github.com/blnkfinance/recordlist/model"
	"github.com/wacul/ptr"
)

// View is the display form of a record served by the API and printed by the CLI.
type View struct {
	Index          int        `json:"index"`
	Type           string     `json:"type"`
	Description    string     `json:"description"`
	Name           string     `json:"name"`
	Amount         string     `json:"amount,omitempty"`
	RawAmount      int64      `json:"raw_amount"`
	UnitTypeID     string     `json:"unit_type_id,omitempty"`
	Memo           string     `json:"memo,omitempty"`
	OwnerNymID     string     `json:"owner_nym_id"`
	AccountID      string     `json:"account_id,omitempty"`
	OtherNymID     string     `json:"other_nym_id,omitempty"`
	OtherAccountID string     `json:"other_account_id,omitempty"`
	ServerID       string     `json:"server_id"`
	Number         int64      `json:"number,omitempty"`
	Date           string     `json:"date"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidTo        *time.Time `json:"valid_to,omitempty"`
	Pending        bool       `json:"pending"`
	Outgoing       bool       `json:"outgoing"`
	Settled        bool       `json:"settled"`
	Expired        bool       `json:"expired"`
	Canceled       bool       `json:"canceled"`

	CanAccept      bool `json:"can_accept"`
	CanCancel      bool `json:"can_cancel"`
	CanDiscard     bool `json:"can_discard"`
	CanDelete      bool `json:"can_delete"`
	CanDiscardCash bool `json:"can_discard_cash"`
}

// View builds the display form of the record at index.
func (f *Formatter) View(index int, r *model.Record) View {
	v := View{
		Index:          index,
		Type:           r.RecordType().String(),
		Description:    f.Describe(r),
		Name:           r.Name(),
		Amount:         f.Amount(r),
		RawAmount:      r.AmountValue(),
		UnitTypeID:     r.UnitTypeID(),
		Memo:           r.Memo(),
		OwnerNymID:     r.OwnerNymID(),
		AccountID:      r.AccountID(),
		OtherNymID:     r.OtherNymID(),
		OtherAccountID: r.OtherAccountID(),
		ServerID:       r.TransportServerID(),
		Number:         r.TransNumForDisplay(),
		Date:           r.Date(),
		Pending:        r.IsPending(),
		Outgoing:       r.IsOutgoing(),
		Settled:        r.IsRecord(),
		Expired:        r.IsExpired(),
		Canceled:       r.IsCanceled(),
		CanAccept:      r.CanAcceptIncoming(),
		CanCancel:      r.CanCancelOutgoing(),
		CanDiscard:     r.CanDiscardIncoming(),
		CanDelete:      r.CanDeleteRecord(),
		CanDiscardCash: r.CanDiscardOutgoingCash(),
	}
	if !r.ValidFrom().IsZero() {
		v.ValidFrom = ptr.Time(r.ValidFrom().UTC())
	}
	if !r.ValidTo().IsZero() {
		v.ValidTo = ptr.Time(r.ValidTo().UTC())
	}
	return v
}
