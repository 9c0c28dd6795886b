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

import "time"

// BoxKind names one of the ledgers a wallet keeps per nym or per account.
type BoxKind string

const (
	BoxPaymentInbox  BoxKind = "payment_inbox"
	BoxOutpayments   BoxKind = "outpayments"
	BoxMailIn        BoxKind = "mail_in"
	BoxMailOut       BoxKind = "mail_out"
	BoxPaymentRecord BoxKind = "payment_record"
	BoxExpired       BoxKind = "expired"
	BoxAccountInbox  BoxKind = "account_inbox"
	BoxAccountOutbox BoxKind = "account_outbox"
	BoxAccountRecord BoxKind = "account_record"
)

// NymLevel reports whether the box is scoped to a nym only, with no server.
func (k BoxKind) NymLevel() bool {
	switch k {
	case BoxOutpayments, BoxMailIn, BoxMailOut:
		return true
	}
	return false
}

// AccountLevel reports whether the box belongs to an asset account.
func (k BoxKind) AccountLevel() bool {
	switch k {
	case BoxAccountInbox, BoxAccountOutbox, BoxAccountRecord:
		return true
	}
	return false
}

// Valid reports whether k is one of the known box kinds.
func (k BoxKind) Valid() bool {
	switch k {
	case BoxPaymentInbox, BoxOutpayments, BoxMailIn, BoxMailOut, BoxPaymentRecord, BoxExpired,
		BoxAccountInbox, BoxAccountOutbox, BoxAccountRecord:
		return true
	}
	return false
}

// BoxRef identifies a box. ServerID is empty for nym-level boxes and OwnerID is the
// account id for account-level boxes, the nym id otherwise.
type BoxRef struct {
	ServerID string  `json:"server_id"`
	NymID    string  `json:"nym_id"`
	OwnerID  string  `json:"owner_id"`
	Kind     BoxKind `json:"kind"`
}

func NymBoxRef(nymID string, kind BoxKind) BoxRef {
	return BoxRef{NymID: nymID, OwnerID: nymID, Kind: kind}
}

func ServerBoxRef(serverID, nymID string, kind BoxKind) BoxRef {
	return BoxRef{ServerID: serverID, NymID: nymID, OwnerID: nymID, Kind: kind}
}

func AccountBoxRef(account *Account, kind BoxKind) BoxRef {
	return BoxRef{ServerID: account.ServerID, NymID: account.NymID, OwnerID: account.AccountID, Kind: kind}
}

// TransactionType is the type string carried by a box entry.
type TransactionType string

const (
	TransactionPending             TransactionType = "pending"
	TransactionTransferReceipt     TransactionType = "transferReceipt"
	TransactionChequeReceipt       TransactionType = "chequeReceipt"
	TransactionVoucherReceipt      TransactionType = "voucherReceipt"
	TransactionMarketReceipt       TransactionType = "marketReceipt"
	TransactionPaymentReceipt      TransactionType = "paymentReceipt"
	TransactionFinalReceipt        TransactionType = "finalReceipt"
	TransactionBasketReceipt       TransactionType = "basketReceipt"
	TransactionInstrumentNotice    TransactionType = "instrumentNotice"
	TransactionInstrumentRejection TransactionType = "instrumentRejection"
	TransactionNotice              TransactionType = "notice"
	TransactionMessage             TransactionType = "message"
)

// BoxEntry is one transaction or message inside a box.
//
// Abbreviated entries carry only the summary fields; Contents is empty for them.
// SenderName and RecipientName are only filled when the box was loaded with verification.
type BoxEntry struct {
	TransactionID   int64           `json:"transaction_id"`
	ServerID        string          `json:"server_id,omitempty"`
	Type            TransactionType `json:"type"`
	Abbreviated     bool            `json:"abbreviated"`
	DateSigned      time.Time       `json:"date_signed"`
	DisplayAmount   int64           `json:"display_amount"`
	DisplayNum      int64           `json:"display_num,omitempty"`
	SenderNymID     string          `json:"sender_nym_id,omitempty"`
	SenderAcctID    string          `json:"sender_acct_id,omitempty"`
	RecipientNymID  string          `json:"recipient_nym_id,omitempty"`
	RecipientAcctID string          `json:"recipient_acct_id,omitempty"`
	SenderName      string          `json:"sender_name,omitempty"`
	RecipientName   string          `json:"recipient_name,omitempty"`
	Memo            string          `json:"memo,omitempty"`
	Canceled        bool            `json:"canceled,omitempty"`
	OriginType      OriginType      `json:"origin_type,omitempty"`
	ClosingNum      int64           `json:"closing_num,omitempty"`
	HasSuccess      bool            `json:"has_success,omitempty"`
	IsSuccess       bool            `json:"is_success,omitempty"`
	Contents        []byte          `json:"contents,omitempty"`
}

// IsPending reports whether the entry is an unaccepted transfer.
func (e BoxEntry) IsPending() bool {
	return e.Type == TransactionPending
}

// IsNotice reports whether the entry is a server notice about a cron item.
func (e BoxEntry) IsNotice() bool {
	return e.Type == TransactionNotice
}

// HasInstrument reports whether the entry carries decodable instrument contents.
func (e BoxEntry) HasInstrument() bool {
	return !e.Abbreviated && len(e.Contents) > 0
}

// Box is an ordered snapshot of a box.
type Box struct {
	Ref     BoxRef     `json:"ref"`
	Entries []BoxEntry `json:"entries"`
}

func (b *Box) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Entries)
}

// IndexOf returns the position of the entry with the given transaction id, or -1.
func (b *Box) IndexOf(transactionID int64) int {
	if b == nil || transactionID == 0 {
		return -1
	}
	for i := range b.Entries {
		if b.Entries[i].TransactionID == transactionID {
			return i
		}
	}
	return -1
}
