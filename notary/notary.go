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

// Package notary talks to the remote servers that sequence and settle transactions.
package notary

import (
	"context"

	"github.com/blnkfinance/recordlist/internal/codec"
	"github.com/blnkfinance/recordlist/model"
	"github.com/pkg/errors"
)

// TransactionKind names the request dispatched to a notary.
type TransactionKind string

const (
	KindDepositCheque      TransactionKind = "depositCheque"
	KindDepositCash        TransactionKind = "depositCash"
	KindConfirmPaymentPlan TransactionKind = "confirmPaymentPlan"
	KindProcessInbox       TransactionKind = "processInbox"
	KindCancelCheque       TransactionKind = "cancelCheque"
	KindCancelCronItem     TransactionKind = "cancelCronItem"
)

var (
	ErrNotaryUnknown   = errors.New("no endpoint configured for notary")
	ErrEmptyLedger     = errors.New("response ledger has no items")
	ErrLedgerFinalized = errors.New("response ledger already finalized")
	ErrDuplicateItem   = errors.New("transaction already staged in response ledger")
	ErrInvalidItem     = errors.New("box entry has no transaction id")
)

// Notary is the remote collaborator used by the record list.
type Notary interface {
	// ReserveTransactionNumbers makes sure at least count transaction numbers are available
	// to nymID on serverID.
	ReserveTransactionNumbers(ctx context.Context, nymID, serverID string, count int) error
	BuildAcceptResponse(ctx context.Context, serverID, nymID, accountID string) (*ResponseLedger, error)
	AppendAcceptItem(ledger *ResponseLedger, entry model.BoxEntry, accept bool) error
	FinalizeResponse(ledger *ResponseLedger) ([]byte, error)
	DispatchTransaction(ctx context.Context, kind TransactionKind, nymID, serverID, accountID string, payload []byte) ([]byte, error)
	InterpretReply(reply []byte) model.ReplyStatus
	// RefreshAccount downloads the current inbox and outbox of the account.
	RefreshAccount(ctx context.Context, nymID, serverID, accountID string) (*AccountSnapshot, error)
}

// AcceptItem is one staged inbox entry of a response ledger.
type AcceptItem struct {
	TransactionID int64  `cbor:"1,keyasint"`
	Type          string `cbor:"2,keyasint"`
	Amount        int64  `cbor:"3,keyasint"`
	Accept        bool   `cbor:"4,keyasint"`
}

// ResponseLedger collects the accept items answering one account inbox.
type ResponseLedger struct {
	ServerID  string       `cbor:"1,keyasint"`
	NymID     string       `cbor:"2,keyasint"`
	AccountID string       `cbor:"3,keyasint"`
	Items     []AcceptItem `cbor:"4,keyasint"`

	finalized bool
}

// NewResponseLedger starts an empty ledger for the given account.
func NewResponseLedger(serverID, nymID, accountID string) *ResponseLedger {
	return &ResponseLedger{ServerID: serverID, NymID: nymID, AccountID: accountID}
}

// Append stages entry. An entry may be staged only once.
func (l *ResponseLedger) Append(entry model.BoxEntry, accept bool) error {
	if l.finalized {
		return ErrLedgerFinalized
	}
	if entry.TransactionID == 0 {
		return ErrInvalidItem
	}
	for _, item := range l.Items {
		if item.TransactionID == entry.TransactionID {
			return errors.Wrapf(ErrDuplicateItem, "transaction %d", entry.TransactionID)
		}
	}
	l.Items = append(l.Items, AcceptItem{
		TransactionID: entry.TransactionID,
		Type:          string(entry.Type),
		Amount:        entry.DisplayAmount,
		Accept:        accept,
	})
	return nil
}

func (l *ResponseLedger) Len() int {
	return len(l.Items)
}

// Finalize seals the ledger and returns its serialized form.
func (l *ResponseLedger) Finalize() ([]byte, error) {
	if l.finalized {
		return nil, ErrLedgerFinalized
	}
	if len(l.Items) == 0 {
		return nil, ErrEmptyLedger
	}
	payload, err := codec.Marshal(l)
	if err != nil {
		return nil, errors.Wrap(err, "encoding response ledger")
	}
	l.finalized = true
	return payload, nil
}

// AccountSnapshot is the downloaded state of an asset account.
type AccountSnapshot struct {
	AccountID string           `json:"account_id"`
	Balance   int64            `json:"balance"`
	Inbox     []model.BoxEntry `json:"inbox"`
	Outbox    []model.BoxEntry `json:"outbox"`
}
