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

package recordlist

import (
	"context"
	"fmt"
	"time"

	redlock "github.com/blnkfinance/recordlist/internal/lock"
	"github.com/blnkfinance/recordlist/model"
	"github.com/blnkfinance/recordlist/notary"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	accountLockTTL  = 2 * time.Minute
	accountLockWait = 30 * time.Second
)

// InboxItemType filters which asset account inbox entries an accept covers.
type InboxItemType int

const (
	InboxAll InboxItemType = iota
	InboxTransfers
	InboxReceipts
)

// ParseInboxItemType maps "all", "transfers" and "receipts" to an InboxItemType.
func ParseInboxItemType(s string) (InboxItemType, error) {
	switch s {
	case "", "all":
		return InboxAll, nil
	case "transfers":
		return InboxTransfers, nil
	case "receipts":
		return InboxReceipts, nil
	}
	return InboxAll, fmt.Errorf("unknown inbox item type %q", s)
}

func (t InboxItemType) matches(entry model.BoxEntry) bool {
	switch t {
	case InboxTransfers:
		return entry.IsPending()
	case InboxReceipts:
		return !entry.IsPending()
	}
	return true
}

// inboxSelector picks the inbox positions to accept, in descending order.
type inboxSelector func(box *model.Box) ([]int, error)

// AcceptFromInbox accepts entries of an asset account inbox in one batched transaction.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - accountID string: The account whose inbox is processed.
// - indices string: "" or "all", or a comma-separated list of box positions.
// - itemType InboxItemType: Restricts the accept to transfers or receipts.
//
// Returns:
// - int: CodeSuccess when entries were accepted, CodeNoop when nothing matched,
// CodeFailure on a configuration error or a failed dispatch.
func (l *RecordList) AcceptFromInbox(ctx context.Context, accountID, indices string, itemType InboxItemType) int {
	ctx, span := tracer.Start(ctx, "Accepting from account inbox")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	if accountID == "" {
		return observeCode("accept_inbox", CodeFailure)
	}
	selection, err := ParseIndices(indices)
	if err != nil {
		span.RecordError(err)
		logrus.WithField("account", accountID).WithError(err).Error("invalid index list")
		return observeCode("accept_inbox", CodeFailure)
	}
	account, err := l.datasource.GetAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		logrus.WithField("account", accountID).WithError(err).Error("failed to load account")
		return observeCode("accept_inbox", CodeFailure)
	}

	staged, result := l.acceptInbox(ctx, account, func(box *model.Box) ([]int, error) {
		positions, err := selection.Resolve(box.Size())
		if err != nil {
			return nil, err
		}
		matching := positions[:0]
		for _, pos := range positions {
			if itemType.matches(box.Entries[pos]) {
				matching = append(matching, pos)
			}
		}
		return matching, nil
	})
	switch {
	case !result.Succeeded():
		return observeCode("accept_inbox", CodeFailure)
	case staged == 0:
		return observeCode("accept_inbox", CodeNoop)
	}
	return observeCode("accept_inbox", CodeSuccess)
}

// lockAccount takes the account lock when a lock client is configured.
func (l *RecordList) lockAccount(ctx context.Context, accountID string) (func(), error) {
	if l.locks == nil {
		return func() {}, nil
	}
	locker := redlock.NewLocker(l.locks, redlock.AccountKey(accountID), model.GenerateUUIDWithSuffix("lock"))
	if err := locker.WaitLock(ctx, accountLockTTL, accountLockWait); err != nil {
		return nil, err
	}
	return func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.WithField("account", accountID).WithError(err).Warn("failed to release account lock")
		}
	}, nil
}

// acceptInbox stages the selected inbox entries into one accept response, dispatches it
// and refreshes the account. It returns how many entries were accepted.
func (l *RecordList) acceptInbox(ctx context.Context, account *model.Account, selectFn inboxSelector) (int, model.ActionResult) {
	ctx, span := tracer.Start(ctx, "Accepting inbox items")
	defer span.End()

	fields := logrus.Fields{"account": account.AccountID, "nym": account.NymID, "server": account.ServerID}

	unlock, err := l.lockAccount(ctx, account.AccountID)
	if err != nil {
		span.RecordError(err)
		logrus.WithFields(fields).WithError(err).Error("could not lock account")
		return 0, model.ResultDownstreamFailed
	}
	defer unlock()

	ref := model.AccountBoxRef(account, model.BoxAccountInbox)
	box, err := l.datasource.LoadBox(ctx, ref, false)
	if err != nil {
		span.RecordError(err)
		logrus.WithFields(fields).WithError(err).Error("failed to load account inbox")
		return 0, model.ResultDownstreamFailed
	}

	positions, err := selectFn(box)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, errEntryGone) {
			return 0, model.ResultNotFound
		}
		logrus.WithFields(fields).WithError(err).Error("invalid inbox selection")
		return 0, model.ResultPreconditionFailed
	}
	if len(positions) == 0 {
		return 0, model.ResultSuccess
	}

	if err := l.notary.ReserveTransactionNumbers(ctx, account.NymID, account.ServerID, l.reserveCount); err != nil {
		span.RecordError(err)
		logrus.WithFields(fields).WithError(err).Error("failed to reserve transaction numbers")
		return 0, model.ResultDownstreamFailed
	}
	ledger, err := l.notary.BuildAcceptResponse(ctx, account.ServerID, account.NymID, account.AccountID)
	if err != nil {
		span.RecordError(err)
		logrus.WithFields(fields).WithError(err).Error("failed to start accept response")
		return 0, model.ResultDownstreamFailed
	}

	staged := make([]int, 0, len(positions))
	for _, pos := range positions {
		entry := box.Entries[pos]
		if err := l.notary.AppendAcceptItem(ledger, entry, true); err != nil {
			logrus.WithFields(fields).WithField("index", pos).WithError(err).Warn("could not stage inbox entry")
			continue
		}
		staged = append(staged, pos)
	}
	if len(staged) == 0 {
		logrus.WithFields(fields).Error("no inbox entry could be staged")
		return 0, model.ResultDownstreamFailed
	}

	if result := l.dispatchAccept(ctx, account, ledger); !result.Succeeded() {
		return 0, result
	}

	for _, pos := range staged {
		if err := l.datasource.RemoveBoxEntry(ctx, ref, pos, true); err != nil {
			logrus.WithFields(fields).WithField("index", pos).WithError(err).Warn("accepted entry could not be moved to the record box")
		}
	}
	logrus.WithFields(fields).WithField("accepted", len(staged)).Info("inbox items accepted")

	l.refreshAfterAccept(ctx, account)
	return len(staged), model.ResultSuccess
}

func (l *RecordList) dispatchAccept(ctx context.Context, account *model.Account, ledger *notary.ResponseLedger) model.ActionResult {
	payload, err := l.notary.FinalizeResponse(ledger)
	if err != nil {
		logrus.WithField("account", account.AccountID).WithError(err).Error("failed to finalize accept response")
		return model.ResultDownstreamFailed
	}
	return l.dispatch(ctx, notary.KindProcessInbox, account.NymID, account.ServerID, account.AccountID, payload)
}

// dispatch sends one transaction and interprets its reply.
func (l *RecordList) dispatch(ctx context.Context, kind notary.TransactionKind, nymID, serverID, accountID string, payload []byte) model.ActionResult {
	fields := logrus.Fields{"kind": kind, "nym": nymID, "server": serverID, "account": accountID}

	reply, err := l.notary.DispatchTransaction(ctx, kind, nymID, serverID, accountID, payload)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("transaction dispatch failed")
		return model.ResultDownstreamFailed
	}
	if status := l.notary.InterpretReply(reply); status != model.ReplySuccess {
		logrus.WithFields(fields).WithField("reply", status.String()).Error("notary did not accept the transaction")
		return model.ResultDownstreamFailed
	}
	return model.ResultSuccess
}
