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
	"sort"
	"time"

	"github.com/blnkfinance/recordlist/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Populate rebuilds the record collection.
//
// It clears the current collection, even when the care-about sets turn out to be
// invalid, then runs the auto-accept engine and walks every configured nym (outpayments,
// mail, payment inbox, payment record and expired boxes) and every configured account
// (inbox, outbox, record box). Records are sorted by
// ValidFrom; records with equal ValidFrom keep the order they were built in.
//
// Parameters:
// - ctx context.Context: The context for the operation.
//
// Returns:
// - error: ErrNoNyms, ErrNoServers or ErrNoUnitTypes when the care-about sets cannot
// produce a view. Box load failures are logged and skipped.
func (l *RecordList) Populate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Populating record list")
	defer span.End()

	l.ClearContents()
	if err := l.validateCareSets(); err != nil {
		span.RecordError(err)
		populateTotal.WithLabelValues("invalid").Inc()
		return err
	}

	l.PerformAutoAccept(ctx)

	h := &recordHandle{list: l, generation: l.generation}
	for _, nymID := range l.nyms {
		l.populateNym(ctx, h, nymID)
	}
	for _, accountID := range l.accounts {
		l.populateAccount(ctx, h, accountID)
	}

	sort.SliceStable(l.records, func(i, j int) bool {
		return l.records[i].ValidFrom().Before(l.records[j].ValidFrom())
	})

	observeRecords(l.records)
	populateTotal.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int("records", len(l.records)))
	return nil
}

func (l *RecordList) validateCareSets() error {
	switch {
	case len(l.nyms) == 0:
		return ErrNoNyms
	case len(l.servers) == 0:
		return ErrNoServers
	case len(l.unitTypes) == 0:
		return ErrNoUnitTypes
	}
	return nil
}

func (l *RecordList) loadBox(ctx context.Context, ref model.BoxRef, verify bool) (*model.Box, bool) {
	box, err := l.datasource.LoadBox(ctx, ref, verify)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"server": ref.ServerID,
			"nym":    ref.NymID,
			"owner":  ref.OwnerID,
			"box":    ref.Kind,
		}).WithError(err).Warn("skipping box that could not be loaded")
		return nil, false
	}
	return box, true
}

// decodeEntry decodes and validates the instrument carried by entry.
func (l *RecordList) decodeEntry(entry model.BoxEntry) (*model.Instrument, error) {
	if l.decoder == nil {
		return nil, ErrNoDecoder
	}
	inst, err := l.decoder.Decode(entry.Contents)
	if err != nil {
		return nil, err
	}
	if err := inst.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidInstrument, err.Error())
	}
	return inst, nil
}

func skipEntry(ref model.BoxRef, index int, reason string, err error) {
	fields := logrus.Fields{
		"server": ref.ServerID,
		"nym":    ref.NymID,
		"owner":  ref.OwnerID,
		"box":    ref.Kind,
		"index":  index,
		"reason": reason,
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("skipping box entry")
		return
	}
	logrus.WithFields(fields).Debug("skipping box entry")
}

// counterparty renders a "To:"/"From:" name, preferring the display name over the id.
func (l *RecordList) counterparty(outgoing bool, name, id string) string {
	who := name
	if who == "" {
		who = id
	}
	if who == "" {
		return ""
	}
	if outgoing {
		return fmt.Sprintf(l.toLabel, who)
	}
	return fmt.Sprintf(l.fromLabel, who)
}

func (l *RecordList) push(r *model.Record) {
	l.records = append(l.records, r)
}

func (l *RecordList) newRecord(h model.RecordHandle, attrs model.RecordAttributes) *model.Record {
	r := model.NewRecord(h, attrs)
	r.SetClock(l.now)
	return r
}

func applyEntryFlags(r *model.Record, entry model.BoxEntry) {
	if entry.Canceled {
		r.SetCanceled()
	}
	if entry.OriginType != model.OriginTypeNone {
		r.SetOriginType(entry.OriginType)
	}
	if entry.HasSuccess {
		r.SetSuccess(entry.IsSuccess)
	}
	if entry.Type == model.TransactionFinalReceipt {
		r.SetFinalReceipt(entry.ClosingNum)
	}
}

func (l *RecordList) populateNym(ctx context.Context, h *recordHandle, nymID string) {
	l.populateOutpayments(ctx, h, nymID)
	if !l.ignoreMail {
		l.populateMail(ctx, h, nymID, model.BoxMailIn)
		l.populateMail(ctx, h, nymID, model.BoxMailOut)
	}
	for _, serverID := range l.servers {
		l.populatePaymentInbox(ctx, h, serverID, nymID)
		l.populatePaymentRecords(ctx, h, serverID, nymID, model.BoxPaymentRecord)
		l.populatePaymentRecords(ctx, h, serverID, nymID, model.BoxExpired)
	}
}

func (l *RecordList) populateOutpayments(ctx context.Context, h *recordHandle, nymID string) {
	ref := model.NymBoxRef(nymID, model.BoxOutpayments)
	box, ok := l.loadBox(ctx, ref, l.verifyLoads())
	if !ok {
		return
	}

	for i, entry := range box.Entries {
		inst, err := l.decodeEntry(entry)
		if err != nil {
			skipEntry(ref, i, "undecodable instrument", err)
			continue
		}
		symbol, ok := l.unitSymbol(inst.InstrumentDefinitionID)
		if !ok {
			skipEntry(ref, i, "unit type not displayed", nil)
			continue
		}
		accountID := inst.AccountFor(nymID)
		if accountID != "" && !l.caresAboutAccount(accountID) {
			skipEntry(ref, i, "account not displayed", nil)
			continue
		}
		if !l.caresAboutServer(inst.NotaryID) {
			skipEntry(ref, i, "server not displayed", nil)
			continue
		}

		transport := entry.ServerID
		if transport == "" {
			transport = inst.NotaryID
		}
		r := l.newRecord(h, model.RecordAttributes{
			RecordType:          model.RecordTypeInstrument,
			TransportServerID:   transport,
			PaymentServerID:     inst.NotaryID,
			UnitTypeID:          inst.InstrumentDefinitionID,
			CurrencySymbol:      symbol,
			OwnerNymID:          nymID,
			AccountID:           accountID,
			Name:                l.counterparty(true, entry.RecipientName, inst.RecipientNymID),
			Date:                entry.DateSigned,
			Amount:              inst.OutgoingAmount(),
			InstrumentTypeLabel: string(inst.Type),
			IsPending:           true,
			IsOutgoing:          true,
			Source:              ref,
		})
		r.SetContents(entry.Contents, inst)
		r.SetOtherNymID(inst.RecipientNymID)
		r.SetOtherAccountID(inst.RecipientAcctID)
		r.SetMemo(inst.Memo)
		r.SetBoxIndex(int32(i))
		r.SetEntryID(entry.TransactionID)
		r.SetTransactionNum(inst.OpeningNum)
		r.SetTransNumForDisplay(inst.DisplayNum)
		applyEntryFlags(r, entry)
		r.SetDateRange(inst.ValidFrom, inst.ValidTo)
		l.push(r)
	}
}

func (l *RecordList) populateMail(ctx context.Context, h *recordHandle, nymID string, kind model.BoxKind) {
	ref := model.NymBoxRef(nymID, kind)
	box, ok := l.loadBox(ctx, ref, l.verifyLoads())
	if !ok {
		return
	}

	outgoing := kind == model.BoxMailOut
	for i, entry := range box.Entries {
		if !l.caresAboutServer(entry.ServerID) {
			skipEntry(ref, i, "server not displayed", nil)
			continue
		}

		otherNym, otherName := entry.SenderNymID, entry.SenderName
		if outgoing {
			otherNym, otherName = entry.RecipientNymID, entry.RecipientName
		}
		r := l.newRecord(h, model.RecordAttributes{
			RecordType:        model.RecordTypeMail,
			TransportServerID: entry.ServerID,
			PaymentServerID:   entry.ServerID,
			OwnerNymID:        nymID,
			Name:              l.counterparty(outgoing, otherName, otherNym),
			Date:              entry.DateSigned,
			IsOutgoing:        outgoing,
			Source:            ref,
		})
		r.SetContents(entry.Contents, nil)
		r.SetOtherNymID(otherNym)
		r.SetMemo(entry.Memo)
		r.SetBoxIndex(int32(i))
		r.SetEntryID(entry.TransactionID)
		r.SetTransactionNum(entry.TransactionID)
		r.SetDateRange(entry.DateSigned, time.Time{})
		l.push(r)
	}
}

// incomingView is what the payment boxes need from either a decoded instrument or an
// abbreviated entry.
type incomingView struct {
	inst          *model.Instrument
	unitTypeID    string
	symbol        string
	paymentServer string
	amount        int64
	typeLabel     string
	memo          string
	validFrom     time.Time
	validTo       time.Time
	transNum      int64
	displayNum    int64
	senderNym     string
	senderAcct    string
	recipientNym  string
	recipientAcct string
}

// viewEntry decodes a payment box entry. ok is false when the entry must be skipped.
func (l *RecordList) viewEntry(ref model.BoxRef, index int, entry model.BoxEntry) (incomingView, bool) {
	if !entry.HasInstrument() {
		return incomingView{
			paymentServer: ref.ServerID,
			amount:        entry.DisplayAmount,
			typeLabel:     string(entry.Type),
			memo:          entry.Memo,
			validFrom:     entry.DateSigned,
			transNum:      entry.TransactionID,
			displayNum:    entry.DisplayNum,
			senderNym:     entry.SenderNymID,
			senderAcct:    entry.SenderAcctID,
			recipientNym:  entry.RecipientNymID,
			recipientAcct: entry.RecipientAcctID,
		}, true
	}

	inst, err := l.decodeEntry(entry)
	if err != nil {
		skipEntry(ref, index, "undecodable instrument", err)
		return incomingView{}, false
	}
	symbol := ""
	if inst.InstrumentDefinitionID != "" {
		var ok bool
		symbol, ok = l.unitSymbol(inst.InstrumentDefinitionID)
		if !ok {
			skipEntry(ref, index, "unit type not displayed", nil)
			return incomingView{}, false
		}
	}
	server := inst.NotaryID
	if server == "" {
		server = ref.ServerID
	}
	return incomingView{
		inst:          inst,
		unitTypeID:    inst.InstrumentDefinitionID,
		symbol:        symbol,
		paymentServer: server,
		amount:        inst.Amount,
		typeLabel:     string(inst.Type),
		memo:          inst.Memo,
		validFrom:     inst.ValidFrom,
		validTo:       inst.ValidTo,
		transNum:      inst.OpeningNum,
		displayNum:    inst.DisplayNum,
		senderNym:     inst.SenderNymID,
		senderAcct:    inst.SenderAcctID,
		recipientNym:  inst.RecipientNymID,
		recipientAcct: inst.RecipientAcctID,
	}, true
}

func paymentRecordType(entry model.BoxEntry, inst *model.Instrument) model.RecordType {
	if entry.IsNotice() || (inst != nil && inst.Type == model.InstrumentNotice) {
		return model.RecordTypeNotice
	}
	return model.RecordTypeInstrument
}

func (l *RecordList) populatePaymentInbox(ctx context.Context, h *recordHandle, serverID, nymID string) {
	ref := model.ServerBoxRef(serverID, nymID, model.BoxPaymentInbox)
	box, ok := l.loadBox(ctx, ref, l.verifyLoads())
	if !ok {
		return
	}

	for i, entry := range box.Entries {
		v, ok := l.viewEntry(ref, i, entry)
		if !ok {
			continue
		}
		r := l.newRecord(h, model.RecordAttributes{
			RecordType:          paymentRecordType(entry, v.inst),
			TransportServerID:   serverID,
			PaymentServerID:     v.paymentServer,
			UnitTypeID:          v.unitTypeID,
			CurrencySymbol:      v.symbol,
			OwnerNymID:          nymID,
			Name:                l.counterparty(false, entry.SenderName, v.senderNym),
			Date:                entry.DateSigned,
			Amount:              v.amount,
			InstrumentTypeLabel: v.typeLabel,
			IsPending:           true,
			Source:              ref,
		})
		r.SetContents(entry.Contents, v.inst)
		r.SetOtherNymID(v.senderNym)
		r.SetOtherAccountID(v.senderAcct)
		r.SetMemo(v.memo)
		r.SetBoxIndex(int32(i))
		r.SetEntryID(entry.TransactionID)
		r.SetTransactionNum(v.transNum)
		r.SetTransNumForDisplay(v.displayNum)
		applyEntryFlags(r, entry)
		r.SetDateRange(v.validFrom, v.validTo)
		l.push(r)
	}
}

func (l *RecordList) populatePaymentRecords(ctx context.Context, h *recordHandle, serverID, nymID string, kind model.BoxKind) {
	ref := model.ServerBoxRef(serverID, nymID, kind)
	box, ok := l.loadBox(ctx, ref, l.verifyLoads())
	if !ok {
		return
	}

	for i, entry := range box.Entries {
		v, ok := l.viewEntry(ref, i, entry)
		if !ok {
			continue
		}
		outgoing := paymentRecordOutgoing(nymID, entry, v.inst)

		amount := v.amount
		if outgoing && v.inst != nil {
			amount = v.inst.OutgoingAmount()
		}
		accountID := v.recipientAcct
		otherNym, otherAcct, otherName := v.senderNym, v.senderAcct, entry.SenderName
		if outgoing {
			accountID = v.senderAcct
			otherNym, otherAcct, otherName = v.recipientNym, v.recipientAcct, entry.RecipientName
		}

		r := l.newRecord(h, model.RecordAttributes{
			RecordType:          paymentRecordType(entry, v.inst),
			TransportServerID:   serverID,
			PaymentServerID:     v.paymentServer,
			UnitTypeID:          v.unitTypeID,
			CurrencySymbol:      v.symbol,
			OwnerNymID:          nymID,
			AccountID:           accountID,
			Name:                l.counterparty(outgoing, otherName, otherNym),
			Date:                entry.DateSigned,
			Amount:              amount,
			InstrumentTypeLabel: v.typeLabel,
			IsOutgoing:          outgoing,
			IsRecord:            true,
			Source:              ref,
		})
		r.SetContents(entry.Contents, v.inst)
		r.SetOtherNymID(otherNym)
		r.SetOtherAccountID(otherAcct)
		r.SetMemo(v.memo)
		r.SetBoxIndex(int32(i))
		r.SetEntryID(entry.TransactionID)
		r.SetTransactionNum(v.transNum)
		r.SetTransNumForDisplay(v.displayNum)
		applyEntryFlags(r, entry)
		if kind == model.BoxExpired {
			r.SetExpired()
		}
		r.SetDateRange(v.validFrom, v.validTo)
		l.push(r)
	}
}

func (l *RecordList) populateAccount(ctx context.Context, h *recordHandle, accountID string) {
	account, err := l.datasource.GetAccount(ctx, accountID)
	if err != nil {
		logrus.WithField("account", accountID).WithError(err).Warn("skipping account that could not be loaded")
		return
	}
	if !l.caresAboutServer(account.ServerID) {
		logrus.WithFields(logrus.Fields{"account": accountID, "server": account.ServerID}).Debug("skipping account on a server not displayed")
		return
	}
	symbol, ok := l.unitSymbol(account.UnitTypeID)
	if !ok {
		logrus.WithFields(logrus.Fields{"account": accountID, "unit_type": account.UnitTypeID}).Debug("skipping account with a unit type not displayed")
		return
	}

	l.populateAccountInbox(ctx, h, account, symbol)
	l.populateAccountOutbox(ctx, h, account, symbol)
	l.populateAccountRecords(ctx, h, account, symbol)
}

func accountAttributes(account *model.Account, symbol string, ref model.BoxRef) model.RecordAttributes {
	return model.RecordAttributes{
		TransportServerID: account.ServerID,
		PaymentServerID:   account.ServerID,
		UnitTypeID:        account.UnitTypeID,
		CurrencySymbol:    symbol,
		OwnerNymID:        account.NymID,
		AccountID:         account.AccountID,
		Source:            ref,
	}
}

func (l *RecordList) finishAccountRecord(r *model.Record, index int, entry model.BoxEntry, outgoing bool) {
	if outgoing {
		r.SetOtherNymID(entry.RecipientNymID)
		r.SetOtherAccountID(entry.RecipientAcctID)
	} else {
		r.SetOtherNymID(entry.SenderNymID)
		r.SetOtherAccountID(entry.SenderAcctID)
	}
	r.SetContents(entry.Contents, nil)
	r.SetMemo(entry.Memo)
	r.SetBoxIndex(int32(index))
	r.SetEntryID(entry.TransactionID)
	r.SetTransactionNum(entry.TransactionID)
	r.SetTransNumForDisplay(entry.DisplayNum)
	applyEntryFlags(r, entry)
	r.SetDateRange(entry.DateSigned, time.Time{})
	l.push(r)
}

func (l *RecordList) counterpartyOf(entry model.BoxEntry, outgoing bool) string {
	if outgoing {
		return l.counterparty(true, entry.RecipientName, entry.RecipientNymID)
	}
	return l.counterparty(false, entry.SenderName, entry.SenderNymID)
}

// populateAccountInbox reads direction from the sign of the amount: a receipt for money
// that already left the account carries a negative amount.
func (l *RecordList) populateAccountInbox(ctx context.Context, h *recordHandle, account *model.Account, symbol string) {
	ref := model.AccountBoxRef(account, model.BoxAccountInbox)
	box, ok := l.loadBox(ctx, ref, l.verifyLoads())
	if !ok {
		return
	}

	for i, entry := range box.Entries {
		pending := entry.IsPending()
		outgoing := entry.DisplayAmount < 0

		attrs := accountAttributes(account, symbol, ref)
		attrs.RecordType = model.RecordTypeReceipt
		if pending {
			attrs.RecordType = model.RecordTypeTransfer
		}
		attrs.Name = l.counterpartyOf(entry, outgoing)
		attrs.Date = entry.DateSigned
		attrs.Amount = entry.DisplayAmount
		attrs.InstrumentTypeLabel = string(entry.Type)
		attrs.IsPending = pending
		attrs.IsReceipt = !pending
		attrs.IsOutgoing = outgoing

		l.finishAccountRecord(l.newRecord(h, attrs), i, entry, outgoing)
	}
}

func (l *RecordList) populateAccountOutbox(ctx context.Context, h *recordHandle, account *model.Account, symbol string) {
	ref := model.AccountBoxRef(account, model.BoxAccountOutbox)
	box, ok := l.loadBox(ctx, ref, l.verifyLoads())
	if !ok {
		return
	}

	for i, entry := range box.Entries {
		attrs := accountAttributes(account, symbol, ref)
		attrs.RecordType = model.RecordTypeTransfer
		attrs.Name = l.counterpartyOf(entry, true)
		attrs.Date = entry.DateSigned
		attrs.Amount = negative(entry.DisplayAmount)
		attrs.InstrumentTypeLabel = string(entry.Type)
		attrs.IsPending = true
		attrs.IsOutgoing = true

		l.finishAccountRecord(l.newRecord(h, attrs), i, entry, true)
	}
}

func (l *RecordList) populateAccountRecords(ctx context.Context, h *recordHandle, account *model.Account, symbol string) {
	ref := model.AccountBoxRef(account, model.BoxAccountRecord)
	box, ok := l.loadBox(ctx, ref, l.verifyLoads())
	if !ok {
		return
	}

	for i, entry := range box.Entries {
		outgoing := accountRecordOutgoing(account, entry)
		amount := entry.DisplayAmount
		if outgoing {
			amount = negative(amount)
		}

		attrs := accountAttributes(account, symbol, ref)
		attrs.RecordType = model.RecordTypeReceipt
		if entry.IsPending() {
			attrs.RecordType = model.RecordTypeTransfer
		}
		attrs.Name = l.counterpartyOf(entry, outgoing)
		attrs.Date = entry.DateSigned
		attrs.Amount = amount
		attrs.InstrumentTypeLabel = string(entry.Type)
		attrs.IsRecord = true
		attrs.IsReceipt = !entry.IsPending()
		attrs.IsOutgoing = outgoing

		l.finishAccountRecord(l.newRecord(h, attrs), i, entry, outgoing)
	}
}

func negative(amount int64) int64 {
	if amount > 0 {
		return -amount
	}
	return amount
}
