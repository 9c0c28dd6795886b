package recordlist

import (
	"context"
	"testing"

	"github.com/blnkfinance/recordlist/model"
	"github.com/blnkfinance/recordlist/notary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelOutgoing_TransferNeverContactsCollaborators(t *testing.T) {
	f := newFixture(t)
	h := &recordHandle{list: f.list, generation: f.list.generation}
	r := model.NewRecord(h, model.RecordAttributes{
		RecordType: model.RecordTypeTransfer,
		OwnerNymID: nymAlice,
		AccountID:  acctAlice,
		IsPending:  true,
		IsOutgoing: true,
		Source:     model.AccountBoxRef(f.account(), model.BoxAccountOutbox),
	})
	r.SetTransactionNum(5)

	assert.Equal(t, model.ResultPreconditionFailed, r.CancelOutgoing(context.Background(), acctAlice))
	assert.Zero(t, f.ledger.calls)
	assert.Zero(t, f.notary.calls)
}

func TestCancelOutgoing_Cheque(t *testing.T) {
	f := newFixture(t)
	ref := model.NymBoxRef(nymAlice, model.BoxOutpayments)
	f.put(ref, instrumentEntry(t, 1, outgoingCheque(10, 100)), instrumentEntry(t, 2, outgoingCheque(20, 200)))

	require.NoError(t, f.list.Populate(context.Background()))
	var target *model.Record
	for _, r := range f.list.Records() {
		if r.TransactionNum() == 200 {
			target = r
		}
	}
	require.NotNil(t, target)

	// The box is reordered after aggregation.
	entries := f.box(ref)
	f.ledger.boxes[ref] = []model.BoxEntry{entries[1], entries[0]}

	assert.Equal(t, model.ResultSuccess, target.CancelOutgoing(context.Background(), ""))
	require.Len(t, f.notary.dispatched, 1)
	assert.Equal(t, dispatchCall{kind: notary.KindCancelCheque, nymID: nymAlice, serverID: notaryOne, accountID: acctAlice}, f.notary.dispatched[0])

	left := f.box(ref)
	require.Len(t, left, 1)
	assert.Equal(t, int64(1), left[0].TransactionID)
	assert.Len(t, f.box(model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentRecord)), 1)
}

func TestCancelOutgoing_EntryGone(t *testing.T) {
	f := newFixture(t)
	ref := model.NymBoxRef(nymAlice, model.BoxOutpayments)
	f.put(ref, instrumentEntry(t, 1, outgoingCheque(10, 100)))
	require.NoError(t, f.list.Populate(context.Background()))
	r := f.list.Records()[0]

	f.ledger.boxes[ref] = nil
	assert.Equal(t, model.ResultNotFound, r.CancelOutgoing(context.Background(), ""))
	assert.Empty(t, f.notary.dispatched)
}

func TestCancelOutgoing_PaymentPlanNeedsAccount(t *testing.T) {
	f := newFixture(t)
	plan := outgoingCheque(10, 300)
	plan.Type = model.InstrumentPaymentPlan
	plan.SenderAcctID = ""
	f.put(model.NymBoxRef(nymAlice, model.BoxOutpayments), instrumentEntry(t, 1, plan))
	require.NoError(t, f.list.Populate(context.Background()))
	require.Equal(t, 1, f.list.Size())
	r := f.list.Records()[0]

	assert.Equal(t, model.ResultPreconditionFailed, r.CancelOutgoing(context.Background(), ""))
	assert.Equal(t, model.ResultSuccess, r.CancelOutgoing(context.Background(), acctAlice))
	assert.Equal(t, notary.KindCancelCronItem, f.notary.dispatched[0].kind)
}

func TestAcceptIncomingInstrument(t *testing.T) {
	f := newFixture(t)
	ref := model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentInbox)
	f.put(ref, instrumentEntry(t, 1, incoming(model.InstrumentVoucher, 75, 9)))
	require.NoError(t, f.list.Populate(context.Background()))
	r := f.list.Records()[0]

	assert.Equal(t, model.ResultSuccess, r.AcceptIncomingInstrument(context.Background(), ""))
	assert.Equal(t, notary.KindDepositCheque, f.notary.dispatched[0].kind)
	assert.Empty(t, f.box(ref))

	assert.Equal(t, model.ResultNotFound, r.AcceptIncomingInstrument(context.Background(), ""))
}

func TestAcceptIncomingInstrument_WrongAccountUnit(t *testing.T) {
	f := newFixture(t)
	f.ledger.accounts["acct-eur"] = &model.Account{AccountID: "acct-eur", NymID: nymAlice, ServerID: notaryOne, UnitTypeID: unitEUR, Kind: model.AccountKindUser}
	ref := model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentInbox)
	f.put(ref, instrumentEntry(t, 1, incoming(model.InstrumentCheque, 75, 9)))
	require.NoError(t, f.list.Populate(context.Background()))

	assert.Equal(t, model.ResultPreconditionFailed, f.list.Records()[0].AcceptIncomingInstrument(context.Background(), "acct-eur"))
	assert.Len(t, f.box(ref), 1)
}

func TestAcceptIncomingInstrument_SmartContractRejected(t *testing.T) {
	f := newFixture(t)
	f.put(model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentInbox),
		instrumentEntry(t, 1, incoming(model.InstrumentSmartContract, 0, 9)))
	require.NoError(t, f.list.Populate(context.Background()))
	r := f.list.Records()[0]
	require.True(t, r.IsSmartContract())

	assert.Equal(t, model.ResultPreconditionFailed, r.AcceptIncomingInstrument(context.Background(), acctAlice))
	assert.Empty(t, f.notary.dispatched)
}

func TestAcceptIncomingTransferAndReceipt(t *testing.T) {
	f := newFixture(t)
	inbox := model.AccountBoxRef(f.account(), model.BoxAccountInbox)
	f.put(inbox, pendingTransfer(1, 10), chequeReceipt(2, -5))
	require.NoError(t, f.list.Populate(context.Background()))

	transfer, receipt := f.list.Records()[0], f.list.Records()[1]
	require.True(t, transfer.IsTransfer())
	require.True(t, receipt.IsReceipt())

	assert.Equal(t, model.ResultPreconditionFailed, transfer.AcceptIncomingReceipt(context.Background()))
	assert.Equal(t, model.ResultSuccess, receipt.AcceptIncomingReceipt(context.Background()))
	// Found by id after the receipt left the box.
	assert.Equal(t, model.ResultSuccess, transfer.AcceptIncomingTransfer(context.Background()))
	assert.Empty(t, f.box(inbox))
	assert.Equal(t, model.ResultNotFound, transfer.AcceptIncomingTransfer(context.Background()))
}

func TestDiscardIncoming(t *testing.T) {
	f := newFixture(t)
	ref := model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentInbox)
	f.put(ref, instrumentEntry(t, 1, incoming(model.InstrumentCheque, 10, 1)))
	require.NoError(t, f.list.Populate(context.Background()))

	assert.Equal(t, model.ResultSuccess, f.list.Records()[0].DiscardIncoming(context.Background()))
	assert.Empty(t, f.box(ref))
	assert.Empty(t, f.box(model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentRecord)))
	assert.Empty(t, f.notary.dispatched)
}

func TestDeleteRecord_ResolvesByIdAfterBoxMutation(t *testing.T) {
	f := newFixture(t)
	ref := model.NymBoxRef(nymAlice, model.BoxMailIn)
	f.put(ref,
		model.BoxEntry{TransactionID: 10, ServerID: notaryOne, Type: model.TransactionMessage, DateSigned: fixedNow},
		model.BoxEntry{TransactionID: 11, ServerID: notaryOne, Type: model.TransactionMessage, DateSigned: fixedNow},
	)
	require.NoError(t, f.list.Populate(context.Background()))
	second := f.list.Records()[1]
	require.Equal(t, int64(11), second.EntryID())

	f.ledger.boxes[ref] = append([]model.BoxEntry{{TransactionID: 12, ServerID: notaryOne, Type: model.TransactionMessage}}, f.box(ref)...)

	assert.Equal(t, model.ResultSuccess, second.DeleteRecord(context.Background()))
	var ids []int64
	for _, e := range f.box(ref) {
		ids = append(ids, e.TransactionID)
	}
	assert.Equal(t, []int64{12, 10}, ids)
}

func TestDiscardOutgoingCash(t *testing.T) {
	f := newFixture(t)
	ref := model.NymBoxRef(nymAlice, model.BoxOutpayments)
	cash := outgoingCheque(25, 4)
	cash.Type = model.InstrumentPurse
	f.put(ref, instrumentEntry(t, 1, cash))
	require.NoError(t, f.list.Populate(context.Background()))
	r := f.list.Records()[0]
	require.True(t, r.CanDiscardOutgoingCash())

	assert.Equal(t, model.ResultPreconditionFailed, r.CancelOutgoing(context.Background(), acctAlice))
	assert.Equal(t, model.ResultSuccess, r.DiscardOutgoingCash(context.Background()))
	assert.Empty(t, f.box(ref))
}

func TestActions_StaleAfterClearContents(t *testing.T) {
	f := newFixture(t)
	ref := model.NymBoxRef(nymAlice, model.BoxMailIn)
	f.put(ref, model.BoxEntry{TransactionID: 10, ServerID: notaryOne, Type: model.TransactionMessage, DateSigned: fixedNow})
	require.NoError(t, f.list.Populate(context.Background()))
	r := f.list.Records()[0]

	f.list.ClearContents()
	assert.Equal(t, 0, f.list.Size())
	assert.Equal(t, model.ResultPreconditionFailed, r.DeleteRecord(context.Background()))
	assert.Len(t, f.box(ref), 1)
}

func TestAcceptIncomingInstrument_RoutedPaymentLeavesOtherInboxAlone(t *testing.T) {
	f := newFixture(t)
	const transport = "notary-T"
	f.list.AddServer(transport)
	routed := model.ServerBoxRef(transport, nymAlice, model.BoxPaymentInbox)
	home := model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentInbox)
	f.put(routed, instrumentEntry(t, 12, incoming(model.InstrumentCheque, 500, 2)))
	f.put(home, instrumentEntry(t, 99, incoming(model.InstrumentInvoice, 10, 3)))
	require.NoError(t, f.list.Populate(context.Background()))

	var cheque *model.Record
	for _, r := range f.list.Records() {
		if r.EntryID() == 12 {
			cheque = r
		}
	}
	require.NotNil(t, cheque)
	require.Equal(t, routed, cheque.Source())

	assert.Equal(t, model.ResultSuccess, cheque.AcceptIncomingInstrument(context.Background(), acctAlice))
	require.Len(t, f.notary.dispatched, 1)
	assert.Equal(t, dispatchCall{kind: notary.KindDepositCheque, nymID: nymAlice, serverID: notaryOne, accountID: acctAlice}, f.notary.dispatched[0])
	assert.Empty(t, f.box(routed))
	require.Len(t, f.box(home), 1)
	assert.Equal(t, int64(99), f.box(home)[0].TransactionID)
}

func TestAcceptIncomingInstrument_AccountOfAnotherNym(t *testing.T) {
	f := newFixture(t)
	f.ledger.accounts[acctBob] = &model.Account{AccountID: acctBob, NymID: nymBob, ServerID: notaryOne, UnitTypeID: unitUSD, Kind: model.AccountKindUser}
	aliceInbox := model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentInbox)
	bobInbox := model.ServerBoxRef(notaryOne, nymBob, model.BoxPaymentInbox)
	f.put(aliceInbox, instrumentEntry(t, 12, incoming(model.InstrumentCheque, 500, 2)))
	f.put(bobInbox, model.BoxEntry{TransactionID: 50, Type: model.TransactionNotice, Abbreviated: true})
	require.NoError(t, f.list.Populate(context.Background()))
	require.Equal(t, 1, f.list.Size())

	assert.Equal(t, model.ResultPreconditionFailed, f.list.Records()[0].AcceptIncomingInstrument(context.Background(), acctBob))
	assert.Empty(t, f.notary.dispatched)
	assert.Len(t, f.box(aliceInbox), 1)
	assert.Len(t, f.box(bobInbox), 1)
}

func TestAcceptIncomingInstrument_DecodedSmartContractRejected(t *testing.T) {
	f := newFixture(t)
	ref := model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentInbox)
	f.put(ref, instrumentEntry(t, 1, incoming(model.InstrumentSmartContract, 0, 9)))

	h := &recordHandle{list: f.list, generation: f.list.generation}
	r := model.NewRecord(h, model.RecordAttributes{
		RecordType:        model.RecordTypeInstrument,
		TransportServerID: notaryOne,
		OwnerNymID:        nymAlice,
		IsPending:         true,
		Source:            ref,
	})
	r.SetEntryID(1)
	require.False(t, r.IsSmartContract())

	assert.Equal(t, model.ResultPreconditionFailed, h.AcceptIncomingInstrument(context.Background(), r, acctAlice))
	assert.Empty(t, f.notary.dispatched)
	assert.Len(t, f.box(ref), 1)
}
