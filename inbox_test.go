package recordlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redlock "github.com/blnkfinance/recordlist/internal/lock"
	"github.com/blnkfinance/recordlist/model"
	"github.com/blnkfinance/recordlist/notary"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTransfer(id, amount int64) model.BoxEntry {
	return model.BoxEntry{
		TransactionID:  id,
		Type:           model.TransactionPending,
		DateSigned:     fixedNow,
		DisplayAmount:  amount,
		SenderNymID:    nymBob,
		SenderAcctID:   acctBob,
		RecipientNymID: nymAlice,
	}
}

func chequeReceipt(id, amount int64) model.BoxEntry {
	return model.BoxEntry{
		TransactionID: id,
		Type:          model.TransactionChequeReceipt,
		DateSigned:    fixedNow,
		DisplayAmount: amount,
		SenderNymID:   nymAlice,
		SenderAcctID:  acctAlice,
	}
}

func TestAcceptFromInbox_TransferDisappearsAfterAccept(t *testing.T) {
	f := newFixture(t)
	inbox := model.AccountBoxRef(f.account(), model.BoxAccountInbox)
	transfer := pendingTransfer(7, 200)
	transfer.RecipientAcctID = acctAlice
	f.put(inbox, transfer)

	require.NoError(t, f.list.Populate(context.Background()))
	require.Equal(t, 1, f.list.Size())
	r := f.list.Records()[0]
	assert.Equal(t, model.RecordTypeTransfer, r.RecordType())
	assert.True(t, r.IsPending())
	assert.False(t, r.IsOutgoing())
	assert.GreaterOrEqual(t, r.AmountValue(), int64(0))

	assert.Equal(t, CodeSuccess, f.list.AcceptFromInbox(context.Background(), acctAlice, "0", InboxTransfers))
	assert.Equal(t, []int{20}, f.notary.reserved)
	require.Len(t, f.notary.dispatched, 1)
	assert.Equal(t, dispatchCall{kind: notary.KindProcessInbox, nymID: nymAlice, serverID: notaryOne, accountID: acctAlice}, f.notary.dispatched[0])
	assert.Equal(t, []string{acctAlice}, f.notary.refreshed)

	require.NoError(t, f.list.Populate(context.Background()))
	assert.Empty(t, recordsIn(f.list, model.BoxAccountInbox))
	settled := recordsIn(f.list, model.BoxAccountRecord)
	require.Len(t, settled, 1)
	assert.True(t, settled[0].IsRecord())
	assert.Equal(t, int64(7), settled[0].EntryID())
}

func TestAcceptFromInbox_ItemTypeFilter(t *testing.T) {
	f := newFixture(t)
	inbox := model.AccountBoxRef(f.account(), model.BoxAccountInbox)
	f.put(inbox, pendingTransfer(1, 10), chequeReceipt(2, -5), pendingTransfer(3, 20))

	assert.Equal(t, CodeSuccess, f.list.AcceptFromInbox(context.Background(), acctAlice, "all", InboxReceipts))

	remaining := f.box(inbox)
	require.Len(t, remaining, 2)
	assert.Equal(t, int64(1), remaining[0].TransactionID)
	assert.Equal(t, int64(3), remaining[1].TransactionID)

	assert.Equal(t, CodeNoop, f.list.AcceptFromInbox(context.Background(), acctAlice, "", InboxReceipts))
	assert.Equal(t, CodeSuccess, f.list.AcceptFromInbox(context.Background(), acctAlice, "", InboxAll))
	assert.Empty(t, f.box(inbox))
}

func TestAcceptFromInbox_ConfigurationErrors(t *testing.T) {
	f := newFixture(t)
	f.put(model.AccountBoxRef(f.account(), model.BoxAccountInbox), pendingTransfer(1, 10))

	tests := []struct {
		name      string
		accountID string
		indices   string
	}{
		{name: "empty account", accountID: "", indices: "0"},
		{name: "malformed list", accountID: acctAlice, indices: "0,x"},
		{name: "duplicate index", accountID: acctAlice, indices: "0,0"},
		{name: "out of range", accountID: acctAlice, indices: "4"},
		{name: "unknown account", accountID: "acct-missing", indices: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, CodeFailure, f.list.AcceptFromInbox(context.Background(), tt.accountID, tt.indices, InboxAll))
		})
	}
	assert.Zero(t, f.notary.calls)
	assert.Len(t, f.box(model.AccountBoxRef(f.account(), model.BoxAccountInbox)), 1)
}

func TestAcceptFromInbox_EmptyBoxIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, CodeNoop, f.list.AcceptFromInbox(context.Background(), acctAlice, "", InboxAll))
	assert.Zero(t, f.notary.calls)
}

func TestAcceptFromInbox_RejectedReply(t *testing.T) {
	f := newFixture(t)
	inbox := model.AccountBoxRef(f.account(), model.BoxAccountInbox)
	f.put(inbox, pendingTransfer(1, 10))
	f.notary.reject = true

	assert.Equal(t, CodeFailure, f.list.AcceptFromInbox(context.Background(), acctAlice, "0", InboxAll))
	assert.Len(t, f.box(inbox), 1)
	assert.Empty(t, f.notary.refreshed)
}

func TestAcceptFromInbox_ReserveFailure(t *testing.T) {
	f := newFixture(t)
	f.put(model.AccountBoxRef(f.account(), model.BoxAccountInbox), pendingTransfer(1, 10))
	f.notary.reserveErr = errors.New("notary unavailable")

	assert.Equal(t, CodeFailure, f.list.AcceptFromInbox(context.Background(), acctAlice, "0", InboxAll))
	assert.Empty(t, f.notary.dispatched)
}

func TestAcceptFromInbox_RefreshFailureKeepsSuccess(t *testing.T) {
	f := newFixture(t)
	f.put(model.AccountBoxRef(f.account(), model.BoxAccountInbox), pendingTransfer(1, 10))
	f.notary.refreshErr = errors.New("timeout")

	before := testutil.ToFloat64(refreshFailures)
	assert.Equal(t, CodeSuccess, f.list.AcceptFromInbox(context.Background(), acctAlice, "0", InboxAll))
	assert.Equal(t, before+1, testutil.ToFloat64(refreshFailures))
}

type recordingRefresher struct {
	accounts []string
}

func (r *recordingRefresher) Refresh(_ context.Context, account *model.Account) error {
	r.accounts = append(r.accounts, account.AccountID)
	return nil
}

func TestAcceptFromInbox_UsesRefresher(t *testing.T) {
	f := newFixture(t)
	refresher := &recordingRefresher{}
	f.list.refresher = refresher
	f.put(model.AccountBoxRef(f.account(), model.BoxAccountInbox), pendingTransfer(1, 10))

	assert.Equal(t, CodeSuccess, f.list.AcceptFromInbox(context.Background(), acctAlice, "0", InboxAll))
	assert.Equal(t, []string{acctAlice}, refresher.accounts)
	assert.Empty(t, f.notary.refreshed)
}

func TestAcceptFromInbox_HoldsAccountLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := newFixture(t)
	f.list.locks = client
	f.put(model.AccountBoxRef(f.account(), model.BoxAccountInbox), pendingTransfer(1, 10))

	assert.Equal(t, CodeSuccess, f.list.AcceptFromInbox(context.Background(), acctAlice, "0", InboxAll))
	assert.False(t, mr.Exists(redlock.AccountKey(acctAlice)), "lock released after accept")

	f.put(model.AccountBoxRef(f.account(), model.BoxAccountInbox), pendingTransfer(2, 10))
	require.NoError(t, mr.Set(redlock.AccountKey(acctAlice), "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.Equal(t, CodeFailure, f.list.AcceptFromInbox(ctx, acctAlice, "0", InboxAll))
	assert.Len(t, f.box(model.AccountBoxRef(f.account(), model.BoxAccountInbox)), 1)
}

func TestParseInboxItemType(t *testing.T) {
	for in, want := range map[string]InboxItemType{"": InboxAll, "all": InboxAll, "transfers": InboxTransfers, "receipts": InboxReceipts} {
		got, err := ParseInboxItemType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseInboxItemType("cheques")
	assert.Error(t, err)
}
