package recordlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blnkfinance/recordlist/instrument"
	"github.com/blnkfinance/recordlist/model"
	"github.com/blnkfinance/recordlist/notary"
	"github.com/stretchr/testify/require"
)

const (
	nymAlice  = "nym-alice"
	nymBob    = "nym-bob"
	notaryOne = "notary-1"
	unitUSD   = "usd"
	unitEUR   = "eur"
	acctAlice = "acct-alice"
	acctBob   = "acct-bob"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var errNotFound = errors.New("not found")

// memoryLedger is an in-memory datasource with the same box semantics as the SQL one.
type memoryLedger struct {
	boxes    map[model.BoxRef][]model.BoxEntry
	accounts map[string]*model.Account
	names    map[string]string
	loadErr  map[model.BoxRef]error
	calls    int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		boxes:    make(map[model.BoxRef][]model.BoxEntry),
		accounts: make(map[string]*model.Account),
		names:    make(map[string]string),
		loadErr:  make(map[model.BoxRef]error),
	}
}

func (m *memoryLedger) LoadBox(_ context.Context, ref model.BoxRef, verify bool) (*model.Box, error) {
	m.calls++
	if err := m.loadErr[ref]; err != nil {
		return nil, err
	}
	entries := append([]model.BoxEntry(nil), m.boxes[ref]...)
	if verify {
		for i := range entries {
			entries[i].SenderName = m.names[entries[i].SenderNymID]
			entries[i].RecipientName = m.names[entries[i].RecipientNymID]
		}
	}
	return &model.Box{Ref: ref, Entries: entries}, nil
}

func (m *memoryLedger) ReplaceBox(_ context.Context, ref model.BoxRef, entries []model.BoxEntry) error {
	m.calls++
	m.boxes[ref] = append([]model.BoxEntry(nil), entries...)
	return nil
}

func (m *memoryLedger) AppendBoxEntry(_ context.Context, ref model.BoxRef, entry model.BoxEntry) error {
	m.calls++
	m.boxes[ref] = append(m.boxes[ref], entry)
	return nil
}

func (m *memoryLedger) RemoveBoxEntry(_ context.Context, ref model.BoxRef, index int, moveToRecordBox bool) error {
	m.calls++
	entries := m.boxes[ref]
	if index < 0 || index >= len(entries) {
		return errNotFound
	}
	entry := entries[index]
	m.boxes[ref] = append(append([]model.BoxEntry(nil), entries[:index]...), entries[index+1:]...)
	if !moveToRecordBox {
		return nil
	}
	switch ref.Kind {
	case model.BoxPaymentInbox:
		rec := model.ServerBoxRef(ref.ServerID, ref.NymID, model.BoxPaymentRecord)
		m.boxes[rec] = append(m.boxes[rec], entry)
	case model.BoxOutpayments:
		if entry.ServerID != "" {
			rec := model.ServerBoxRef(entry.ServerID, ref.NymID, model.BoxPaymentRecord)
			m.boxes[rec] = append(m.boxes[rec], entry)
		}
	case model.BoxAccountInbox, model.BoxAccountOutbox:
		rec := ref
		rec.Kind = model.BoxAccountRecord
		m.boxes[rec] = append(m.boxes[rec], entry)
	}
	return nil
}

func (m *memoryLedger) GetAccount(_ context.Context, accountID string) (*model.Account, error) {
	m.calls++
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, errNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *memoryLedger) SaveAccount(_ context.Context, account *model.Account) error {
	m.calls++
	m.accounts[account.AccountID] = account
	return nil
}

func (m *memoryLedger) GetNymName(_ context.Context, nymID string) (string, error) {
	m.calls++
	name, ok := m.names[nymID]
	if !ok {
		return "", errNotFound
	}
	return name, nil
}

func (m *memoryLedger) SaveNym(_ context.Context, nym *model.Nym) error {
	m.calls++
	m.names[nym.NymID] = nym.Name
	return nil
}

type dispatchCall struct {
	kind      notary.TransactionKind
	nymID     string
	serverID  string
	accountID string
}

// fakeNotary accepts everything unless told otherwise. Refresh returns the ledger's own
// inbox and outbox, as a notary that agrees with the wallet would.
type fakeNotary struct {
	ledger     *memoryLedger
	reject     bool
	reserveErr error
	refreshErr error
	reserved   []int
	dispatched []dispatchCall
	refreshed  []string
	calls      int
}

func (f *fakeNotary) ReserveTransactionNumbers(_ context.Context, _, _ string, count int) error {
	f.calls++
	f.reserved = append(f.reserved, count)
	return f.reserveErr
}

func (f *fakeNotary) BuildAcceptResponse(_ context.Context, serverID, nymID, accountID string) (*notary.ResponseLedger, error) {
	f.calls++
	return notary.NewResponseLedger(serverID, nymID, accountID), nil
}

func (f *fakeNotary) AppendAcceptItem(ledger *notary.ResponseLedger, entry model.BoxEntry, accept bool) error {
	f.calls++
	return ledger.Append(entry, accept)
}

func (f *fakeNotary) FinalizeResponse(ledger *notary.ResponseLedger) ([]byte, error) {
	f.calls++
	return ledger.Finalize()
}

func (f *fakeNotary) DispatchTransaction(_ context.Context, kind notary.TransactionKind, nymID, serverID, accountID string, _ []byte) ([]byte, error) {
	f.calls++
	f.dispatched = append(f.dispatched, dispatchCall{kind: kind, nymID: nymID, serverID: serverID, accountID: accountID})
	if f.reject {
		return []byte(`{"success":false}`), nil
	}
	return []byte(`{"success":true}`), nil
}

func (f *fakeNotary) InterpretReply(reply []byte) model.ReplyStatus {
	f.calls++
	if string(reply) == `{"success":true}` {
		return model.ReplySuccess
	}
	return model.ReplyFailure
}

func (f *fakeNotary) RefreshAccount(_ context.Context, _, _, accountID string) (*notary.AccountSnapshot, error) {
	f.calls++
	f.refreshed = append(f.refreshed, accountID)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	account := f.ledger.accounts[accountID]
	return &notary.AccountSnapshot{
		AccountID: accountID,
		Inbox:     f.ledger.boxes[model.AccountBoxRef(account, model.BoxAccountInbox)],
		Outbox:    f.ledger.boxes[model.AccountBoxRef(account, model.BoxAccountOutbox)],
	}, nil
}

type fixture struct {
	list   *RecordList
	ledger *memoryLedger
	notary *fakeNotary
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := newMemoryLedger()
	ledger.accounts[acctAlice] = &model.Account{
		AccountID:  acctAlice,
		NymID:      nymAlice,
		ServerID:   notaryOne,
		UnitTypeID: unitUSD,
		Kind:       model.AccountKindUser,
		Name:       "Alice main",
	}
	n := &fakeNotary{ledger: ledger}

	l := NewRecordList(ledger, n, WithClock(func() time.Time { return fixedNow }))
	l.AddServer(notaryOne)
	l.AddNym(nymAlice)
	l.AddAccount(acctAlice)
	l.AddUnitType(unitUSD, "$")
	return &fixture{list: l, ledger: ledger, notary: n}
}

func (f *fixture) account() *model.Account {
	return f.ledger.accounts[acctAlice]
}

func (f *fixture) put(ref model.BoxRef, entries ...model.BoxEntry) {
	f.ledger.boxes[ref] = append(f.ledger.boxes[ref], entries...)
}

func (f *fixture) box(ref model.BoxRef) []model.BoxEntry {
	return f.ledger.boxes[ref]
}

func encode(t *testing.T, inst *model.Instrument) []byte {
	t.Helper()
	raw, err := instrument.NewCodec().Encode(inst)
	require.NoError(t, err)
	return raw
}

// outgoingCheque is a cheque Alice wrote to Bob.
func outgoingCheque(amount, opening int64) *model.Instrument {
	return &model.Instrument{
		Type:                   model.InstrumentCheque,
		ValidFrom:              fixedNow.Add(-time.Hour),
		ValidTo:                fixedNow.Add(24 * time.Hour),
		Amount:                 amount,
		Memo:                   "rent",
		SenderNymID:            nymAlice,
		SenderAcctID:           acctAlice,
		RecipientNymID:         nymBob,
		OpeningNum:             opening,
		NotaryID:               notaryOne,
		InstrumentDefinitionID: unitUSD,
	}
}

// incoming is an instrument Bob sent to Alice.
func incoming(kind model.InstrumentType, amount, opening int64) *model.Instrument {
	return &model.Instrument{
		Type:                   kind,
		ValidFrom:              fixedNow.Add(-time.Hour),
		ValidTo:                fixedNow.Add(24 * time.Hour),
		Amount:                 amount,
		SenderNymID:            nymBob,
		SenderAcctID:           acctBob,
		RecipientNymID:         nymAlice,
		OpeningNum:             opening,
		NotaryID:               notaryOne,
		InstrumentDefinitionID: unitUSD,
	}
}

func instrumentEntry(t *testing.T, id int64, inst *model.Instrument) model.BoxEntry {
	return model.BoxEntry{
		TransactionID:  id,
		ServerID:       inst.NotaryID,
		Type:           model.TransactionInstrumentNotice,
		DateSigned:     inst.ValidFrom,
		SenderNymID:    inst.SenderNymID,
		RecipientNymID: inst.RecipientNymID,
		Contents:       encode(t, inst),
	}
}

func recordsIn(l *RecordList, kind model.BoxKind) []*model.Record {
	var out []*model.Record
	for _, r := range l.Records() {
		if r.Source().Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
