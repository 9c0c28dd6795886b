package mocks

import (
	"context"

	"github.com/blnkfinance/recordlist/model"
	"github.com/blnkfinance/recordlist/notary"
	"github.com/stretchr/testify/mock"
)

// MockNotary is a mock implementation of the notary.Notary interface
type MockNotary struct {
	mock.Mock
}

func (m *MockNotary) ReserveTransactionNumbers(ctx context.Context, nymID, serverID string, count int) error {
	args := m.Called(ctx, nymID, serverID, count)
	return args.Error(0)
}

func (m *MockNotary) BuildAcceptResponse(ctx context.Context, serverID, nymID, accountID string) (*notary.ResponseLedger, error) {
	args := m.Called(ctx, serverID, nymID, accountID)
	ledger, _ := args.Get(0).(*notary.ResponseLedger)
	return ledger, args.Error(1)
}

func (m *MockNotary) AppendAcceptItem(ledger *notary.ResponseLedger, entry model.BoxEntry, accept bool) error {
	args := m.Called(ledger, entry, accept)
	return args.Error(0)
}

func (m *MockNotary) FinalizeResponse(ledger *notary.ResponseLedger) ([]byte, error) {
	args := m.Called(ledger)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Error(1)
}

func (m *MockNotary) DispatchTransaction(ctx context.Context, kind notary.TransactionKind, nymID, serverID, accountID string, payload []byte) ([]byte, error) {
	args := m.Called(ctx, kind, nymID, serverID, accountID, payload)
	reply, _ := args.Get(0).([]byte)
	return reply, args.Error(1)
}

func (m *MockNotary) InterpretReply(reply []byte) model.ReplyStatus {
	args := m.Called(reply)
	return args.Get(0).(model.ReplyStatus)
}

func (m *MockNotary) RefreshAccount(ctx context.Context, nymID, serverID, accountID string) (*notary.AccountSnapshot, error) {
	args := m.Called(ctx, nymID, serverID, accountID)
	snapshot, _ := args.Get(0).(*notary.AccountSnapshot)
	return snapshot, args.Error(1)
}
