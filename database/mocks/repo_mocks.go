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
package mocks

import (
	"context"

	"github.com/blnkfinance/recordlist/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Box methods

func (m *MockDataSource) LoadBox(ctx context.Context, ref model.BoxRef, verify bool) (*model.Box, error) {
	args := m.Called(ctx, ref, verify)
	box, _ := args.Get(0).(*model.Box)
	return box, args.Error(1)
}

func (m *MockDataSource) ReplaceBox(ctx context.Context, ref model.BoxRef, entries []model.BoxEntry) error {
	args := m.Called(ctx, ref, entries)
	return args.Error(0)
}

func (m *MockDataSource) AppendBoxEntry(ctx context.Context, ref model.BoxRef, entry model.BoxEntry) error {
	args := m.Called(ctx, ref, entry)
	return args.Error(0)
}

func (m *MockDataSource) RemoveBoxEntry(ctx context.Context, ref model.BoxRef, index int, moveToRecordBox bool) error {
	args := m.Called(ctx, ref, index, moveToRecordBox)
	return args.Error(0)
}

// Account methods

func (m *MockDataSource) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	args := m.Called(ctx, accountID)
	account, _ := args.Get(0).(*model.Account)
	return account, args.Error(1)
}

func (m *MockDataSource) SaveAccount(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockDataSource) GetNymName(ctx context.Context, nymID string) (string, error) {
	args := m.Called(ctx, nymID)
	return args.String(0), args.Error(1)
}

func (m *MockDataSource) SaveNym(ctx context.Context, nym *model.Nym) error {
	args := m.Called(ctx, nym)
	return args.Error(0)
}
