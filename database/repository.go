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

package database

import (
	"context"

	"github.com/blnkfinance/recordlist/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	boxes    // Interface for box-related operations
	accounts // Interface for account and nym lookups
}

// boxes defines methods for reading and mutating the locally stored boxes.
type boxes interface {
	// Loads a box in order; verify fills display names
	LoadBox(ctx context.Context, ref model.BoxRef, verify bool) (*model.Box, error)
	// Replaces the whole content of a box
	ReplaceBox(ctx context.Context, ref model.BoxRef, entries []model.BoxEntry) error
	// Appends an entry at the end of a box
	AppendBoxEntry(ctx context.Context, ref model.BoxRef, entry model.BoxEntry) error
	// Removes one entry by position, optionally keeping it in the record box
	RemoveBoxEntry(ctx context.Context, ref model.BoxRef, index int, moveToRecordBox bool) error
}

// accounts defines methods for handling accounts and nyms.
type accounts interface {
	// Retrieves an account by ID
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	// Creates or updates an account
	SaveAccount(ctx context.Context, account *model.Account) error
	// Retrieves the display name of a nym
	GetNymName(ctx context.Context, nymID string) (string, error)
	// Creates or updates a nym
	SaveNym(ctx context.Context, nym *model.Nym) error
}
