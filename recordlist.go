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
	"slices"
	"time"

	"github.com/blnkfinance/recordlist/config"
	"github.com/blnkfinance/recordlist/database"
	"github.com/blnkfinance/recordlist/instrument"
	"github.com/blnkfinance/recordlist/model"
	"github.com/blnkfinance/recordlist/notary"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("recordlist")

const (
	defaultToLabel   = "To: %s"
	defaultFromLabel = "From: %s"
)

// RecordList is one view over a wallet's activity. It owns its care-about sets, its
// auto-accept policies and the records built by the last Populate.
//
// A RecordList is not safe for concurrent use by mutating callers.
type RecordList struct {
	datasource database.IDataSource
	notary     notary.Notary
	decoder    instrument.Decoder
	refresher  Refresher
	locks      redis.UniversalClient

	toLabel   string
	fromLabel string

	servers   []string
	nyms      []string
	accounts  []string
	unitTypes map[string]string

	acceptCheques   bool
	acceptCash      bool
	acceptReceipts  bool
	acceptTransfers bool

	ignoreMail   bool
	runFast      bool
	reserveCount int

	records    []*model.Record
	generation uint64
	lastReport AutoAcceptReport
	now        func() time.Time
}

// Option configures a RecordList.
type Option func(*RecordList)

// WithDecoder sets the instrument decoder. The CBOR codec is used when none is given.
func WithDecoder(decoder instrument.Decoder) Option {
	return func(l *RecordList) { l.decoder = decoder }
}

// WithRefresher routes post-accept account refreshes through r instead of refreshing inline.
func WithRefresher(r Refresher) Option {
	return func(l *RecordList) { l.refresher = r }
}

// WithLockClient serializes inbox accepts per account through a redis lock.
func WithLockClient(client redis.UniversalClient) Option {
	return func(l *RecordList) { l.locks = client }
}

// WithLabels sets the format strings used for counterparty names.
func WithLabels(toLabel, fromLabel string) Option {
	return func(l *RecordList) {
		if toLabel != "" {
			l.toLabel = toLabel
		}
		if fromLabel != "" {
			l.fromLabel = fromLabel
		}
	}
}

// WithClock replaces the time source used for record expiry.
func WithClock(now func() time.Time) Option {
	return func(l *RecordList) {
		if now != nil {
			l.now = now
		}
	}
}

func WithReserveCount(count int) Option {
	return func(l *RecordList) {
		if count > 0 {
			l.reserveCount = count
		}
	}
}

// NewRecordList creates an empty RecordList backed by the given datasource and notary.
//
// Parameters:
// - ds database.IDataSource: Local store of boxes, accounts and nym names.
// - n notary.Notary: Remote collaborator used to accept, cancel and refresh.
// - opts ...Option: Optional settings.
//
// Returns:
// - *RecordList: A RecordList with no care-about sets and every auto-accept policy disabled.
func NewRecordList(ds database.IDataSource, n notary.Notary, opts ...Option) *RecordList {
	l := &RecordList{
		datasource:   ds,
		notary:       n,
		toLabel:      defaultToLabel,
		fromLabel:    defaultFromLabel,
		unitTypes:    make(map[string]string),
		reserveCount: config.DEFAULT_RESERVE_COUNT,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.decoder == nil {
		l.decoder = instrument.NewCodec()
	}
	return l
}

// NewRecordListFromConfig builds a RecordList whose care-about sets and policies come
// from the view and auto_accept configuration sections.
func NewRecordListFromConfig(cnf *config.Configuration, ds database.IDataSource, n notary.Notary, opts ...Option) *RecordList {
	base := []Option{
		WithLabels(cnf.View.ToLabel, cnf.View.FromLabel),
		WithReserveCount(cnf.AutoAccept.ReserveCount),
	}
	l := NewRecordList(ds, n, append(base, opts...)...)
	for _, id := range cnf.View.Servers {
		l.AddServer(id)
	}
	for _, id := range cnf.View.Nyms {
		l.AddNym(id)
	}
	for _, id := range cnf.View.Accounts {
		l.AddAccount(id)
	}
	for id, symbol := range cnf.View.UnitTypes {
		l.AddUnitType(id, symbol)
	}
	l.SetIgnoreMail(cnf.View.IgnoreMail)
	l.SetFastMode(cnf.View.Fast)
	l.AcceptChequesAutomatically(cnf.AutoAccept.Cheques)
	l.AcceptCashAutomatically(cnf.AutoAccept.Cash)
	l.AcceptReceiptsAutomatically(cnf.AutoAccept.Receipts)
	l.AcceptTransfersAutomatically(cnf.AutoAccept.Transfers)
	return l
}

func addUnique(set []string, id string) []string {
	if id == "" || slices.Contains(set, id) {
		return set
	}
	return append(set, id)
}

func (l *RecordList) AddServer(id string)  { l.servers = addUnique(l.servers, id) }
func (l *RecordList) AddNym(id string)     { l.nyms = addUnique(l.nyms, id) }
func (l *RecordList) AddAccount(id string) { l.accounts = addUnique(l.accounts, id) }

// AddUnitType adds an asset type to the care-about set with its currency symbol.
func (l *RecordList) AddUnitType(id, symbol string) {
	if id == "" {
		return
	}
	l.unitTypes[id] = symbol
}

func (l *RecordList) RemoveUnitType(id string) {
	delete(l.unitTypes, id)
}

func (l *RecordList) Servers() []string  { return slices.Clone(l.servers) }
func (l *RecordList) Nyms() []string     { return slices.Clone(l.nyms) }
func (l *RecordList) Accounts() []string { return slices.Clone(l.accounts) }

func (l *RecordList) AcceptChequesAutomatically(b bool)   { l.acceptCheques = b }
func (l *RecordList) AcceptCashAutomatically(b bool)      { l.acceptCash = b }
func (l *RecordList) AcceptReceiptsAutomatically(b bool)  { l.acceptReceipts = b }
func (l *RecordList) AcceptTransfersAutomatically(b bool) { l.acceptTransfers = b }

// SetIgnoreMail suppresses mail records.
func (l *RecordList) SetIgnoreMail(b bool) { l.ignoreMail = b }

// SetFastMode loads boxes without resolving counterparty display names.
func (l *RecordList) SetFastMode(b bool) { l.runFast = b }

// ClearContents drops every record. Records built before the call can no longer act.
func (l *RecordList) ClearContents() {
	l.records = nil
	l.generation++
}

func (l *RecordList) Size() int {
	return len(l.records)
}

// Record returns the record at index in the sorted collection.
func (l *RecordList) Record(index int) (*model.Record, error) {
	if index < 0 || index >= len(l.records) {
		return nil, ErrIndexOutOfRange
	}
	return l.records[index], nil
}

// Records returns the sorted collection. The slice is a copy; the records are shared.
func (l *RecordList) Records() []*model.Record {
	return slices.Clone(l.records)
}

// LastAutoAcceptReport returns the outcome of the most recent auto-accept run.
func (l *RecordList) LastAutoAcceptReport() AutoAcceptReport {
	return l.lastReport
}

func (l *RecordList) caresAboutServer(id string) bool {
	return slices.Contains(l.servers, id)
}

func (l *RecordList) caresAboutAccount(id string) bool {
	return slices.Contains(l.accounts, id)
}

func (l *RecordList) unitSymbol(id string) (string, bool) {
	symbol, ok := l.unitTypes[id]
	return symbol, ok
}

func (l *RecordList) verifyLoads() bool {
	return !l.runFast
}
