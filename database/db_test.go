package database

import (
	"context"
	"sync"
	"testing"

	"github.com/blnkfinance/recordlist/config"
	"github.com/blnkfinance/recordlist/model"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openSQLite returns a migrated in-memory database, or skips when the sqlite driver
// is unavailable (cgo disabled).
func openSQLite(t *testing.T) *Datasource {
	t.Helper()
	db, err := ConnectDB("sqlite3", ":memory:")
	if err != nil {
		t.Skipf("sqlite3 unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	n, err := Migrate(db, "sqlite3", migrate.Up, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	return &Datasource{Conn: db}
}

func TestGetDBConnection_Failure(t *testing.T) {
	instance, initErr = nil, nil
	once = sync.Once{}
	t.Cleanup(func() {
		instance, initErr = nil, nil
		once = sync.Once{}
	})

	mockConfig := &config.Configuration{
		DataSource: config.DataSourceConfig{Driver: "postgres", Dns: "invalid-dns"},
	}

	_, err := GetDBConnection(mockConfig)
	require.Error(t, err)

	ds, again := GetDBConnection(mockConfig)
	assert.Nil(t, ds)
	assert.Equal(t, err, again)
}

func TestConnectDB_UnknownDriver(t *testing.T) {
	db, err := ConnectDB("oracle", "whatever")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestMigrate_UpAndDown(t *testing.T) {
	ds := openSQLite(t)

	n, err := Migrate(ds.Conn, "sqlite3", migrate.Down, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDatasource_SQLiteRoundTrip(t *testing.T) {
	ds := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, ds.SaveNym(ctx, &model.Nym{NymID: "nym-2", Name: "Bob"}))
	account := &model.Account{AccountID: "acct-1", NymID: "nym-1", ServerID: "srv", UnitTypeID: "usd"}
	require.NoError(t, ds.SaveAccount(ctx, account))
	account.Name = "Renamed"
	require.NoError(t, ds.SaveAccount(ctx, account))

	stored, err := ds.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)

	inbox := model.AccountBoxRef(account, model.BoxAccountInbox)
	require.NoError(t, ds.ReplaceBox(ctx, inbox, []model.BoxEntry{
		{TransactionID: 1, Type: model.TransactionPending, DisplayAmount: 200, SenderNymID: "nym-2"},
		{TransactionID: 2, Type: model.TransactionTransferReceipt, DisplayAmount: -20},
	}))
	require.NoError(t, ds.AppendBoxEntry(ctx, inbox, model.BoxEntry{TransactionID: 3, Type: model.TransactionChequeReceipt}))

	box, err := ds.LoadBox(ctx, inbox, true)
	require.NoError(t, err)
	require.Equal(t, 3, box.Size())
	assert.Equal(t, "Bob", box.Entries[0].SenderName)
	assert.Equal(t, int64(3), box.Entries[2].TransactionID)

	require.NoError(t, ds.RemoveBoxEntry(ctx, inbox, 0, true))

	box, err = ds.LoadBox(ctx, inbox, false)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, []int64{box.Entries[0].TransactionID, box.Entries[1].TransactionID})

	records, err := ds.LoadBox(ctx, model.AccountBoxRef(account, model.BoxAccountRecord), false)
	require.NoError(t, err)
	require.Equal(t, 1, records.Size())
	assert.Equal(t, int64(1), records.Entries[0].TransactionID)

	empty, err := ds.LoadBox(ctx, model.NymBoxRef("nym-1", model.BoxMailIn), false)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Size())
}
