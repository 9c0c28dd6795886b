package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/blnkfinance/recordlist/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNymNotFound     = errors.New("nym not found")
)

const lookupTTL = 10 * time.Minute

func accountCacheKey(id string) string { return "account:" + id }
func nymCacheKey(id string) string     { return "nym:" + id }

// GetAccount retrieves an account through the lookup cache.
func (d Datasource) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	ctx, span := otel.Tracer("recordlist.database").Start(ctx, "Fetching account")
	defer span.End()

	load := func() (interface{}, error) { return d.queryAccount(ctx, accountID) }
	if d.Cache == nil {
		account, err := d.queryAccount(ctx, accountID)
		if err != nil {
			span.RecordError(err)
		}
		return account, err
	}

	account := &model.Account{}
	if err := d.Cache.Load(ctx, accountCacheKey(accountID), account, lookupTTL, load); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return account, nil
}

func (d Datasource) queryAccount(ctx context.Context, accountID string) (*model.Account, error) {
	account := &model.Account{}
	var kind string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, nym_id, server_id, unit_type_id, kind, name
		FROM accounts WHERE account_id = $1
	`, accountID).Scan(&account.AccountID, &account.NymID, &account.ServerID, &account.UnitTypeID, &kind, &account.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrAccountNotFound, "account %s", accountID)
	}
	if err != nil {
		return nil, err
	}
	account.Kind = model.AccountKind(kind)
	return account, nil
}

// SaveAccount creates the account or updates every column of an existing one.
func (d Datasource) SaveAccount(ctx context.Context, account *model.Account) error {
	if account == nil || account.AccountID == "" {
		return errors.New("account id is required")
	}
	if account.Kind == "" {
		account.Kind = model.AccountKindUser
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO accounts (account_id, nym_id, server_id, unit_type_id, kind, name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE SET
			nym_id = excluded.nym_id,
			server_id = excluded.server_id,
			unit_type_id = excluded.unit_type_id,
			kind = excluded.kind,
			name = excluded.name
	`, account.AccountID, account.NymID, account.ServerID, account.UnitTypeID, string(account.Kind), account.Name)
	if err != nil {
		return errors.Wrapf(err, "saving account %s", account.AccountID)
	}

	d.forget(ctx, accountCacheKey(account.AccountID))
	return nil
}

// GetNymName returns the display name of a nym.
func (d Datasource) GetNymName(ctx context.Context, nymID string) (string, error) {
	if d.Cache == nil {
		return d.queryNymName(ctx, nymID)
	}
	var name string
	err := d.Cache.Load(ctx, nymCacheKey(nymID), &name, lookupTTL, func() (interface{}, error) {
		return d.queryNymName(ctx, nymID)
	})
	return name, err
}

func (d Datasource) queryNymName(ctx context.Context, nymID string) (string, error) {
	var name string
	err := d.Conn.QueryRowContext(ctx, `SELECT name FROM nyms WHERE nym_id = $1`, nymID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(ErrNymNotFound, "nym %s", nymID)
	}
	return name, err
}

func (d Datasource) SaveNym(ctx context.Context, nym *model.Nym) error {
	if nym == nil || nym.NymID == "" {
		return errors.New("nym id is required")
	}
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO nyms (nym_id, name) VALUES ($1, $2)
		ON CONFLICT (nym_id) DO UPDATE SET name = excluded.name
	`, nym.NymID, nym.Name)
	if err != nil {
		return errors.Wrapf(err, "saving nym %s", nym.NymID)
	}

	d.forget(ctx, nymCacheKey(nym.NymID))
	return nil
}

func (d Datasource) forget(ctx context.Context, key string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Evict(ctx, key); err != nil {
		logrus.Warnf("evicting %s: %v", key, err)
	}
}
