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
	"database/sql"
	"encoding/json"

	"github.com/blnkfinance/recordlist/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var (
	ErrEntryNotFound  = errors.New("box entry not found")
	ErrInvalidBoxKind = errors.New("invalid box kind")
)

const boxFilter = "server_id = $1 AND nym_id = $2 AND owner_id = $3 AND box_kind = $4"

func boxArgs(ref model.BoxRef) []interface{} {
	return []interface{}{ref.ServerID, ref.NymID, ref.OwnerID, string(ref.Kind)}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// LoadBox returns the entries of a box ordered by position. A box that was never
// written is returned empty. With verify set, sender and recipient display names are
// resolved from stored nyms.
func (d Datasource) LoadBox(ctx context.Context, ref model.BoxRef, verify bool) (*model.Box, error) {
	ctx, span := otel.Tracer("recordlist.database").Start(ctx, "Loading box")
	defer span.End()

	if !ref.Kind.Valid() {
		return nil, errors.Wrapf(ErrInvalidBoxKind, "%q", ref.Kind)
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT payload FROM box_entries
		WHERE `+boxFilter+`
		ORDER BY position
	`, boxArgs(ref)...)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "loading %s box of %s", ref.Kind, ref.OwnerID)
	}
	defer rows.Close()

	box := &model.Box{Ref: ref}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			span.RecordError(err)
			return nil, err
		}
		var entry model.BoxEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			span.RecordError(err)
			return nil, errors.Wrapf(err, "decoding entry of %s box", ref.Kind)
		}
		box.Entries = append(box.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if verify {
		d.resolveNames(ctx, box)
	}
	return box, nil
}

func (d Datasource) resolveNames(ctx context.Context, box *model.Box) {
	for i := range box.Entries {
		e := &box.Entries[i]
		if e.SenderNymID != "" && e.SenderName == "" {
			e.SenderName = d.nameOrEmpty(ctx, e.SenderNymID)
		}
		if e.RecipientNymID != "" && e.RecipientName == "" {
			e.RecipientName = d.nameOrEmpty(ctx, e.RecipientNymID)
		}
	}
}

func (d Datasource) nameOrEmpty(ctx context.Context, nymID string) string {
	name, err := d.GetNymName(ctx, nymID)
	if err != nil && !errors.Is(err, ErrNymNotFound) {
		logrus.WithField("nym", nymID).Warnf("resolving nym name: %v", err)
	}
	return name
}

// ReplaceBox swaps the content of a box for entries, in order.
func (d Datasource) ReplaceBox(ctx context.Context, ref model.BoxRef, entries []model.BoxEntry) error {
	ctx, span := otel.Tracer("recordlist.database").Start(ctx, "Replacing box")
	defer span.End()

	if !ref.Kind.Valid() {
		return errors.Wrapf(ErrInvalidBoxKind, "%q", ref.Kind)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM box_entries WHERE `+boxFilter, boxArgs(ref)...); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "clearing box")
	}
	for i, entry := range entries {
		if err := insertEntry(ctx, tx, ref, int64(i), entry); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return tx.Commit()
}

// AppendBoxEntry adds entry after the last entry of the box.
func (d Datasource) AppendBoxEntry(ctx context.Context, ref model.BoxRef, entry model.BoxEntry) error {
	if !ref.Kind.Valid() {
		return errors.Wrapf(ErrInvalidBoxKind, "%q", ref.Kind)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := appendEntry(ctx, tx, ref, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveBoxEntry deletes the entry at index. When moveToRecordBox is set and the box has a
// record box, the entry is appended there in the same transaction.
func (d Datasource) RemoveBoxEntry(ctx context.Context, ref model.BoxRef, index int, moveToRecordBox bool) error {
	ctx, span := otel.Tracer("recordlist.database").Start(ctx, "Removing box entry")
	defer span.End()

	if !ref.Kind.Valid() {
		return errors.Wrapf(ErrInvalidBoxKind, "%q", ref.Kind)
	}
	if index < 0 {
		return errors.Wrapf(ErrEntryNotFound, "index %d", index)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var payload string
	err = tx.QueryRowContext(ctx, `
		SELECT payload FROM box_entries
		WHERE `+boxFilter+`
		ORDER BY position
		LIMIT 1 OFFSET $5
	`, append(boxArgs(ref), index)...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(ErrEntryNotFound, "index %d of %s box", index, ref.Kind)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	var entry model.BoxEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return errors.Wrap(err, "decoding removed entry")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM box_entries WHERE `+boxFilter+` AND transaction_id = $5`,
		append(boxArgs(ref), entry.TransactionID)...); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "removing box entry")
	}

	if moveToRecordBox {
		if recordRef, ok := recordBoxFor(ref, entry); ok {
			if err := appendEntry(ctx, tx, recordRef, entry); err != nil {
				span.RecordError(err)
				return err
			}
		}
	}
	return tx.Commit()
}

// recordBoxFor returns the box that keeps the history of entries removed from ref.
func recordBoxFor(ref model.BoxRef, entry model.BoxEntry) (model.BoxRef, bool) {
	switch ref.Kind {
	case model.BoxPaymentInbox:
		return model.ServerBoxRef(ref.ServerID, ref.NymID, model.BoxPaymentRecord), true
	case model.BoxOutpayments:
		if entry.ServerID == "" {
			return model.BoxRef{}, false
		}
		return model.ServerBoxRef(entry.ServerID, ref.NymID, model.BoxPaymentRecord), true
	case model.BoxAccountInbox, model.BoxAccountOutbox:
		return model.BoxRef{ServerID: ref.ServerID, NymID: ref.NymID, OwnerID: ref.OwnerID, Kind: model.BoxAccountRecord}, true
	}
	return model.BoxRef{}, false
}

func appendEntry(ctx context.Context, q querier, ref model.BoxRef, entry model.BoxEntry) error {
	var next int64
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM box_entries WHERE `+boxFilter,
		boxArgs(ref)...).Scan(&next)
	if err != nil {
		return errors.Wrap(err, "finding box tail")
	}
	return insertEntry(ctx, q, ref, next, entry)
}

func insertEntry(ctx context.Context, q querier, ref model.BoxRef, position int64, entry model.BoxEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO box_entries (server_id, nym_id, owner_id, box_kind, position, transaction_id, entry_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ref.ServerID, ref.NymID, ref.OwnerID, string(ref.Kind), position, entry.TransactionID, string(entry.Type), string(payload))
	if err != nil {
		return errors.Wrapf(err, "storing transaction %d", entry.TransactionID)
	}
	return nil
}
