package recordlist

import (
	"context"

	"github.com/blnkfinance/recordlist/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Refresher refreshes an account after its inbox was accepted.
type Refresher interface {
	Refresh(ctx context.Context, account *model.Account) error
}

// RefreshAccount downloads the account's inbox and outbox from its notary and replaces
// the stored copies.
func (l *RecordList) RefreshAccount(ctx context.Context, accountID string) error {
	account, err := l.datasource.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return l.refreshAccount(ctx, account)
}

func (l *RecordList) refreshAccount(ctx context.Context, account *model.Account) error {
	ctx, span := tracer.Start(ctx, "Refreshing account")
	defer span.End()

	snapshot, err := l.notary.RefreshAccount(ctx, account.NymID, account.ServerID, account.AccountID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "refresh account %s", account.AccountID)
	}
	if err := l.datasource.ReplaceBox(ctx, model.AccountBoxRef(account, model.BoxAccountInbox), snapshot.Inbox); err != nil {
		span.RecordError(err)
		return err
	}
	if err := l.datasource.ReplaceBox(ctx, model.AccountBoxRef(account, model.BoxAccountOutbox), snapshot.Outbox); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// refreshAfterAccept is best-effort: a failed refresh never undoes the accept.
func (l *RecordList) refreshAfterAccept(ctx context.Context, account *model.Account) {
	var err error
	if l.refresher != nil {
		err = l.refresher.Refresh(ctx, account)
	} else {
		err = l.refreshAccount(ctx, account)
	}
	if err != nil {
		refreshFailures.Inc()
		logrus.WithField("account", account.AccountID).WithError(err).Warn("account refresh after accept failed")
	}
}
