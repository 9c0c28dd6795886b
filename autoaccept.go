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
	"context"

	"github.com/blnkfinance/recordlist/model"
	"github.com/sirupsen/logrus"
)

// PhaseReport counts what one auto-accept phase did.
type PhaseReport struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// AutoAcceptReport is the outcome of one PerformAutoAccept run.
type AutoAcceptReport struct {
	Instruments PhaseReport `json:"instruments"`
	Inbox       PhaseReport `json:"inbox"`
}

// Partial reports whether any candidate or account failed.
func (r AutoAcceptReport) Partial() bool {
	return r.Instruments.Failed > 0 || r.Inbox.Failed > 0
}

func (p *PhaseReport) accepted(phase string, n int) {
	p.Accepted += n
	autoAcceptItems.WithLabelValues(phase, "accepted").Add(float64(n))
}

func (p *PhaseReport) skipped(phase string) {
	p.Skipped++
	autoAcceptItems.WithLabelValues(phase, "skipped").Inc()
}

func (p *PhaseReport) failed(phase string) {
	p.Failed++
	autoAcceptItems.WithLabelValues(phase, "failed").Inc()
}

const (
	phaseInstruments = "instruments"
	phaseInbox       = "inbox"
)

// PerformAutoAccept accepts incoming cheques, cash, receipts and transfers according to
// the list's policies. Failures on one nym, server or account never stop the others.
//
// It always returns true. The per-phase outcome is available from LastAutoAcceptReport.
func (l *RecordList) PerformAutoAccept(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "Performing auto accept")
	defer span.End()

	var report AutoAcceptReport
	if l.acceptCheques || l.acceptCash {
		for _, nymID := range l.nyms {
			for _, serverID := range l.servers {
				l.autoAcceptInstruments(ctx, nymID, serverID, &report.Instruments)
			}
		}
	}
	if l.acceptReceipts || l.acceptTransfers {
		for _, accountID := range l.accounts {
			l.autoAcceptInbox(ctx, accountID, &report.Inbox)
		}
	}

	l.lastReport = report
	if report.Partial() {
		logrus.WithFields(logrus.Fields{
			"instruments_failed": report.Instruments.Failed,
			"inbox_failed":       report.Inbox.Failed,
		}).Warn("auto accept finished with failures")
	}
	return true
}

type acceptCandidate struct {
	index int
	entry model.BoxEntry
	inst  *model.Instrument
}

func (l *RecordList) wantsInstrument(t model.InstrumentType) bool {
	switch {
	case t == model.InstrumentCheque || t == model.InstrumentVoucher:
		return l.acceptCheques
	case t == model.InstrumentPurse:
		return l.acceptCash
	}
	return false
}

func (l *RecordList) autoAcceptInstruments(ctx context.Context, nymID, serverID string, report *PhaseReport) {
	ref := model.ServerBoxRef(serverID, nymID, model.BoxPaymentInbox)
	box, err := l.datasource.LoadBox(ctx, ref, false)
	if err != nil {
		logrus.WithFields(logrus.Fields{"nym": nymID, "server": serverID}).WithError(err).Error("auto accept could not load payment inbox")
		report.failed(phaseInstruments)
		return
	}

	var candidates []acceptCandidate
	for i, entry := range box.Entries {
		if !entry.HasInstrument() {
			continue
		}
		inst, err := l.decodeEntry(entry)
		if err != nil {
			skipEntry(ref, i, "undecodable instrument", err)
			report.skipped(phaseInstruments)
			continue
		}
		if !l.wantsInstrument(inst.Type) {
			continue
		}
		if _, ok := l.unitSymbol(inst.InstrumentDefinitionID); !ok {
			continue
		}
		candidates = append(candidates, acceptCandidate{index: i, entry: entry, inst: inst})
	}

	// Later positions first, so removals keep earlier positions valid.
	for k := len(candidates) - 1; k >= 0; k-- {
		c := candidates[k]
		account, err := l.findAcceptingAccount(ctx, nymID, c.inst)
		if err != nil {
			skipEntry(ref, c.index, "no account to deposit into", err)
			report.skipped(phaseInstruments)
			continue
		}
		if l.processPayment(ctx, ref, c.index, c.entry, c.inst, account).Succeeded() {
			report.accepted(phaseInstruments, 1)
		} else {
			report.failed(phaseInstruments)
		}
	}
}

// findAcceptingAccount returns the first configured user account of nymID on the
// instrument's notary with the instrument's unit type.
func (l *RecordList) findAcceptingAccount(ctx context.Context, nymID string, inst *model.Instrument) (*model.Account, error) {
	for _, accountID := range l.accounts {
		account, err := l.datasource.GetAccount(ctx, accountID)
		if err != nil {
			logrus.WithField("account", accountID).WithError(err).Warn("could not load account")
			continue
		}
		if account.NymID == nymID &&
			account.ServerID == inst.NotaryID &&
			account.UnitTypeID == inst.InstrumentDefinitionID &&
			account.IsUser() {
			return account, nil
		}
	}
	return nil, ErrNoAccountForItem
}

func (l *RecordList) autoAcceptInbox(ctx context.Context, accountID string, report *PhaseReport) {
	account, err := l.datasource.GetAccount(ctx, accountID)
	if err != nil {
		logrus.WithField("account", accountID).WithError(err).Error("auto accept could not load account")
		report.failed(phaseInbox)
		return
	}

	accepted, result := l.acceptInbox(ctx, account, func(box *model.Box) ([]int, error) {
		var positions []int
		for i := box.Size() - 1; i >= 0; i-- {
			entry := box.Entries[i]
			if (entry.IsPending() && l.acceptTransfers) || (!entry.IsPending() && l.acceptReceipts) {
				positions = append(positions, i)
			}
		}
		return positions, nil
	})
	if !result.Succeeded() {
		report.failed(phaseInbox)
		return
	}
	report.accepted(phaseInbox, accepted)
}
