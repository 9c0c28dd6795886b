package recordlist

import (
	"github.com/blnkfinance/recordlist/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recordlist_records",
		Help: "Records built by the last populate, by record type",
	}, []string{"type"})

	populateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recordlist_populate_total",
		Help: "Populate runs by result",
	}, []string{"result"})

	autoAcceptItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recordlist_auto_accept_items_total",
		Help: "Items handled by the auto-accept engine, by phase and outcome",
	}, []string{"phase", "outcome"})

	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recordlist_actions_total",
		Help: "Record actions and batch operations, by action and result",
	}, []string{"action", "result"})

	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recordlist_refresh_failures_total",
		Help: "Account refreshes that failed after a successful accept",
	})
)

var recordTypes = []model.RecordType{
	model.RecordTypeMail,
	model.RecordTypeTransfer,
	model.RecordTypeReceipt,
	model.RecordTypeInstrument,
	model.RecordTypeNotice,
	model.RecordTypeErrorState,
}

func observeRecords(records []*model.Record) {
	counts := make(map[model.RecordType]int, len(recordTypes))
	for _, r := range records {
		counts[r.RecordType()]++
	}
	for _, t := range recordTypes {
		recordsGauge.WithLabelValues(t.String()).Set(float64(counts[t]))
	}
}

func observeAction(action string, result model.ActionResult) model.ActionResult {
	actionsTotal.WithLabelValues(action, result.String()).Inc()
	return result
}

func observeCode(action string, code int) int {
	result := "noop"
	switch code {
	case CodeSuccess:
		result = "success"
	case CodeFailure:
		result = "failure"
	}
	actionsTotal.WithLabelValues(action, result).Inc()
	return code
}
