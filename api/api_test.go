package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blnkfinance/recordlist"
	"github.com/blnkfinance/recordlist/config"
	dbmocks "github.com/blnkfinance/recordlist/database/mocks"
	"github.com/blnkfinance/recordlist/describe"
	"github.com/blnkfinance/recordlist/instrument"
	"github.com/blnkfinance/recordlist/model"
	"github.com/blnkfinance/recordlist/notary"
	notarymocks "github.com/blnkfinance/recordlist/notary/mocks"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	model2 "github.com/blnkfinance/recordlist/api/model"
)

const (
	nymAlice  = "nym-alice"
	notaryOne = "notary-1"
	acctAlice = "acct-alice"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	router *gin.Engine
	ds     *dbmocks.MockDataSource
	notary *notarymocks.MockNotary
	inbox  model.BoxRef
}

func newHarness(t *testing.T, conf *config.Configuration) *harness {
	t.Helper()
	config.MockConfig(conf)

	ds := &dbmocks.MockDataSource{}
	n := &notarymocks.MockNotary{}
	list := recordlist.NewRecordList(ds, n, recordlist.WithClock(func() time.Time { return now }))
	list.AddServer(notaryOne)
	list.AddNym(nymAlice)
	list.AddUnitType("usd", "$")
	list.SetIgnoreMail(true)

	a := NewAPI(list, describe.NewFormatter("en", 2))
	require.NotNil(t, a)
	gin.SetMode(gin.TestMode)

	return &harness{
		router: a.Router(),
		ds:     ds,
		notary: n,
		inbox:  model.ServerBoxRef(notaryOne, nymAlice, model.BoxPaymentInbox),
	}
}

func (h *harness) withIncomingCheque(t *testing.T) {
	raw, err := instrument.NewCodec().Encode(&model.Instrument{
		Type:                   model.InstrumentCheque,
		ValidFrom:              now.Add(-time.Hour),
		ValidTo:                now.Add(time.Hour),
		Amount:                 75,
		SenderNymID:            "nym-bob",
		RecipientNymID:         nymAlice,
		OpeningNum:             9,
		NotaryID:               notaryOne,
		InstrumentDefinitionID: "usd",
	})
	require.NoError(t, err)
	entry := model.BoxEntry{
		TransactionID:  41,
		ServerID:       notaryOne,
		Type:           model.TransactionInstrumentNotice,
		DateSigned:     now.Add(-time.Hour),
		SenderNymID:    "nym-bob",
		RecipientNymID: nymAlice,
		Contents:       raw,
	}
	h.ds.On("LoadBox", mock.Anything, h.inbox, mock.Anything).Return(&model.Box{Ref: h.inbox, Entries: []model.BoxEntry{entry}}, nil)
	h.ds.On("LoadBox", mock.Anything, mock.Anything, mock.Anything).Return(&model.Box{}, nil)
}

func (h *harness) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestGetRecords_Populate(t *testing.T) {
	h := newHarness(t, &config.Configuration{})
	h.withIncomingCheque(t)

	w := h.do(http.MethodGet, "/records?populate=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var views []describe.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "incoming cheque #9 (PENDING)", views[0].Description)
	assert.Equal(t, "$0.75", views[0].Amount)
	assert.True(t, views[0].CanAccept)

	w = h.do(http.MethodGet, "/records/0", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodGet, "/records/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(http.MethodGet, "/records/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRecords_InvalidConfiguration(t *testing.T) {
	config.MockConfig(&config.Configuration{})
	list := recordlist.NewRecordList(&dbmocks.MockDataSource{}, &notarymocks.MockNotary{})
	router := NewAPI(list, describe.NewFormatter("en", 2)).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records?populate=true", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcceptRecord(t *testing.T) {
	h := newHarness(t, &config.Configuration{})
	h.withIncomingCheque(t)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/records?populate=true", nil).Code)

	h.ds.On("GetAccount", mock.Anything, acctAlice).Return(&model.Account{
		AccountID: acctAlice, NymID: nymAlice, ServerID: notaryOne, UnitTypeID: "usd", Kind: model.AccountKindUser,
	}, nil)
	h.ds.On("RemoveBoxEntry", mock.Anything, h.inbox, 0, true).Return(nil)
	h.notary.On("DispatchTransaction", mock.Anything, notary.KindDepositCheque, nymAlice, notaryOne, acctAlice, mock.Anything).Return([]byte("ok"), nil)
	h.notary.On("InterpretReply", []byte("ok")).Return(model.ReplySuccess)

	w := h.do(http.MethodPost, "/records/0/accept", model2.AcceptRecord{AccountID: acctAlice})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	h.ds.AssertCalled(t, "RemoveBoxEntry", mock.Anything, h.inbox, 0, true)

	// An incoming cheque can not be cancelled or deleted.
	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, "/records/0/cancel", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodDelete, "/records/0", nil).Code)
}

func TestAcceptRecord_Rejected(t *testing.T) {
	h := newHarness(t, &config.Configuration{})
	h.withIncomingCheque(t)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/records?populate=true", nil).Code)

	h.ds.On("GetAccount", mock.Anything, acctAlice).Return(&model.Account{
		AccountID: acctAlice, NymID: nymAlice, ServerID: notaryOne, UnitTypeID: "usd", Kind: model.AccountKindUser,
	}, nil)
	h.notary.On("DispatchTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte("no"), nil)
	h.notary.On("InterpretReply", mock.Anything).Return(model.ReplyFailure)

	w := h.do(http.MethodPost, "/records/0/accept", model2.AcceptRecord{AccountID: acctAlice})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	h.ds.AssertNotCalled(t, "RemoveBoxEntry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscardRecord(t *testing.T) {
	h := newHarness(t, &config.Configuration{})
	h.withIncomingCheque(t)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/records?populate=true", nil).Code)
	h.ds.On("RemoveBoxEntry", mock.Anything, h.inbox, 0, false).Return(nil)

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/records/0/discard", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, "/records/0/discard-cash", nil).Code)
}

func TestAcceptInbox_Validation(t *testing.T) {
	h := newHarness(t, &config.Configuration{})

	w := h.do(http.MethodPost, "/accounts/"+acctAlice+"/inbox/accept", model2.AcceptInbox{Indices: "0,x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPost, "/accounts/"+acctAlice+"/inbox/accept", model2.AcceptInbox{Type: "cheques"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	h.ds.AssertNotCalled(t, "GetAccount", mock.Anything, mock.Anything)
}

func TestAcceptInbox_EmptyBoxIsNoop(t *testing.T) {
	h := newHarness(t, &config.Configuration{})
	account := &model.Account{AccountID: acctAlice, NymID: nymAlice, ServerID: notaryOne, UnitTypeID: "usd", Kind: model.AccountKindUser}
	h.ds.On("GetAccount", mock.Anything, acctAlice).Return(account, nil)
	h.ds.On("LoadBox", mock.Anything, model.AccountBoxRef(account, model.BoxAccountInbox), mock.Anything).Return(&model.Box{}, nil)

	w := h.do(http.MethodPost, "/accounts/"+acctAlice+"/inbox/accept", model2.AcceptInbox{Type: "all"})
	require.Equal(t, http.StatusOK, w.Code)
	var res model2.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, recordlist.CodeNoop, res.Code)
}

func TestAcceptPayments_UnknownAccount(t *testing.T) {
	h := newHarness(t, &config.Configuration{})
	h.ds.On("GetAccount", mock.Anything, "acct-missing").Return(nil, assert.AnError)

	w := h.do(http.MethodPost, "/accounts/acct-missing/payments/accept", model2.AcceptPayments{Type: "cheque"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAutoAccept(t *testing.T) {
	h := newHarness(t, &config.Configuration{})

	w := h.do(http.MethodPost, "/auto-accept", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report recordlist.AutoAcceptReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Zero(t, report.Instruments.Accepted)
	assert.Zero(t, report.Inbox.Failed)
}

func TestSecureServer(t *testing.T) {
	h := newHarness(t, &config.Configuration{Server: config.ServerConfig{Secure: true, SecretKey: "s3cret"}})

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/records", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/metrics", nil).Code)
}
