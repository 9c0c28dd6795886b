package notary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blnkfinance/recordlist/internal/request"
	"github.com/blnkfinance/recordlist/model"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("recordlist.notary")

// Endpoint is how one notary is reached.
type Endpoint struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// HTTPNotary implements Notary over a JSON HTTP API, one base URL per server id.
type HTTPNotary struct {
	endpoints  map[string]Endpoint
	client     *request.Client
	maxRetries uint64
}

// NewHTTPNotary builds the client. maxRetries bounds retries of idempotent calls only.
func NewHTTPNotary(endpoints map[string]Endpoint, timeout time.Duration, maxRetries uint64) *HTTPNotary {
	return &HTTPNotary{
		endpoints:  endpoints,
		client:     request.NewClient(timeout),
		maxRetries: maxRetries,
	}
}

type reserveRequest struct {
	ServerID string `json:"server_id"`
	Count    int    `json:"count"`
}

type reserveResponse struct {
	Available int `json:"available"`
}

type transactionRequest struct {
	Kind      TransactionKind `json:"kind"`
	NymID     string          `json:"nym_id"`
	ServerID  string          `json:"server_id"`
	AccountID string          `json:"account_id,omitempty"`
	Payload   []byte          `json:"payload"`
}

type transactionReply struct {
	Success *bool  `json:"success"`
	Message string `json:"message,omitempty"`
}

func (n *HTTPNotary) endpoint(serverID string) (Endpoint, error) {
	ep, ok := n.endpoints[serverID]
	if !ok || ep.URL == "" {
		return Endpoint{}, errors.Wrapf(ErrNotaryUnknown, "server %s", serverID)
	}
	ep.URL = strings.TrimRight(ep.URL, "/")
	return ep, nil
}

func (n *HTTPNotary) do(req *http.Request, ep Endpoint, response interface{}) error {
	if ep.Username != "" {
		req.Header.Set("Authorization", "Basic "+request.BasicAuth(ep.Username, ep.Password))
	}
	_, err := n.client.Call(req, response)
	return err
}

// retry runs op with exponential backoff. Client errors are permanent.
func (n *HTTPNotary) retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.maxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (n *HTTPNotary) ReserveTransactionNumbers(ctx context.Context, nymID, serverID string, count int) error {
	ctx, span := tracer.Start(ctx, "Reserving transaction numbers")
	defer span.End()

	ep, err := n.endpoint(serverID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	target := fmt.Sprintf("%s/nyms/%s/transaction-numbers", ep.URL, url.PathEscape(nymID))
	var reply reserveResponse
	err = n.retry(ctx, func() error {
		req, err := request.NewJSONRequest(ctx, http.MethodPost, target, reserveRequest{ServerID: serverID, Count: count})
		if err != nil {
			return backoff.Permanent(err)
		}
		return n.do(req, ep, &reply)
	})
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "reserving transaction numbers")
	}
	if reply.Available < count {
		err = fmt.Errorf("notary reserved %d of %d transaction numbers", reply.Available, count)
		span.RecordError(err)
		return err
	}
	return nil
}

func (n *HTTPNotary) BuildAcceptResponse(_ context.Context, serverID, nymID, accountID string) (*ResponseLedger, error) {
	if serverID == "" || nymID == "" || accountID == "" {
		return nil, errors.New("server, nym and account are required to build a response ledger")
	}
	if _, err := n.endpoint(serverID); err != nil {
		return nil, err
	}
	return NewResponseLedger(serverID, nymID, accountID), nil
}

func (n *HTTPNotary) AppendAcceptItem(ledger *ResponseLedger, entry model.BoxEntry, accept bool) error {
	if ledger == nil {
		return errors.New("response ledger is nil")
	}
	return ledger.Append(entry, accept)
}

func (n *HTTPNotary) FinalizeResponse(ledger *ResponseLedger) ([]byte, error) {
	if ledger == nil {
		return nil, errors.New("response ledger is nil")
	}
	return ledger.Finalize()
}

// DispatchTransaction sends one transaction. It is never retried, since the notary may
// have applied it before the connection failed. The raw reply body is returned for
// InterpretReply.
func (n *HTTPNotary) DispatchTransaction(ctx context.Context, kind TransactionKind, nymID, serverID, accountID string, payload []byte) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Dispatching notary transaction")
	defer span.End()
	span.SetAttributes(attribute.String("notary.kind", string(kind)), attribute.String("notary.server", serverID))

	ep, err := n.endpoint(serverID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	req, err := request.NewJSONRequest(ctx, http.MethodPost, ep.URL+"/transactions", transactionRequest{
		Kind:      kind,
		NymID:     nymID,
		ServerID:  serverID,
		AccountID: accountID,
		Payload:   payload,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var reply json.RawMessage
	if err := n.do(req, ep, &reply); err != nil {
		span.RecordError(err)
		logrus.WithFields(logrus.Fields{"kind": kind, "server": serverID, "nym": nymID}).Errorf("notary transaction failed: %v", err)
		return nil, errors.Wrapf(err, "dispatching %s", kind)
	}
	return reply, nil
}

// InterpretReply reads the success flag of a transaction reply.
func (n *HTTPNotary) InterpretReply(reply []byte) model.ReplyStatus {
	if len(reply) == 0 {
		return model.ReplyMalformed
	}
	var decoded transactionReply
	if err := json.Unmarshal(reply, &decoded); err != nil || decoded.Success == nil {
		return model.ReplyMalformed
	}
	if *decoded.Success {
		return model.ReplySuccess
	}
	return model.ReplyFailure
}

func (n *HTTPNotary) RefreshAccount(ctx context.Context, nymID, serverID, accountID string) (*AccountSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Downloading account")
	defer span.End()

	ep, err := n.endpoint(serverID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	target := fmt.Sprintf("%s/accounts/%s?nym_id=%s", ep.URL, url.PathEscape(accountID), url.QueryEscape(nymID))
	var snapshot AccountSnapshot
	err = n.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		return n.do(req, ep, &snapshot)
	})
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "downloading account %s", accountID)
	}
	if snapshot.AccountID == "" {
		snapshot.AccountID = accountID
	}
	return &snapshot, nil
}
