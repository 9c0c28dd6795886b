package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhook = "https://hooks.slack.test/services/T000/B000/XXXX"

func TestSlackNotification(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var got slackMessage
	httpmock.RegisterResponder(http.MethodPost, webhook, func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	err := SlackNotification(context.Background(), webhook, errors.New("inbox accept failed"))
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	require.Len(t, got.Blocks, 3)
	assert.Equal(t, "header", got.Blocks[0].Type)
	assert.True(t, strings.Contains(got.Blocks[1].Fields[0].Text, "inbox accept failed"))
}

func TestSlackNotification_Rejected(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, webhook, httpmock.NewStringResponder(http.StatusForbidden, "invalid_token"))

	err := SlackNotification(context.Background(), webhook, errors.New("boom"))
	assert.Error(t, err)
}

func TestSlackPayload(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := slackPayload(errors.New("boom"), at)
	assert.Equal(t, "*Time:*\n"+at.Format(time.RFC822), msg.Blocks[2].Fields[0].Text)
}
