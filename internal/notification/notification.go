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

package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blnkfinance/recordlist/config"
	"github.com/blnkfinance/recordlist/internal/request"
	"github.com/sirupsen/logrus"
)

const slackTimeout = 10 * time.Second

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

func slackPayload(err error, at time.Time) slackMessage {
	return slackMessage{Blocks: []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "Error From Recordlist 🐞", Emoji: true}},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*Error:*\n%v", err)}}},
		{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%v", at.Format(time.RFC822))}}},
	}}
}

// SlackNotification posts err to the Slack webhook at webhookURL.
//
// Parameters:
// - ctx: Bounds the webhook call.
// - webhookURL: The incoming webhook to post to.
// - err: The error to report.
//
// Returns:
// - error: If the request could not be built or Slack did not accept it.
func SlackNotification(ctx context.Context, webhookURL string, err error) error {
	req, reqErr := request.NewJSONRequest(ctx, http.MethodPost, webhookURL, slackPayload(err, time.Now()))
	if reqErr != nil {
		return reqErr
	}
	_, callErr := request.NewClient(slackTimeout).Call(req, nil)
	return callErr
}

// NotifyError logs systemError and, when a Slack webhook is configured, reports it there.
// It does not block the caller.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			return
		}
		if conf.Notification.Slack.WebhookUrl == "" {
			return
		}
		if err := SlackNotification(context.Background(), conf.Notification.Slack.WebhookUrl, systemError); err != nil {
			logrus.WithError(err).Warn("failed to send slack notification")
		}
	}(systemError)
}
