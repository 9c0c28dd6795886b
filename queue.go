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
	"encoding/json"
	"errors"
	"time"

	"github.com/blnkfinance/recordlist/config"
	redis_db "github.com/blnkfinance/recordlist/internal/redis-db"
	"github.com/blnkfinance/recordlist/model"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const refreshUniqueFor = time.Minute

// RefreshPayload is the body of a refresh task.
type RefreshPayload struct {
	AccountID string `json:"account_id"`
}

// Queue hands account refreshes to the worker process.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	name      string
}

var _ Refresher = (*Queue)(nil)

// RedisClientOpt converts the redis configuration into asynq connection options.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

// NewQueue initializes a new Queue instance with the provided configuration.
//
// Parameters:
// - conf *config.Configuration: The configuration for the queue.
//
// Returns:
// - *Queue: A pointer to the newly created Queue instance.
// - error: An error if the redis URL could not be parsed.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	opt, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:    asynq.NewClient(opt),
		Inspector: asynq.NewInspector(opt),
		name:      conf.Queue.RefreshQueue,
	}, nil
}

// Refresh enqueues a refresh of account. A refresh already waiting for the same account
// is not duplicated.
func (q *Queue) Refresh(ctx context.Context, account *model.Account) error {
	ctx, span := tracer.Start(ctx, "Adding account refresh to queue")
	defer span.End()

	payload, err := json.Marshal(RefreshPayload{AccountID: account.AccountID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(q.name, payload,
		asynq.Queue(q.name),
		asynq.Unique(refreshUniqueFor),
		asynq.MaxRetry(5),
	)
	info, err := q.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logrus.WithField("account", account.AccountID).Debug("account refresh already queued")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	logrus.WithFields(logrus.Fields{"account": account.AccountID, "task": info.ID}).Info("account refresh queued")
	return nil
}

func (q *Queue) Close() error {
	if err := q.Inspector.Close(); err != nil {
		return err
	}
	return q.Client.Close()
}

// ProcessRefreshTask is the worker handler for refresh tasks.
func (l *RecordList) ProcessRefreshTask(ctx context.Context, t *asynq.Task) error {
	ctx, span := tracer.Start(ctx, "Process Account Refresh From Queue")
	defer span.End()

	var payload RefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("malformed refresh task")
		return errors.Join(err, asynq.SkipRetry)
	}
	if err := l.RefreshAccount(ctx, payload.AccountID); err != nil {
		span.RecordError(err)
		return err
	}
	logrus.WithField("account", payload.AccountID).Info("account refreshed")
	return nil
}
