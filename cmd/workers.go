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

package main

import (
	"context"
	"fmt"

	"github.com/blnkfinance/recordlist"
	"github.com/blnkfinance/recordlist/config"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func initializeQueues(conf *config.Configuration) map[string]int {
	return map[string]int{conf.Queue.RefreshQueue: 1}
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	opt, err := recordlist.RedisClientOpt(conf)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %w", err)
	}

	return asynq.NewServer(opt, asynq.Config{
		Concurrency: conf.Queue.Concurrency,
		Queues:      queues,
		Logger:      logrus.StandardLogger(),
	}), nil
}

func initializeTaskHandlers(b *listInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(b.cnf.Queue.RefreshQueue, b.list.ProcessRefreshTask)
}

// workerCommands defines the `workers` command, which consumes queued account refreshes.
func workerCommands(b *listInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "start record list workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if b.cnf.Redis.Dns == "" {
				return fmt.Errorf("workers need redis: set redis.dns")
			}

			shutdown, err := initializeTracing(ctx, b.cnf, "RECORDLIST_WORKERS")
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.WithError(err).Error("error during tracer shutdown")
				}
			}()

			srv, err := initializeWorkerServer(b.cnf, initializeQueues(b.cnf))
			if err != nil {
				return err
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			logrus.WithField("queue", b.cnf.Queue.RefreshQueue).Info("starting refresh workers")
			return srv.Run(mux)
		},
	}
}
