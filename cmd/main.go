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
	"fmt"
	"os"
	"time"

	"github.com/blnkfinance/recordlist"
	"github.com/blnkfinance/recordlist/config"
	"github.com/blnkfinance/recordlist/database"
	"github.com/blnkfinance/recordlist/internal/notification"
	redis_db "github.com/blnkfinance/recordlist/internal/redis-db"
	"github.com/blnkfinance/recordlist/notary"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI wraps the root cobra command.
type CLI struct {
	cmd *cobra.Command
}

// listInstance holds what every subcommand needs once the config is loaded.
type listInstance struct {
	list  *recordlist.RecordList
	cnf   *config.Configuration
	queue *recordlist.Queue
	redis *redis_db.Redis
}

func (b *listInstance) close() {
	if b.queue != nil {
		if err := b.queue.Close(); err != nil {
			logrus.WithError(err).Warn("closing refresh queue")
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logrus.WithError(err).Warn("closing redis client")
		}
	}
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the record list before any subcommand runs.
func preRun(app *listInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		if err := setupRecordList(app, cnf); err != nil {
			notification.NotifyError(err)
			return err
		}
		app.cnf = cnf
		return nil
	}
}

func notaryClient(cnf *config.Configuration) *notary.HTTPNotary {
	endpoints := make(map[string]notary.Endpoint, len(cnf.Notaries))
	for id, ep := range cnf.Notaries {
		endpoints[id] = notary.Endpoint{URL: ep.URL, Username: ep.Username, Password: ep.Password}
	}
	timeout := time.Duration(cnf.NotaryClient.TimeoutSec) * time.Second
	return notary.NewHTTPNotary(endpoints, timeout, cnf.NotaryClient.MaxRetries)
}

// setupRecordList connects the datasource and, when redis is configured, the account
// lock and the refresh queue.
func setupRecordList(app *listInstance, cnf *config.Configuration) error {
	ds, err := database.NewDataSource(cnf)
	if err != nil {
		return fmt.Errorf("error getting datasource: %w", err)
	}

	var opts []recordlist.Option
	if cnf.Redis.Dns != "" {
		client, err := redis_db.NewRedisClient(cnf.Redis)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %w", err)
		}
		app.redis = client
		opts = append(opts, recordlist.WithLockClient(client.Client()))

		if cnf.AutoAccept.AsyncRefresh {
			queue, err := recordlist.NewQueue(cnf)
			if err != nil {
				return fmt.Errorf("error creating refresh queue: %w", err)
			}
			app.queue = queue
			opts = append(opts, recordlist.WithRefresher(queue))
		}
	}

	app.list = recordlist.NewRecordListFromConfig(cnf, ds, notaryClient(cnf), opts...)
	return nil
}

// NewCLI creates the root command and registers every subcommand.
func NewCLI() *CLI {
	var configFile string
	b := &listInstance{}

	rootCmd := &cobra.Command{
		Use:          "recordlist",
		Short:        "Wallet activity feed",
		SilenceUsage: true,
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		b.close()
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./recordlist.json", "Configuration file for the record list")
	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))
	rootCmd.AddCommand(configCommands(b))
	rootCmd.AddCommand(feedCommands(b))
	rootCmd.AddCommand(acceptInboxCommands(b))
	rootCmd.AddCommand(acceptPaymentsCommands(b))
	rootCmd.AddCommand(autoAcceptCommands(b))

	return &CLI{cmd: rootCmd}
}

func (c CLI) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
