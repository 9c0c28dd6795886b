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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT          = "5002"
	DEFAULT_DRIVER        = "postgres"
	DEFAULT_RESERVE_COUNT = 20
	DEFAULT_QUEUE         = "refresh_account"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"RECORDLIST_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"RECORDLIST_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"RECORDLIST_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"RECORDLIST_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"RECORDLIST_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"RECORDLIST_SERVER_PORT"`
}

type DataSourceConfig struct {
	Driver string `json:"driver" envconfig:"RECORDLIST_DATA_SOURCE_DRIVER"`
	Dns    string `json:"dns" envconfig:"RECORDLIST_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"RECORDLIST_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"RECORDLIST_REDIS_SKIP_TLS_VERIFY"`
}

// NotaryEndpoint is how the wallet reaches one notary server.
type NotaryEndpoint struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type NotaryClientConfig struct {
	TimeoutSec int    `json:"timeout_sec" envconfig:"RECORDLIST_NOTARY_TIMEOUT_SEC"`
	MaxRetries uint64 `json:"max_retries" envconfig:"RECORDLIST_NOTARY_MAX_RETRIES"`
}

// ViewConfig holds the care-about sets of the activity view.
type ViewConfig struct {
	Servers    []string          `json:"servers" envconfig:"RECORDLIST_VIEW_SERVERS"`
	Nyms       []string          `json:"nyms" envconfig:"RECORDLIST_VIEW_NYMS"`
	Accounts   []string          `json:"accounts" envconfig:"RECORDLIST_VIEW_ACCOUNTS"`
	UnitTypes  map[string]string `json:"unit_types" envconfig:"RECORDLIST_VIEW_UNIT_TYPES"`
	Precision  int32             `json:"precision" envconfig:"RECORDLIST_VIEW_PRECISION"`
	IgnoreMail bool              `json:"ignore_mail" envconfig:"RECORDLIST_VIEW_IGNORE_MAIL"`
	Fast       bool              `json:"fast" envconfig:"RECORDLIST_VIEW_FAST"`
	Language   string            `json:"language" envconfig:"RECORDLIST_VIEW_LANGUAGE"`
	ToLabel    string            `json:"to_label" envconfig:"RECORDLIST_VIEW_TO_LABEL"`
	FromLabel  string            `json:"from_label" envconfig:"RECORDLIST_VIEW_FROM_LABEL"`
}

type AutoAcceptConfig struct {
	Cheques      bool `json:"cheques" envconfig:"RECORDLIST_AUTO_ACCEPT_CHEQUES"`
	Cash         bool `json:"cash" envconfig:"RECORDLIST_AUTO_ACCEPT_CASH"`
	Receipts     bool `json:"receipts" envconfig:"RECORDLIST_AUTO_ACCEPT_RECEIPTS"`
	Transfers    bool `json:"transfers" envconfig:"RECORDLIST_AUTO_ACCEPT_TRANSFERS"`
	ReserveCount int  `json:"reserve_count" envconfig:"RECORDLIST_AUTO_ACCEPT_RESERVE_COUNT"`
	AsyncRefresh bool `json:"async_refresh" envconfig:"RECORDLIST_AUTO_ACCEPT_ASYNC_REFRESH"`
}

type QueueConfig struct {
	RefreshQueue string `json:"refresh_queue" envconfig:"RECORDLIST_QUEUE_REFRESH"`
	Concurrency  int    `json:"concurrency" envconfig:"RECORDLIST_QUEUE_CONCURRENCY"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"RECORDLIST_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"RECORDLIST_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"RECORDLIST_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"RECORDLIST_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type TelemetryConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"RECORDLIST_TELEMETRY_ENABLED"`
	Endpoint string `json:"endpoint" envconfig:"RECORDLIST_TELEMETRY_ENDPOINT"`
	Insecure bool   `json:"insecure" envconfig:"RECORDLIST_TELEMETRY_INSECURE"`
}

type Configuration struct {
	ProjectName  string                    `json:"project_name" envconfig:"RECORDLIST_PROJECT_NAME"`
	Server       ServerConfig              `json:"server"`
	DataSource   DataSourceConfig          `json:"data_source"`
	Redis        RedisConfig               `json:"redis"`
	Notaries     map[string]NotaryEndpoint `json:"notaries" ignored:"true"`
	NotaryClient NotaryClientConfig        `json:"notary_client"`
	View         ViewConfig                `json:"view"`
	AutoAccept   AutoAcceptConfig          `json:"auto_accept"`
	Queue        QueueConfig               `json:"queue"`
	Notification Notification              `json:"notification"`
	RateLimit    RateLimitConfig           `json:"rate_limit"`
	Telemetry    TelemetryConfig           `json:"telemetry"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("recordlist", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called recordlist.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Record List"
	}

	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.DataSource.Driver == "" {
		cnf.DataSource.Driver = DEFAULT_DRIVER
	}
	if cnf.DataSource.Driver != "postgres" && cnf.DataSource.Driver != "sqlite3" {
		return fmt.Errorf("unsupported data source driver %q", cnf.DataSource.Driver)
	}

	if cnf.Redis.Dns == "" {
		log.Println("Warning: Redis DNS is empty. Locks, lookup cache and the refresh queue are disabled.")
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	for id, ep := range cnf.Notaries {
		if strings.TrimSpace(ep.URL) == "" {
			return fmt.Errorf("notary %s has no url", id)
		}
	}
	if cnf.NotaryClient.TimeoutSec <= 0 {
		cnf.NotaryClient.TimeoutSec = 30
	}
	if cnf.NotaryClient.MaxRetries == 0 {
		cnf.NotaryClient.MaxRetries = 3
	}

	if cnf.View.Precision <= 0 {
		cnf.View.Precision = 2
	}
	if cnf.View.Language == "" {
		cnf.View.Language = "en"
	}
	if cnf.View.ToLabel == "" {
		cnf.View.ToLabel = "To: %s"
	}
	if cnf.View.FromLabel == "" {
		cnf.View.FromLabel = "From: %s"
	}

	if cnf.AutoAccept.ReserveCount <= 0 {
		cnf.AutoAccept.ReserveCount = DEFAULT_RESERVE_COUNT
	}
	if cnf.AutoAccept.AsyncRefresh && cnf.Redis.Dns == "" {
		log.Println("Warning: async refresh needs redis. Refreshing inline.")
		cnf.AutoAccept.AsyncRefresh = false
	}

	if cnf.Queue.RefreshQueue == "" {
		cnf.Queue.RefreshQueue = DEFAULT_QUEUE
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 5
	}

	if cnf.Telemetry.Enabled && cnf.Telemetry.Endpoint == "" {
		cnf.Telemetry.Endpoint = "localhost:4318"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
