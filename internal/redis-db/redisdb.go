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

package redis_db

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/blnkfinance/recordlist/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrNoAddress = errors.New("redis address is empty")

const (
	pingTimeout  = 500 * time.Millisecond
	pingAttempts = 3
)

// Redis holds the client shared by the lookup cache, the account lock and the refresh queue.
type Redis struct {
	client *redis.Client
}

// ParseRedisURL accepts a bare host:port as well as redis:// and rediss:// URLs.
// "redis://secret@host:6379" is read as a password with no username.
func ParseRedisURL(dns string, skipTLSVerify bool) (*redis.Options, error) {
	dns = strings.TrimSpace(dns)
	switch {
	case dns == "":
		return nil, ErrNoAddress
	case !strings.Contains(dns, "://"):
		return &redis.Options{Addr: dns}, nil
	}

	if rest, ok := strings.CutPrefix(dns, "redis://"); ok {
		if user, host, found := strings.Cut(rest, "@"); found && !strings.Contains(user, ":") {
			dns = "redis://:" + user + "@" + host
		}
	}

	opts, err := redis.ParseURL(dns)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	if opts.TLSConfig != nil && skipTLSVerify {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opts, nil
}

// NewRedisClient connects to the configured instance. The first ping is retried a few
// times so the wallet can start alongside a redis container that is still booting.
func NewRedisClient(conf config.RedisConfig) (*Redis, error) {
	opts, err := ParseRedisURL(conf.Dns, conf.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
	notify := func(err error, wait time.Duration) {
		logrus.WithError(err).WithField("addr", opts.Addr).Warnf("redis not ready, retrying in %s", wait)
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), pingAttempts-1)
	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", opts.Addr)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

func (r *Redis) Close() error {
	return r.client.Close()
}
