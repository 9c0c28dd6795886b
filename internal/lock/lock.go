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

// Package redlock serializes accept-then-refresh sequences on one account across processes.
package redlock

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrHeld means another owner holds the lock.
	ErrHeld = errors.New("lock is held by another owner")
	// ErrNotHolder means the lock expired or was taken over before Unlock.
	ErrNotHolder = errors.New("lock is not held by this owner")
	// ErrWaitTimeout means WaitLock gave up.
	ErrWaitTimeout = errors.New("timed out waiting for lock")
)

// releaseScript deletes the key only while it still carries the owner's value.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// AccountKey is the lock key guarding an asset account inbox.
func AccountKey(accountID string) string {
	return "recordlist:account:" + accountID
}

// Locker is one owner's handle on a redis lock key.
type Locker struct {
	client redis.UniversalClient
	key    string
	owner  string
}

func NewLocker(client redis.UniversalClient, key, owner string) *Locker {
	return &Locker{client: client, key: key, owner: owner}
}

// Lock takes the lock once. The lock expires after ttl if never released.
func (l *Locker) Lock(ctx context.Context, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, ttl).Result()
	if err != nil {
		return errors.Wrapf(err, "locking %s", l.key)
	}
	if !ok {
		return errors.Wrap(ErrHeld, l.key)
	}
	return nil
}

// Unlock releases the lock if this owner still holds it.
func (l *Locker) Unlock(ctx context.Context) error {
	released, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.owner).Int64()
	if err != nil {
		return errors.Wrapf(err, "unlocking %s", l.key)
	}
	if released == 0 {
		return errors.Wrap(ErrNotHolder, l.key)
	}
	return nil
}

// WaitLock retries Lock with jitter while the lock is held by someone else. It stops on
// any other error, when wait passes, or when ctx is done.
func (l *Locker) WaitLock(ctx context.Context, ttl, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		err := l.Lock(ctx, ttl)
		if err == nil || !errors.Is(err, ErrHeld) {
			return err
		}
		if !time.Now().Before(deadline) {
			return errors.Wrap(ErrWaitTimeout, l.key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(10+rand.Intn(90)) * time.Millisecond):
		}
	}
}
