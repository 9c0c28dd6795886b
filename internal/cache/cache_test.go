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

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blnkfinance/recordlist/config"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{Redis: config.RedisConfig{Dns: mr.Addr()}})

	c, err := NewCache()
	require.NoError(t, err)
	return c, mr
}

type lookup struct {
	ID   string
	Name string
}

func TestLoad_CallsLoaderOnce(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	want := lookup{ID: gofakeit.UUID(), Name: gofakeit.Name()}
	calls := 0
	load := func() (interface{}, error) {
		calls++
		return want, nil
	}

	var first, second lookup
	require.NoError(t, c.Load(ctx, "lookup:1", &first, 10*time.Minute, load))
	require.NoError(t, c.Load(ctx, "lookup:1", &second, 10*time.Minute, load))

	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("lookup:1"))
}

func TestLoad_ErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	errGone := errors.New("gone")
	var dst string
	err := c.Load(ctx, "nym:missing", &dst, time.Minute, func() (interface{}, error) {
		return nil, errGone
	})
	assert.ErrorIs(t, err, errGone)
	assert.Empty(t, dst)
	assert.False(t, mr.Exists("nym:missing"))

	require.NoError(t, c.Load(ctx, "nym:missing", &dst, time.Minute, func() (interface{}, error) {
		return "Alice", nil
	}))
	assert.Equal(t, "Alice", dst)
}

func TestEvict(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	var dst string
	require.NoError(t, c.Load(ctx, "nym:1", &dst, time.Minute, func() (interface{}, error) { return "Alice", nil }))
	require.NoError(t, c.Evict(ctx, "nym:1"))
	assert.False(t, mr.Exists("nym:1"))

	require.NoError(t, c.Load(ctx, "nym:1", &dst, time.Minute, func() (interface{}, error) { return "Alicia", nil }))
	assert.Equal(t, "Alicia", dst)

	assert.NoError(t, c.Evict(ctx, "nym:never"))
}
