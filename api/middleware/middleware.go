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
package middleware

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"time"

	"github.com/blnkfinance/recordlist/config"
	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"
)

// SecretKeyHeader carries the server secret on every request when the server is secure.
const SecretKeyHeader = "X-Blnk-Key"

const defaultLimiterTTL = time.Hour

func passThrough(c *gin.Context) { c.Next() }

// RateLimitMiddleware limits requests per client address with tollbooth. It is a no-op
// unless both requests_per_second and burst are set. Paths in exempt are never limited,
// so probes and scrapes keep working under load.
func RateLimitMiddleware(conf config.RateLimitConfig, exempt ...string) gin.HandlerFunc {
	if conf.RequestsPerSecond == nil || conf.Burst == nil {
		return passThrough
	}

	ttl := defaultLimiterTTL
	if conf.CleanupIntervalSec != nil {
		ttl = time.Duration(*conf.CleanupIntervalSec) * time.Second
	}
	lmt := tollbooth.NewLimiter(*conf.RequestsPerSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: ttl}).
		SetBurst(*conf.Burst).
		SetMessage("too many requests against the record list")

	return func(c *gin.Context) {
		if slices.Contains(exempt, c.FullPath()) {
			c.Next()
			return
		}
		if limited := tollbooth.LimitByRequest(lmt, c.Writer, c.Request); limited != nil {
			c.AbortWithStatusJSON(limited.StatusCode, gin.H{"error": limited.Message})
			return
		}
		c.Next()
	}
}

// SecretKeyAuthMiddleware rejects requests whose SecretKeyHeader does not match secret.
// An empty secret on a secure server is a misconfiguration and fails every request.
func SecretKeyAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "secret key is not configured"})
			return
		}

		switch provided := c.GetHeader(SecretKeyHeader); {
		case provided == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing secret key"})
		case subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) != 1:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret key"})
		default:
			c.Next()
		}
	}
}
