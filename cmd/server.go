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
	"errors"
	"fmt"
	"net/http"

	"github.com/blnkfinance/recordlist/api"
	"github.com/blnkfinance/recordlist/config"
	"github.com/blnkfinance/recordlist/describe"
	trace "github.com/blnkfinance/recordlist/internal/traces"
	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const certStoragePath = "certmagic"

// serveTLS serves r over HTTPS with certificates managed by CertMagic. Without a
// configured domain the certificate is issued for localhost.
func serveTLS(r *gin.Engine, conf config.ServerConfig) error {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()
	cfg.Storage = &certmagic.FileStorage{Path: certStoragePath}

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		logrus.Warn("no domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}

	if err := cfg.ManageSync(context.Background(), domains); err != nil {
		return err
	}

	server := &http.Server{
		Addr:      ":" + conf.Port,
		Handler:   r,
		TLSConfig: cfg.TLSConfig(),
	}

	logrus.Infof("starting HTTPS server on %s", conf.Port)
	if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func initializeRouter(b *listInstance) (*gin.Engine, error) {
	formatter := describe.NewFormatter(b.cnf.View.Language, b.cnf.View.Precision)
	a := api.NewAPI(b.list, formatter)
	if a == nil {
		return nil, errors.New("config not loaded")
	}
	return a.Router(), nil
}

// initializeTracing returns a no-op shutdown when telemetry is off.
func initializeTracing(ctx context.Context, cfg *config.Configuration, service string) (func(context.Context) error, error) {
	if !cfg.Telemetry.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	shutdown, err := trace.SetupOTelSDK(ctx, service, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %w", err)
	}
	return shutdown, nil
}

func startServer(router *gin.Engine, cfg config.ServerConfig) error {
	if cfg.SSL {
		return serveTLS(router, cfg)
	}
	logrus.Infof("starting server on http://localhost:%s", cfg.Port)
	return router.Run(":" + cfg.Port)
}

// serverCommands returns the `start` command, which serves the record list API.
func serverCommands(b *listInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "start the record list server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			shutdown, err := initializeTracing(ctx, b.cnf, "RECORDLIST")
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logrus.WithError(err).Error("error during tracer shutdown")
				}
			}()

			router, err := initializeRouter(b)
			if err != nil {
				return err
			}
			return startServer(router, b.cnf.Server)
		},
	}
}
