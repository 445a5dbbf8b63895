// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wardenhq/warden/platform/bridge"
	"github.com/wardenhq/warden/propagation/engine"
	"github.com/wardenhq/warden/propagation/routing"
	"github.com/wardenhq/warden/propagation/storage/sqlite3"
	"github.com/wardenhq/warden/setup/config"
)

var configPath = flag.String("config", "warden.yaml", "Path to the configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatalf("Failed to load config from %q", *configPath)
	}

	level, err := logrus.ParseLevel(cfg.Global.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatalf("Invalid log level %q", cfg.Global.LogLevel)
	}
	logrus.SetLevel(level)

	if cfg.Global.Sentry.Enabled {
		logrus.Info("Setting up Sentry for error reporting")
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Global.Sentry.DSN,
			Environment: cfg.Global.Sentry.Environment,
		}); err != nil {
			logrus.WithError(err).Fatal("Failed to initialize Sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := sqlite3.Open(cfg.Global.DatabasePath)
	if err != nil {
		logrus.WithError(err).Fatalf("Failed to open checkpoint database at %q", cfg.Global.DatabasePath)
	}
	defer db.DB.Close() // nolint: errcheck

	engine := engine.NewPropagationEngine(cfg, bridge.NewClient(&cfg.Bridge), db)

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	routing.Setup(router, engine, cfg)

	logrus.WithFields(logrus.Fields{
		"listen": cfg.API.ListenAddress,
		"bridge": cfg.Bridge.BaseURL,
	}).Info("Starting warden")
	if err := http.ListenAndServe(cfg.API.ListenAddress, router); err != nil {
		logrus.WithError(err).Fatal("Admin API server failed")
	}
}
