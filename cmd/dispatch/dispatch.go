/*
Copyright (C) 2018 Synopsys, Inc.

Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements. See the NOTICE file
distributed with this work for additional information
regarding copyright ownership. The ASF licenses this file
to you under the Apache License, Version 2.0 (the
"License"); you may not use this file except in compliance
with the License. You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied. See the License for the
specific language governing permissions and limitations
under the License.
*/

package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mathenaangeles/Dispatch/pkg/archive"
	"github.com/mathenaangeles/Dispatch/pkg/config"
	"github.com/mathenaangeles/Dispatch/pkg/core"
	"github.com/mathenaangeles/Dispatch/pkg/history"
	"github.com/mathenaangeles/Dispatch/pkg/httpserver"
	"github.com/mathenaangeles/Dispatch/pkg/scanservice"
	"github.com/mathenaangeles/Dispatch/pkg/scanservice/mockservice"
	log "github.com/sirupsen/logrus"
)

const (
	mockProcessingPolls = 2
	startupTimeout      = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
)

func main() {
	// .env files are optional, and never override the real environment
	for _, path := range []string{".env.local", ".env"} {
		if err := godotenv.Load(path); err == nil {
			log.Infof("loaded environment from %s", path)
		}
	}

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	log.Infof("starting dispatch with config path '%s'", configPath)
	runDispatch(configPath)
}

func runDispatch(configPath string) {
	configManager := config.NewConfigManager(configPath)
	cfg, err := configManager.GetConfig()
	if err != nil {
		log.Fatalf("unable to get config: %s", err.Error())
	}
	setLogLevel(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	stop := make(chan struct{})

	scanClient, err := newScanServiceClient(cfg, stop)
	if err != nil {
		log.Fatalf("unable to create scan service client: %s", err.Error())
	}

	options := []core.Option{}
	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	defer startupCancel()
	if cfg.Archive.Enabled() {
		archiver, err := archive.NewS3Archiver(cfg.Archive)
		if err != nil {
			log.Fatalf("unable to create archiver: %s", err.Error())
		}
		if err := archiver.EnsureBucket(startupCtx); err != nil {
			log.Fatalf("unable to prepare archive bucket: %s", err.Error())
		}
		log.Infof("archiving reports to %s/%s", cfg.Archive.Endpoint, cfg.Archive.Bucket)
		options = append(options, core.WithArchiver(archiver))
	}
	if cfg.History.Enabled() {
		store, err := history.Open(startupCtx, cfg.History.DatabaseURL)
		if err != nil {
			log.Fatalf("unable to open history: %s", err.Error())
		}
		defer store.Close()
		if err := store.EnsureSchema(startupCtx); err != nil {
			log.Fatalf("unable to prepare history schema: %s", err.Error())
		}
		log.Info("recording review history")
		options = append(options, core.WithRecorder(store))
	}

	orchestrator := core.NewOrchestrator(scanClient, cfg.Timings, stop, options...)
	if err := orchestrator.SetConfig(cfg); err != nil {
		log.Fatalf("unable to apply config: %s", err.Error())
	}
	configManager.StartWatch(func(newConfig *config.Config, err error) {
		if err != nil {
			log.Errorf("unable to reload config: %s", err.Error())
			return
		}
		setLogLevel(newConfig)
		if err := orchestrator.SetConfig(newConfig); err != nil {
			log.Errorf("unable to apply reloaded config: %s", err.Error())
		}
	})

	server := httpserver.SetupHTTPServer(cfg.Port, orchestrator)
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("unable to shut down http server: %s", err.Error())
		}
	}()
	if err := httpserver.ListenAndServe(server); err != nil {
		log.Error(err.Error())
	}
	close(stop)
}

func setLogLevel(cfg *config.Config) {
	level, err := cfg.GetLogLevel()
	if err != nil {
		log.Errorf("unable to get log level: %s", err.Error())
		return
	}
	log.SetLevel(level)
}

// newScanServiceClient talks to the configured scan service, or in mock
// mode, to an in-process mock service.
func newScanServiceClient(cfg *config.Config, stop <-chan struct{}) (*scanservice.Client, error) {
	if !cfg.UseMockMode {
		log.Infof("using scan service at %s", cfg.ScanService.URL)
		return scanservice.NewHTTPClient(cfg.ScanService, cfg.Timings), nil
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	server := &http.Server{Handler: mockservice.NewService(mockProcessingPolls).Router()}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("mock scan service failed: %s", err.Error())
		}
	}()
	go func() {
		<-stop
		server.Close()
	}()
	url := "http://" + listener.Addr().String()
	log.Warnf("mock mode: using in-process scan service at %s", url)
	return scanservice.NewHTTPClient(&config.ScanServiceConfig{URL: url, TLSVerification: true}, cfg.Timings), nil
}
