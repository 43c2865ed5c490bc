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

package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	log "github.com/sirupsen/logrus"
)

// ScanServiceConfig points at the remote scan service.
type ScanServiceConfig struct {
	URL             string
	TLSVerification bool
}

// CallerSettings are the locally persisted settings that are forwarded to
// the scan service, opaquely, with every request.
type CallerSettings struct {
	AWSRegion           string
	AWSAccessKey        string
	AWSSecretKey        string
	BedrockAgentID      string
	BedrockAgentAliasID string
	S3Bucket            string
	KnowledgeBaseID     string
	GithubTokenSecret   string
}

// IsEmpty .....
func (cs *CallerSettings) IsEmpty() bool {
	return cs == nil || *cs == CallerSettings{}
}

// HeaderValue encodes the settings the way the scan service expects them
// in the X-AWS-Config header: base64 of a JSON object.
func (cs *CallerSettings) HeaderValue() (string, error) {
	payload := map[string]string{
		"region":            cs.AWSRegion,
		"accessKey":         cs.AWSAccessKey,
		"secretKey":         cs.AWSSecretKey,
		"agentId":           cs.BedrockAgentID,
		"agentAliasId":      cs.BedrockAgentAliasID,
		"s3Bucket":          cs.S3Bucket,
		"knowledgeBaseId":   cs.KnowledgeBaseID,
		"githubTokenSecret": cs.GithubTokenSecret,
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(bytes), nil
}

// ArchiveConfig configures the object storage that terminal reports are
// copied to.  Archiving is off unless an endpoint is set.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Enabled .....
func (ac *ArchiveConfig) Enabled() bool {
	return ac != nil && ac.Endpoint != "" && ac.Bucket != ""
}

// HistoryConfig configures the Postgres review history.  It's off unless a
// database URL is set.
type HistoryConfig struct {
	DatabaseURL string
}

// Enabled .....
func (hc *HistoryConfig) Enabled() bool {
	return hc != nil && hc.DatabaseURL != ""
}

// Timings ...
type Timings struct {
	PollPauseMilliseconds   int
	MaxPollAttempts         int
	SubmitTimeoutSeconds    int
	PollTimeoutSeconds      int
	ApplyTimeoutSeconds     int
	HealthCheckPauseSeconds int
}

// DefaultTimings mirror the dashboard's behavior: 20 polls, 5 seconds apart.
var DefaultTimings = &Timings{
	PollPauseMilliseconds:   5000,
	MaxPollAttempts:         20,
	SubmitTimeoutSeconds:    30,
	PollTimeoutSeconds:      100,
	ApplyTimeoutSeconds:     60,
	HealthCheckPauseSeconds: 30,
}

func orDefault(value int, def int) int {
	if value <= 0 {
		return def
	}
	return value
}

// PollPause ...
func (t *Timings) PollPause() time.Duration {
	return time.Duration(orDefault(t.PollPauseMilliseconds, DefaultTimings.PollPauseMilliseconds)) * time.Millisecond
}

// PollAttempts ...
func (t *Timings) PollAttempts() int {
	return orDefault(t.MaxPollAttempts, DefaultTimings.MaxPollAttempts)
}

// SubmitTimeout ...
func (t *Timings) SubmitTimeout() time.Duration {
	return time.Duration(orDefault(t.SubmitTimeoutSeconds, DefaultTimings.SubmitTimeoutSeconds)) * time.Second
}

// PollTimeout applies to every single remote call other than submit and apply.
func (t *Timings) PollTimeout() time.Duration {
	return time.Duration(orDefault(t.PollTimeoutSeconds, DefaultTimings.PollTimeoutSeconds)) * time.Second
}

// ApplyTimeout ...
func (t *Timings) ApplyTimeout() time.Duration {
	return time.Duration(orDefault(t.ApplyTimeoutSeconds, DefaultTimings.ApplyTimeoutSeconds)) * time.Second
}

// HealthCheckPause ...
func (t *Timings) HealthCheckPause() time.Duration {
	return time.Duration(orDefault(t.HealthCheckPauseSeconds, DefaultTimings.HealthCheckPauseSeconds)) * time.Second
}

// Model .....
func (t *Timings) Model() *api.ModelTimings {
	return &api.ModelTimings{
		PollPause:        *api.NewModelTime(t.PollPause()),
		MaxPollAttempts:  t.PollAttempts(),
		SubmitTimeout:    *api.NewModelTime(t.SubmitTimeout()),
		PollTimeout:      *api.NewModelTime(t.PollTimeout()),
		ApplyTimeout:     *api.NewModelTime(t.ApplyTimeout()),
		HealthCheckPause: *api.NewModelTime(t.HealthCheckPause()),
	}
}

// Config ...
type Config struct {
	ScanService *ScanServiceConfig
	Caller      *CallerSettings
	Archive     *ArchiveConfig
	History     *HistoryConfig
	Timings     *Timings
	Port        int
	LogLevel    string
	UseMockMode bool
}

// Validate fills in missing sections and checks that a real scan service
// is configured unless running in mock mode.
func (config *Config) Validate() error {
	if config.ScanService == nil {
		config.ScanService = &ScanServiceConfig{}
	}
	if config.Caller == nil {
		config.Caller = &CallerSettings{}
	}
	if config.Archive == nil {
		config.Archive = &ArchiveConfig{}
	}
	if config.History == nil {
		config.History = &HistoryConfig{}
	}
	if config.Timings == nil {
		config.Timings = &Timings{}
	}
	if config.Archive.Bucket == "" {
		config.Archive.Bucket = config.Caller.S3Bucket
	}
	if config.Archive.Region == "" {
		config.Archive.Region = config.Caller.AWSRegion
	}
	if config.Port <= 0 {
		return fmt.Errorf("invalid port %d", config.Port)
	}
	if _, err := config.GetLogLevel(); err != nil {
		return err
	}
	if !config.UseMockMode && config.ScanService.URL == "" {
		return fmt.Errorf("ScanService.URL is required unless UseMockMode is set")
	}
	return nil
}

// GetLogLevel .....
func (config *Config) GetLogLevel() (log.Level, error) {
	return log.ParseLevel(config.LogLevel)
}

// Model .....
func (config *Config) Model() *api.ModelConfig {
	url := ""
	if config.ScanService != nil {
		url = config.ScanService.URL
	}
	timings := config.Timings
	if timings == nil {
		timings = &Timings{}
	}
	return &api.ModelConfig{
		ScanServiceURL: url,
		Port:           config.Port,
		LogLevel:       config.LogLevel,
		UseMockMode:    config.UseMockMode,
		Timings:        timings.Model(),
	}
}
