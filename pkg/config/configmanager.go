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
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ConfigManager handles:
//   - getting initial config
//   - reporting ongoing changes to config
type ConfigManager struct {
	ConfigPath string
	v          *viper.Viper
}

// NewConfigManager ...
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{
		ConfigPath: configPath,
		v:          viper.New(),
	}
}

var envKeys = []string{
	"ScanService.URL",
	"ScanService.TLSVerification",

	"Caller.AWSRegion",
	"Caller.AWSAccessKey",
	"Caller.AWSSecretKey",
	"Caller.BedrockAgentID",
	"Caller.BedrockAgentAliasID",
	"Caller.S3Bucket",
	"Caller.KnowledgeBaseID",
	"Caller.GithubTokenSecret",

	"Archive.Endpoint",
	"Archive.AccessKey",
	"Archive.SecretKey",
	"Archive.Region",
	"Archive.Bucket",
	"Archive.Prefix",
	"Archive.UseSSL",

	"History.DatabaseURL",

	"Timings.PollPauseMilliseconds",
	"Timings.MaxPollAttempts",
	"Timings.SubmitTimeoutSeconds",
	"Timings.PollTimeoutSeconds",
	"Timings.ApplyTimeoutSeconds",
	"Timings.HealthCheckPauseSeconds",

	"LogLevel",
	"Port",
	"UseMockMode",
}

// GetConfig returns a configuration object to configure the orchestrator.
// Values come from the config file if there is one, with environment
// variables (DSP_SCANSERVICE_URL, DSP_TIMINGS_MAXPOLLATTEMPTS, ...) on top.
func (cm *ConfigManager) GetConfig() (*Config, error) {
	var config *Config

	cm.v.SetEnvPrefix("DSP")
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := cm.v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %v", key, err)
		}
	}
	cm.v.AutomaticEnv()

	cm.v.SetDefault("LogLevel", "info")
	cm.v.SetDefault("Port", 8080)
	cm.v.SetDefault("Archive.Prefix", "scans")
	cm.v.SetDefault("ScanService.TLSVerification", true)

	if cm.ConfigPath != "" {
		cm.v.SetConfigFile(cm.ConfigPath)
		err := cm.v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	err := cm.v.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}
	if config == nil {
		config = &Config{}
	}

	err = config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}

	return config, nil
}

// StartWatch will call `continuation` whenever the config file changes.
// Without a config file there's nothing to watch.
func (cm *ConfigManager) StartWatch(continuation func(*Config, error)) {
	if cm.ConfigPath == "" {
		log.Debugf("no config file, not watching for config changes")
		return
	}
	cm.v.OnConfigChange(func(event fsnotify.Event) {
		log.Infof("config change detected: %s %s", event.Op.String(), event.Name)
		continuation(cm.GetConfig())
	})
	cm.v.WatchConfig()
}
