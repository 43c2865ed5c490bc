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
	"fmt"
	"net/http"
	"strings"

	"github.com/mathenaangeles/Dispatch/pkg/scanservice/mockservice"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("DSP_MOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("Port", 8000)
	v.SetDefault("ProcessingPolls", 2)

	port := v.GetInt("Port")
	processingPolls := v.GetInt("ProcessingPolls")
	log.Infof("starting mock scan service on port %d, scans stay processing for %d polls", port, processingPolls)

	service := mockservice.NewService(processingPolls)
	err := http.ListenAndServe(fmt.Sprintf(":%d", port), service.Router())
	log.Fatalf("mock scan service stopped: %s", err.Error())
}
