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

package core

import (
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/util"
	log "github.com/sirupsen/logrus"
)

func (o *Orchestrator) startHealthMonitor(pause time.Duration) *util.Timer {
	log.Infof("checking scan service health every %s", pause)
	return util.NewRunningTimer("healthCheck", pause, o.stop, false, func() {
		status := o.Health(o.ctx)
		if status.Status == api.HealthStatusUnreachable {
			log.Warnf("scan service is unreachable")
		} else {
			log.Debugf("scan service health: %s", status.Status)
		}
	})
}

// PauseHealthChecks .....
func (o *Orchestrator) PauseHealthChecks() error {
	return o.healthTimer.Pause()
}

// ResumeHealthChecks .....
func (o *Orchestrator) ResumeHealthChecks(runNow bool) error {
	return o.healthTimer.Resume(runNow)
}
