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
	"reflect"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/core/actions"
	m "github.com/mathenaangeles/Dispatch/pkg/core/model"
	log "github.com/sirupsen/logrus"
)

// startReducer applies actions to the model, one at a time, until `stop`
// is closed.  The reducer goroutine is the only one that touches the model.
func startReducer(model *m.Model, stop <-chan struct{}, actionsCh <-chan actions.Action) {
	go func() {
		for {
			select {
			case <-stop:
				log.Info("stopping reducer")
				return
			case nextAction := <-actionsCh:
				actionName := reflect.TypeOf(nextAction).String()
				start := time.Now()
				nextAction.Apply(model)
				duration := time.Since(start)
				log.Debugf("processed action %s in %s", actionName, duration)
				recordReducerActivity(actionName, duration)
			}
		}
	}()
}
