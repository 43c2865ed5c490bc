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
	"context"
	"fmt"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	log "github.com/sirupsen/logrus"
)

// ScanPoller is the part of the scan service the poller needs.
type ScanPoller interface {
	PollScan(ctx context.Context, scanID string) (*api.PollResult, error)
}

// Poller polls a scan until it's done.  Attempts are strictly sequential
// with a fixed pause between them; there's no pause after the last one.
type Poller struct {
	service     ScanPoller
	pause       time.Duration
	maxAttempts int
}

// NewPoller .....
func NewPoller(service ScanPoller, pause time.Duration, maxAttempts int) *Poller {
	return &Poller{service: service, pause: pause, maxAttempts: maxAttempts}
}

// Poll returns the scan's terminal report.  `progress` is called with every
// non-terminal answer.  A failed poll ends polling immediately and its
// error is returned as is; running out of attempts returns a *TimeoutError.
func (p *Poller) Poll(ctx context.Context, scanID string, progress func(*api.PollResult)) (*api.ScanReport, error) {
	if scanID == "" {
		return nil, ErrEmptyScanID
	}
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		log.Debugf("polling scan %s, attempt %d of %d", scanID, attempt, p.maxAttempts)
		recordPollAttempt()
		result, err := p.service.PollScan(ctx, scanID)
		if err != nil {
			recordPollOutcome("error")
			return nil, err
		}
		if !result.InProgress {
			if result.Report == nil {
				recordPollOutcome("error")
				return nil, fmt.Errorf("scan %s finished without a report", scanID)
			}
			return result.Report, nil
		}
		if progress != nil {
			progress(result)
		}
		if attempt == p.maxAttempts {
			break
		}
		if err := p.wait(ctx); err != nil {
			recordPollOutcome("error")
			return nil, err
		}
	}
	recordPollOutcome("timeout")
	return nil, &TimeoutError{
		ScanID:   scanID,
		Attempts: p.maxAttempts,
		Waited:   time.Duration(p.maxAttempts-1) * p.pause,
	}
}

func (p *Poller) wait(ctx context.Context) error {
	timer := time.NewTimer(p.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
