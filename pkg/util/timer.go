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

package util

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// TimerState describes the state of a timer
type TimerState int

// .....
const (
	TimerStateWaiting TimerState = iota
	TimerStateRunning TimerState = iota
	TimerStatePaused  TimerState = iota
	TimerStateStopped TimerState = iota
)

// String .....
func (state TimerState) String() string {
	switch state {
	case TimerStateWaiting:
		return "TimerStateWaiting"
	case TimerStateRunning:
		return "TimerStateRunning"
	case TimerStatePaused:
		return "TimerStatePaused"
	case TimerStateStopped:
		return "TimerStateStopped"
	}
	panic(fmt.Errorf("invalid TimerState value: %d", state))
}

type timerResume struct {
	runNow bool
	err    chan error
}

// Timer runs `action` repeatedly, waiting `delay` after each run finishes
// before starting the next one, so runs never overlap.  It can be paused,
// resumed and re-timed while running, and exits once `stop` is closed.
type Timer struct {
	name   string
	delay  time.Duration
	action func()
	// channels
	pause    chan chan error
	resume   chan *timerResume
	setDelay chan time.Duration
	getState chan chan TimerState
	stop     <-chan struct{}
}

// NewRunningTimer creates a timer and resumes it right away.
func NewRunningTimer(name string, delay time.Duration, stop <-chan struct{}, runNow bool, action func()) *Timer {
	timer := NewTimer(name, delay, stop, action)
	if err := timer.Resume(runNow); err != nil {
		log.Errorf("timer %s: unable to start: %s", name, err.Error())
	}
	return timer
}

// NewTimer creates a paused timer.
func NewTimer(name string, delay time.Duration, stop <-chan struct{}, action func()) *Timer {
	if delay <= 0 {
		panic(fmt.Errorf("invalid delay for timer %s: must be positive, was %s", name, delay))
	}
	timer := &Timer{
		name:     name,
		delay:    delay,
		action:   action,
		pause:    make(chan chan error),
		resume:   make(chan *timerResume),
		setDelay: make(chan time.Duration),
		getState: make(chan chan TimerState),
		stop:     stop,
	}
	go timer.loop()
	return timer
}

func (timer *Timer) loop() {
	state := TimerStatePaused
	pauseQueued := false
	finished := make(chan time.Duration)
	var wait *time.Timer
	var fire <-chan time.Time

	disarm := func() {
		if wait != nil {
			wait.Stop()
		}
		fire = nil
	}
	arm := func() {
		disarm()
		wait = time.NewTimer(timer.delay)
		fire = wait.C
		state = TimerStateWaiting
	}
	run := func() {
		disarm()
		state = TimerStateRunning
		go func() {
			start := time.Now()
			timer.action()
			select {
			case finished <- time.Since(start):
			case <-timer.stop:
			}
		}()
	}

	for {
		select {
		case <-fire:
			run()
		case elapsed := <-finished:
			recordTimerAction(timer.name, elapsed)
			if pauseQueued {
				pauseQueued = false
				state = TimerStatePaused
			} else {
				arm()
			}
		case ch := <-timer.pause:
			switch state {
			case TimerStateWaiting:
				disarm()
				state = TimerStatePaused
				ch <- nil
			case TimerStateRunning:
				if pauseQueued {
					ch <- fmt.Errorf("cannot pause timer %s: pause already queued up", timer.name)
				} else {
					pauseQueued = true
					ch <- nil
				}
			default:
				ch <- fmt.Errorf("cannot pause timer %s while in state %s", timer.name, state.String())
			}
		case r := <-timer.resume:
			if state != TimerStatePaused {
				r.err <- fmt.Errorf("cannot resume timer %s while in state %s", timer.name, state.String())
				break
			}
			r.err <- nil
			if r.runNow {
				run()
			} else {
				arm()
			}
		case delay := <-timer.setDelay:
			timer.delay = delay
			if state == TimerStateWaiting {
				arm()
			}
		case ch := <-timer.getState:
			ch <- state
		case <-timer.stop:
			disarm()
			log.Debugf("timer %s: stopped from state %s", timer.name, state)
			return
		}
	}
}

// Pause stops the timer from scheduling further runs.  If a run is in
// progress, the pause takes effect when it finishes.
func (timer *Timer) Pause() error {
	ch := make(chan error)
	select {
	case timer.pause <- ch:
		return <-ch
	case <-timer.stop:
		return fmt.Errorf("cannot pause timer %s: stopped", timer.name)
	}
}

// Resume restarts a paused timer, optionally running the action right away.
func (timer *Timer) Resume(runNow bool) error {
	r := &timerResume{runNow: runNow, err: make(chan error)}
	select {
	case timer.resume <- r:
		return <-r.err
	case <-timer.stop:
		return fmt.Errorf("cannot resume timer %s: stopped", timer.name)
	}
}

// SetDelay changes the delay.  A pending wait is restarted with the new delay.
func (timer *Timer) SetDelay(delay time.Duration) error {
	if delay <= 0 {
		return fmt.Errorf("invalid delay for timer %s: must be positive, was %s", timer.name, delay)
	}
	select {
	case timer.setDelay <- delay:
		return nil
	case <-timer.stop:
		return fmt.Errorf("cannot set delay of timer %s: stopped", timer.name)
	}
}

// State .....
func (timer *Timer) State() TimerState {
	ch := make(chan TimerState)
	select {
	case timer.getState <- ch:
		return <-ch
	case <-timer.stop:
		return TimerStateStopped
	}
}
