// Copyright 2026 Meridian Networks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package periodic provides a mechanism to run tasks on a fixed schedule.
package periodic

import (
	"context"
	"time"

	"github.com/meridian-sdn/meridian/pkg/log"
	"github.com/meridian-sdn/meridian/pkg/metrics"
)

// Event strings for the metrics of a runner.
const (
	// EventStop indicates a stop event took place.
	EventStop = "stop"
	// EventKill indicates a kill event took place.
	EventKill = "kill"
	// EventTrigger indicates a trigger event took place.
	EventTrigger = "triggered"
)

// Metrics describes the metrics of a runner.
type Metrics struct {
	// Events is the function to retrieve the event counter for a given
	// event type. Nil means no event instrumentation.
	Events func(eventType string) metrics.Counter
	// Runtime tracks the duration of the last task invocation. Can be nil.
	Runtime metrics.Gauge
}

func (m *Metrics) event(eventType string) {
	if m == nil || m.Events == nil {
		return
	}
	metrics.CounterInc(m.Events(eventType))
}

func (m *Metrics) runtime(d time.Duration) {
	if m == nil {
		return
	}
	metrics.GaugeSet(m.Runtime, d.Seconds())
}

// Ticker interface to improve testability of this periodic task code.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type defaultTicker struct {
	*time.Ticker
}

func (t *defaultTicker) Chan() <-chan time.Time {
	return t.C
}

// NewTicker returns a new Ticker with time.Ticker as implementation.
func NewTicker(d time.Duration) Ticker {
	return &defaultTicker{Ticker: time.NewTicker(d)}
}

// A Task that has to be periodically executed.
type Task interface {
	// Name returns the tasks name, used in logging and metrics.
	Name() string
	// Run executes the task once, it should return within the context's
	// timeout.
	Run(context.Context)
}

// Func converts a function and a name into a Task.
type Func struct {
	TaskFn   func(context.Context)
	TaskName string
}

// Name implements Task.
func (f Func) Name() string {
	return f.TaskName
}

// Run implements Task.
func (f Func) Run(ctx context.Context) {
	f.TaskFn(ctx)
}

// Runner runs a task periodically.
type Runner struct {
	task         Task
	ticker       Ticker
	timeout      time.Duration
	stop         chan struct{}
	loopFinished chan struct{}
	ctx          context.Context
	cancelF      context.CancelFunc
	trigger      chan struct{}
	metrics      *Metrics
}

// Start creates and starts a new Runner to run the given task periodically.
// The timeout is used for the context of each task invocation and can be
// larger than the period; a long-running task is immediately retriggered.
func Start(task Task, period, timeout time.Duration) *Runner {
	return StartWithMetrics(task, nil, period, timeout)
}

// StartWithMetrics is like Start, with runner events instrumented.
func StartWithMetrics(task Task, m *Metrics, period, timeout time.Duration) *Runner {
	return startTask(task, m, NewTicker(period), timeout)
}

func startTask(task Task, m *Metrics, ticker Ticker, timeout time.Duration) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	runner := &Runner{
		task:         task,
		ticker:       ticker,
		timeout:      timeout,
		stop:         make(chan struct{}),
		loopFinished: make(chan struct{}),
		ctx:          ctx,
		cancelF:      cancelF,
		trigger:      make(chan struct{}),
		metrics:      m,
	}
	go func() {
		defer log.HandlePanic()
		runner.runLoop()
	}()
	return runner
}

// Stop stops the periodic execution of the Runner. If the task is currently
// running this method blocks until it is done.
func (r *Runner) Stop() {
	r.ticker.Stop()
	close(r.stop)
	<-r.loopFinished
	r.metrics.event(EventStop)
}

// Kill is like Stop but it also cancels the context of the currently
// running task.
func (r *Runner) Kill() {
	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.cancelF()
	<-r.loopFinished
	r.metrics.event(EventKill)
}

// TriggerRun triggers the periodic task to run now. This does not impact
// the normal periodicity of the task. The method blocks until either the
// triggered run was started or the runner was stopped, in which case the
// triggered run is not executed.
func (r *Runner) TriggerRun() {
	select {
	case <-r.stop:
	case r.trigger <- struct{}{}:
		r.metrics.event(EventTrigger)
	}
}

func (r *Runner) runLoop() {
	defer close(r.loopFinished)
	defer r.cancelF()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.Chan():
			r.onTick()
		case <-r.trigger:
			r.onTick()
		}
	}
}

func (r *Runner) onTick() {
	select {
	// Make sure that the stop case is evaluated first, so that when we kill
	// and both channels are ready we always go into stop.
	case <-r.stop:
		return
	default:
		ctx, cancelF := context.WithTimeout(r.ctx, r.timeout)
		defer cancelF()
		start := time.Now()
		r.task.Run(ctx)
		r.metrics.runtime(time.Since(start))
	}
}
