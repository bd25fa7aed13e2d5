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

package periodic_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/meridian-sdn/meridian/pkg/metrics"
	"github.com/meridian-sdn/meridian/pkg/private/periodic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPeriodicExecution(t *testing.T) {
	events := metrics.NewTestCounter()
	m := periodic.Metrics{
		Events: func(s string) metrics.Counter {
			return events.With("event_type", s)
		},
	}

	cnt := make(chan struct{})
	task := periodic.Func{
		TaskName: "test_task",
		TaskFn: func(ctx context.Context) {
			cnt <- struct{}{}
		},
	}
	want := 5
	period := 20 * time.Millisecond
	r := periodic.StartWithMetrics(task, &m, period, time.Hour)

	for i := 0; i < want; i++ {
		select {
		case <-cnt:
		case <-time.After(time.Second):
			t.Fatalf("timed out while waiting for run %d", i)
		}
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		r.Stop()
	}()
	// Drain a possible in-flight run so Stop can finish.
	for {
		select {
		case <-cnt:
			continue
		case <-stopped:
		case <-time.After(2 * time.Second):
			t.Fatal("r.Stop() timed out")
		}
		break
	}
	assert.Equal(t, float64(1), metrics.CounterValue(m.Events(periodic.EventStop)))
	assert.Equal(t, float64(0), metrics.CounterValue(m.Events(periodic.EventKill)))
}

func TestKillExitsLongRunningTask(t *testing.T) {
	started := make(chan struct{})
	errChan := make(chan error, 1)
	task := periodic.Func{
		TaskName: "long_task",
		TaskFn: func(ctx context.Context) {
			close(started)
			select {
			case <-ctx.Done():
				errChan <- nil
			case <-time.After(5 * time.Second):
				errChan <- context.DeadlineExceeded
			}
		},
	}
	r := periodic.Start(task, 10*time.Millisecond, time.Hour)
	<-started
	r.Kill()
	select {
	case err := <-errChan:
		require.NoError(t, err, "task context was not canceled")
	case <-time.After(2 * time.Second):
		t.Fatal("task did not observe cancellation")
	}
}

func TestTriggerNow(t *testing.T) {
	cnt := make(chan struct{}, 16)
	task := periodic.Func{
		TaskName: "trigger_task",
		TaskFn: func(ctx context.Context) {
			cnt <- struct{}{}
		},
	}
	r := periodic.Start(task, time.Hour, time.Hour)
	defer r.Stop()
	r.TriggerRun()
	select {
	case <-cnt:
	case <-time.After(time.Second):
		t.Fatal("triggered run did not execute")
	}
}
