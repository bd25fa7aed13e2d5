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

// Package metrics defines minimal counter and gauge interfaces that
// libraries can use without binding to a concrete metrics implementation.
// Constructors for prometheus-backed implementations live in this package;
// all helpers treat a nil metric as "not instrumented".
package metrics

import (
	"sync"
)

// Counter describes a metric that accumulates values monotonically.
type Counter interface {
	With(labelValues ...string) Counter
	Add(delta float64)
}

// Gauge describes a metric that takes arbitrary values.
type Gauge interface {
	With(labelValues ...string) Gauge
	Set(value float64)
	Add(delta float64)
}

// CounterInc increments the counter by one, if the counter is non-nil.
func CounterInc(c Counter) {
	CounterAdd(c, 1)
}

// CounterAdd increments the counter by the given delta, if the counter is
// non-nil.
func CounterAdd(c Counter, delta float64) {
	if c != nil {
		c.Add(delta)
	}
}

// GaugeSet sets the gauge, if the gauge is non-nil.
func GaugeSet(g Gauge, value float64) {
	if g != nil {
		g.Set(value)
	}
}

// node is the shared implementation of test gauges and counters.
type node struct {
	mtx sync.Mutex
	v   float64
}

func (n *node) add(delta float64, canBeNegative bool) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if !canBeNegative && delta < 0 {
		panic("counter increment value is < 0")
	}
	n.v += delta
}

func (n *node) set(v float64) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.v = v
}

func (n *node) value() float64 {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.v
}

// TestCounter implements a counter for use in tests. Labels are ignored;
// all With variants share the same underlying value.
type TestCounter struct {
	*node
}

// NewTestCounter creates a new counter for use in tests.
func NewTestCounter() *TestCounter {
	return &TestCounter{node: &node{}}
}

// With implements Counter.
func (c *TestCounter) With(labelValues ...string) Counter {
	return c
}

// Add implements Counter.
func (c *TestCounter) Add(delta float64) {
	c.add(delta, false)
}

// TestGauge implements a gauge for use in tests.
type TestGauge struct {
	*node
}

// NewTestGauge creates a new gauge for use in tests.
func NewTestGauge() *TestGauge {
	return &TestGauge{node: &node{}}
}

// With implements Gauge.
func (g *TestGauge) With(labelValues ...string) Gauge {
	return g
}

// Set implements Gauge.
func (g *TestGauge) Set(value float64) {
	g.set(value)
}

// Add implements Gauge.
func (g *TestGauge) Add(delta float64) {
	g.add(delta, true)
}

// CounterValue extracts the value of a test counter. Panics when used on
// any other Counter implementation.
func CounterValue(c Counter) float64 {
	return c.(*TestCounter).value()
}

// GaugeValue extracts the value of a test gauge. Panics when used on any
// other Gauge implementation.
func GaugeValue(g Gauge) float64 {
	return g.(*TestGauge).value()
}
