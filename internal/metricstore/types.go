/*
Copyright 2026 The clusterpilot Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metricstore provides a bounded, time-ordered history of
// scalar metric samples with sliding-window averaging. The autoscaler
// consumes it to evaluate scaling policies; producers feed it from
// whatever metrics pipeline the host runs.
package metricstore

import (
	"time"
)

// MetricType identifies the quantity a sample measures.
type MetricType string

const (
	// MetricCPU is CPU utilization, typically percent.
	MetricCPU MetricType = "cpu"

	// MetricMemory is memory utilization, typically percent.
	MetricMemory MetricType = "memory"

	// MetricRequestRate is request throughput, requests per second.
	MetricRequestRate MetricType = "rps"

	// MetricConnections is the in-flight connection count.
	MetricConnections MetricType = "connections"

	// MetricCustom is a host-defined quantity.
	MetricCustom MetricType = "custom"
)

// MetricValue is a single scalar measurement. Values are immutable
// once recorded.
type MetricValue struct {
	// Type identifies the measured quantity.
	Type MetricType

	// Value is the sample value.
	Value float64

	// Timestamp is when the sample was taken.
	Timestamp time.Time

	// Unit is a free-form unit annotation (e.g. "%", "req/s").
	Unit string
}
