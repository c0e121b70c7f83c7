// Copyright (c) 2025 The GridMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics is a singleton service providing global access to a set
// of meters. It wraps multiple implementations and defaults to no-op.
package metrics

import "net/http"

var metrics Metrics = defaultNoopMetrics()

// Metrics defines the interface for metrics service implementations.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateGaugeMeter(name string) GaugeMeter
	GetOrCreateHistogramMeter(name string, buckets []int64) HistogramMeter
	GetOrCreateHandler() http.Handler
}

// Handler returns the http handler for retrieving metrics.
func Handler() http.Handler {
	return metrics.GetOrCreateHandler()
}

// CountMeter is a monotonically increasing counter.
type CountMeter interface {
	Add(int64)
}

// Counter returns or creates the named counter.
func Counter(name string) CountMeter { return metrics.GetOrCreateCountMeter(name) }

// CountVecMeter is a labeled monotonically increasing counter.
type CountVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

// CounterVec returns or creates the named labeled counter.
func CounterVec(name string, labels []string) CountVecMeter {
	return metrics.GetOrCreateCountVecMeter(name, labels)
}

// GaugeMeter is a value that can go up and down.
type GaugeMeter interface {
	Gauge(int64)
}

// Gauge returns or creates the named gauge.
func Gauge(name string) GaugeMeter {
	return metrics.GetOrCreateGaugeMeter(name)
}

// HistogramMeter aggregates reported measurements over time.
type HistogramMeter interface {
	Observe(int64)
}

// Histogram returns or creates the named histogram.
func Histogram(name string) HistogramMeter {
	return metrics.GetOrCreateHistogramMeter(name, nil)
}

// HistogramWithHTTPBuckets returns or creates the named histogram with
// buckets suited to millisecond request durations.
func HistogramWithHTTPBuckets(name string) HistogramMeter {
	return metrics.GetOrCreateHistogramMeter(name, defaultHTTPBuckets)
}

var defaultHTTPBuckets = []int64{0, 150, 300, 450, 600, 900, 1200, 1500, 3000}
