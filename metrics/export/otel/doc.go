// Package otel mirrors engine counters into OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter. Each
// histogram becomes a cumulative _bucket gauge labelled le plus a _count
// gauge. A single callback reads the engine snapshot on each collection.
// Callers own the MeterProvider.
package otel
