// Package orchestrator drives the end-to-end batch run: it walks the
// filtered combination set strictly sequentially, acquires one scoped
// engine session per combination, isolates per-combination failures,
// emits progress at fixed strides, and persists the summary report.
package orchestrator
