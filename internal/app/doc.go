// Package app wires the application together: it loads and validates the
// sweep configuration, builds the logger, random source and engine
// client, and drives the pipeline from enumeration through orchestration.
package app
