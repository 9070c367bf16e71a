// Package config defines the validated sweep configuration model and its
// JSON loader. The model is built once at startup with explicit defaults
// for every recognized option; anything malformed fails fast as an
// *Error before any combination work begins. Expression-valued fields
// (exclusion predicates, mesh sizing) are compiled here so downstream
// packages only ever see parse-checked expressions.
package config
