// Package cli is responsible for parsing command-line arguments,
// validating user input, and handling process-level concerns like exit
// codes. Fatal failures exit non-zero; failed combinations inside an
// otherwise completed run do not.
package cli
