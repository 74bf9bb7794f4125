// Package status draws a compact, styled view of a running pool: one line
// per worker with the task it is executing, plus the pool counters.
//
// Color is decided per writer, so output piped to a file or captured in a
// buffer is plain text.
package status
