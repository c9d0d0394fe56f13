// Package logging builds the slog loggers used across sessionreel.
//
// Two formats are supported: a console line format and JSON with ts, level
// and msg keys. Both may fan out to stderr and the sessionreel.log file that
// "sessionreel logs" tails. Context helpers attach run, job and row ids so
// every line of a job can be filtered back out of a shared log.
package logging
