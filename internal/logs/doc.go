// Package logs tails sessionreel.log for the "sessionreel logs" command.
//
// It reads the trailing lines with bounded memory, optionally follows the
// file as new lines arrive, and filters lines by run id, job id, or minimum
// level. Console and JSON log formats are both understood.
package logs
