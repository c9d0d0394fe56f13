// Package render drives an external composition renderer for planned jobs.
//
// Engine is the narrow contract a renderer backend implements (see
// services/remotion for the CLI-backed one). Adapter chooses the still or
// animated call from the job mode, names the output after the job ID, and
// converts every engine error or timeout into a *Failure so callers can record
// it and move on.
package render
