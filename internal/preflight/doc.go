// Package preflight provides readiness checks for the filesystem, renderer
// toolchain, and remote services a batch run depends on.
//
// The CLI "sessionreel check" command prints RunAll results. The run command
// does not call it; the batch performs its own fatal setup checks.
package preflight
