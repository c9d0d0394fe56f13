// Package batch drives schedule rows through normalize, plan, render, and
// publish.
//
// One-time setup (source authentication, uploader check, composition
// discovery, and target selection) must succeed before any row is touched;
// a failure there aborts the run and the returned error wraps ErrSetup.
// After setup every row ends in exactly one terminal Status, recorded once
// in its own Report slot, and no per-row failure stops later rows.
//
// With more than one worker, rows run on a bounded pool. Report entries stay
// in source order regardless of completion order.
package batch
