// Package main hosts the sessionreel CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, builds the schedule source,
// renderer, publisher, and ledger from it, and hands them to the batch
// runner. Commands that only read state (targets, history, logs, check) share the
// same wiring so what they report matches what run would do.
//
// Keep this package lean: add behaviour to the internal packages first, then
// surface it through a command or flag here.
package main
