// Package services defines shared utilities consumed by the batch pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job IDs, source rows, stage names,
//     and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so render, publish, and
//     setup failures can be classified consistently in reports.
//   - Client packages for the collaborators the batch talks to (renderer CLI,
//     Google Sheets, Google Drive, SFTP).
//
// Use these helpers when wiring new integrations so failure classification
// and observability stay uniform across the pipeline.
package services
