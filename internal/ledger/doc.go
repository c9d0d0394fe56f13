// Package ledger records batch runs and per-job outcomes in SQLite.
//
// The ledger is optional bookkeeping: `sessionreel history` reads it, and the
// batch consults Published when skip_published is enabled so re-runs do not
// upload the same artifact twice. Schema changes bump schemaVersion; users
// delete ledger.db to adopt a new schema.
package ledger
