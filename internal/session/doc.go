// Package session normalizes raw schedule rows into validated session records.
//
// A Record can only be built through Normalizer.Normalize, which rejects rows
// without a title and substitutes the current time (with a Warning) when the
// day and start fields cannot be parsed. Slug derives the identifiers used for
// participants and render jobs.
package session
