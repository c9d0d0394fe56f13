// Package config loads, normalizes, and validates sessionreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GOOGLE_APPLICATION_CREDENTIALS, GOOGLE_API_KEY, GOOGLE_ACCESS_TOKEN, and
// SFTP_PASSWORD. The Config type carries everything the batch needs at
// construction time: the schedule source, column mapping, renderer target,
// routing table, and fallback destination, so no package reads process-wide
// globals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
