// Package ledger records one row per archive attempt in a local SQLite
// database so operators can audit which meetings were ingested, skipped, or
// failed, and which Opencast media package and workflow each run produced.
//
// The store opens in WAL mode with a busy timeout and retries writes that
// collide with a concurrent run on another meeting.
package ledger
