// Package archiver drives one archive run for a recorded meeting.
//
// A run parses the meeting's event log, reconstructs its timeline, selects and
// prepares tracks, renders the cut marks, captions, Dublin Core catalog, and
// ACL, and submits everything to Opencast as one media package. The run holds
// a per-meeting lock, records itself in the ledger, and exports metrics.
//
// Local data is cleaned up only when the run succeeds or finds nothing to
// ingest. Every other failure leaves the scratch workspace and the raw
// recording on disk so an operator can inspect them and re-run.
package archiver
