// Package main hosts the ocingest CLI entrypoint and command graph.
//
// The recording server's post-archive hook calls `ocingest archive` once per
// finished meeting. The remaining commands are operator tools: inspect a
// recording without uploading it, review the run ledger, check connectivity
// and external tools, prune stale scratch directories, and scaffold the
// configuration file.
//
// Keep this package lean: behavior lives in internal packages and is surfaced
// here through commands and flags.
package main
