// Package staging owns the on-disk side effects of an archive run: the
// per-meeting scratch workspace, the run lock that keeps two processes from
// archiving the same meeting, and the post-run cleanup that removes scratch
// output and asks the conferencing server to delete its raw recording.
package staging
