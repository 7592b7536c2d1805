// Package preflight provides readiness checks for the binaries, directories,
// and Opencast server an archive run depends on.
//
// These checks run in two contexts:
//   - The archiver calls RunAll before touching a recording. If any check
//     fails, the run stops before scratch output is written.
//   - The CLI "ocingest check" command prints every result so operators can
//     verify a new installation.
package preflight
