// Package opencast talks to the Opencast ingest, series, events, and workflow
// REST endpoints.
//
// Every call authenticates with HTTP basic auth, waits on an optional rate
// limiter, and runs under its own timeout: uploads and the final ingest get
// the long ingest timeout, everything else the request timeout. Any non-2xx
// response becomes a *RequestError wrapped with services.ErrExternalTool so
// callers can report which call failed against which identifier.
package opencast
