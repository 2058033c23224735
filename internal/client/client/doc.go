// Package client implements the transport used by the CLI to talk to the
// chantube account API over HTTP.
//
// Client is the interface consumed by services; HTTPClient is the concrete
// implementation. Every response uses the server's JSON envelope; non-2xx
// envelopes surface as *ServerError so callers can branch on the status and
// show the server's message. Network failures are wrapped with
// ErrUnavailable.
package client
