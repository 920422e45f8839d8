// Package fetch talks to origin servers on behalf of download requests. It
// probes remote files for content metadata (with an optional SHA-256 over the
// full body), and re-streams origin content back to a client with correct
// filename, content type and range semantics.
//
// Every outbound URL passes through the urlcheck gate before it is
// dereferenced, and bodies are always streamed in fixed-size chunks rather
// than buffered, so a misbehaving or adversarial origin can cost time but
// not memory.
package fetch
