// Package urlcheck decides whether an untrusted URL is safe for the provider
// to dereference. It resolves the A and AAAA records of the target hostname
// and rejects anything that lands in private, loopback or reserved address
// space, and it follows HTTP redirects up to a bounded depth so that the
// check applies to the final destination rather than the first hop.
//
// Validation outcomes are booleans, not errors: an unreachable resolver, a
// malformed URL or an over-long redirect chain all read as "not safe" so
// callers can produce a uniform rejection without special-casing failure
// modes.
package urlcheck
