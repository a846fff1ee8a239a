// Package gateway defines the boundary to the external messaging provider's
// login protocol. The engine drives logins exclusively through the [Gateway]
// interface; provider error signaling is re-expressed here as tagged results
// and sentinel errors so callers branch on explicit outcomes instead of
// provider exception types. Session blobs and code hashes are opaque strings
// owned by the provider and never interpreted.
package gateway
