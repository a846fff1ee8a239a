// Package internal groups helpers that are intentionally private to tgauth.
//
// # Sub-packages
//
//   - config — environment/.env configuration loading for the tgauthd daemon
//   - rate — core Redis-backed rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public tgauth API.
//   - Be imported by any package outside the tgauth module.
package internal
