// Package tgauth drives a phone-number login flow against an external
// messaging provider: request a one-time code, submit the code, and, when the
// account carries a second factor, submit the cloud password. On success the
// provider session blob is encrypted and persisted per phone number and the
// caller receives a signed bearer token.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build], and all cross-step state lives in Redis so the engine can
// run behind multiple horizontally scaled instances.
//
// # Architecture boundaries
//
// tgauth is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (LoginResult, User). Flow orchestration and rate limiting live
// here and under internal/; the provider protocol is reached only through the
// [gateway.Gateway] interface and is never reimplemented.
//
// # What this package must NOT do
//
//   - Interpret the provider session blob. It is an opaque capability token:
//     stored, forwarded, and encrypted, never decoded.
//   - Hold per-phone login state in process memory. Every step reads and
//     writes the shared Redis attempt store.
//   - Retry provider calls. A timed-out or failed step is reported to the
//     caller, who resubmits the original step.
package tgauth
