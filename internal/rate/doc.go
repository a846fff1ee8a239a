// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for the login flow.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:sc: — send-code per client address
//   - rl:vc: — verify-code per client address
//   - rl:vp: — verify-password per client address
//
// On a breached budget the limiter reports the remaining key TTL as the
// cooldown, so callers can surface a retry-after hint.
//
// # What this package must NOT do
//
//   - Implement step ordering or any login state policy (that lives in the engine).
//   - Be imported outside the tgauth module.
package rate
