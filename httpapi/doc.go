// Package httpapi exposes the login flow over HTTP: send-code, verify-code,
// and verify-2fa routes on Fiber, a bearer-guarded me route, and a health
// probe, with CORS and request logging. It maps engine sentinel errors onto
// response statuses and never leaks provider internals to clients.
package httpapi
