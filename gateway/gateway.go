package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFloodWait is an exported constant or variable used by the login engine.
	ErrFloodWait = errors.New("provider flood wait")
	// ErrPasswordInvalid is an exported constant or variable used by the login engine.
	ErrPasswordInvalid = errors.New("provider rejected two-factor password")
)

// FloodWaitError carries the provider's mandatory cooldown hint. It matches
// [ErrFloodWait] under errors.Is.
type FloodWaitError struct {
	RetryAfter time.Duration
}

// Error describes the error operation and its observable behavior.
//
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("provider flood wait: retry after %s", e.RetryAfter)
}

// Is describes the is operation and its observable behavior.
//
// Is does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *FloodWaitError) Is(target error) bool {
	return target == ErrFloodWait
}

// Outcome defines a public type used by tgauth APIs.
//
// Outcome instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Outcome uint8

const (
	// OutcomeAuthorized is an exported constant or variable used by the login engine.
	OutcomeAuthorized Outcome = iota
	// OutcomeTwoFARequired is an exported constant or variable used by the login engine.
	OutcomeTwoFARequired
	// OutcomeCodeInvalid is an exported constant or variable used by the login engine.
	OutcomeCodeInvalid
)

// SendCodeResult defines a public type used by tgauth APIs.
//
// SendCodeResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SendCodeResult struct {
	// Session is the opaque provider client state created for this attempt.
	Session string
	// CodeHash is the verifier required to redeem the delivered code.
	CodeHash string
}

// SignInResult defines a public type used by tgauth APIs.
//
// SignInResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SignInResult struct {
	Outcome Outcome
	// Session replaces the previous blob. Empty when Outcome is
	// OutcomeCodeInvalid: a rejected code must not mutate attempt state.
	Session string
}

// Gateway is the provider login protocol boundary. Implementations own the
// wire protocol, must honor ctx cancellation and deadlines, and must release
// any provider connection even when the result is discarded.
type Gateway interface {
	// RequestCode asks the provider to deliver a one-time code out of band.
	// Returns a *FloodWaitError when the provider imposes a cooldown.
	RequestCode(ctx context.Context, phone string) (*SendCodeResult, error)

	// SubmitCode redeems a delivered code against the session and verifier
	// produced by RequestCode.
	SubmitCode(ctx context.Context, session, phone, code, codeHash string) (*SignInResult, error)

	// SubmitPassword completes a login the provider left pending on a
	// two-factor password. Returns ErrPasswordInvalid on a wrong password and
	// the fully authorized replacement session on success.
	SubmitPassword(ctx context.Context, session, password string) (string, error)
}
