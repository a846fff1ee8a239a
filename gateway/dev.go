package gateway

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Dev is an in-process Gateway for development and tests. No provider is
// contacted: the "delivered" code is fixed, session blobs are fabricated
// opaque strings, and two-factor accounts are a configured phone set. Not
// used in production.
type Dev struct {
	code     string
	password string

	mu          sync.RWMutex
	twoFA       map[string]bool
	logDelivery bool
}

// NewDev returns a development Gateway that accepts code for every phone and
// password for the phones listed in twoFAPhones.
func NewDev(code, password string, twoFAPhones []string) *Dev {
	twoFA := make(map[string]bool, len(twoFAPhones))
	for _, phone := range twoFAPhones {
		twoFA[phone] = true
	}
	return &Dev{
		code:        code,
		password:    password,
		twoFA:       twoFA,
		logDelivery: true,
	}
}

// SetTwoFA marks or unmarks a phone as requiring the two-factor password.
func (d *Dev) SetTwoFA(phone string, required bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.twoFA[phone] = required
}

// RequestCode describes the requestcode operation and its observable behavior.
//
// RequestCode may return an error when input validation, dependency calls, or security checks fail.
// RequestCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Dev) RequestCode(ctx context.Context, phone string) (*SendCodeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.logDelivery {
		log.Print("gateway: dev mode, code delivery skipped for " + phone)
	}
	return &SendCodeResult{
		Session:  "dev-session:" + phone + ":" + uuid.NewString(),
		CodeHash: "dev-hash:" + uuid.NewString(),
	}, nil
}

// SubmitCode describes the submitcode operation and its observable behavior.
//
// SubmitCode may return an error when input validation, dependency calls, or security checks fail.
// SubmitCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Dev) SubmitCode(ctx context.Context, session, phone, code, codeHash string) (*SignInResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(session, "dev-session:") || !strings.HasPrefix(codeHash, "dev-hash:") {
		return nil, errors.New("dev gateway: unknown session or code hash")
	}
	if code != d.code {
		return &SignInResult{Outcome: OutcomeCodeInvalid}, nil
	}

	d.mu.RLock()
	needsPassword := d.twoFA[phone]
	d.mu.RUnlock()

	if needsPassword {
		return &SignInResult{
			Outcome: OutcomeTwoFARequired,
			Session: "dev-session-2fa:" + phone + ":" + uuid.NewString(),
		}, nil
	}
	return &SignInResult{
		Outcome: OutcomeAuthorized,
		Session: "dev-session-authorized:" + phone + ":" + uuid.NewString(),
	}, nil
}

// SubmitPassword describes the submitpassword operation and its observable behavior.
//
// SubmitPassword may return an error when input validation, dependency calls, or security checks fail.
// SubmitPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Dev) SubmitPassword(ctx context.Context, session, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if password != d.password {
		return "", ErrPasswordInvalid
	}
	return "dev-session-authorized:" + uuid.NewString(), nil
}
