package tgauth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ferdev7/tgauth/gateway"
)

// RequestCode describes the requestcode operation and its observable behavior.
//
// RequestCode may return an error when input validation, dependency calls, or security checks fail.
// RequestCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// RequestCode asks the provider to deliver a one-time code to phone and
// stores the resulting session blob and code verifier for the follow-up
// steps. Re-entry is idempotent: any prior in-flight artifacts for the phone
// are overwritten.
func (e *Engine) RequestCode(ctx context.Context, phone string) error {
	if e == nil || e.gateway == nil {
		return ErrEngineNotReady
	}
	if phone == "" {
		return ErrPhoneInvalid
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.AllowSendCode(ctx, clientIPFromContext(ctx)); err != nil {
			return e.limiterError(err)
		}
	}

	gwCtx, cancel := e.providerCall(ctx)
	defer cancel()

	result, err := e.gateway.RequestCode(gwCtx, phone)
	if err != nil {
		log.Printf("tgauth: send code failed for %s: %v", phone, err)
		return translateGatewayError(err)
	}

	record := &attemptRecord{
		Stage:     stageCodeSent,
		UpdatedAt: nowUnix(),
		Session:   result.Session,
	}
	if err := e.attempts.SaveAttempt(ctx, phone, record, e.config.Login.SessionTTL); err != nil {
		log.Printf("tgauth: attempt save failed for %s: %v", phone, err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.attempts.SaveCodeHash(ctx, phone, result.CodeHash, e.config.Login.CodeHashTTL); err != nil {
		log.Printf("tgauth: code hash save failed for %s: %v", phone, err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// SubmitCode describes the submitcode operation and its observable behavior.
//
// SubmitCode may return an error when input validation, dependency calls, or security checks fail.
// SubmitCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// SubmitCode redeems the delivered code. Three outcomes: a fully authorized
// login (token issued), a pending two-factor password (resume with
// SubmitPassword), or a rejected code (state untouched, retry within the
// code TTL).
func (e *Engine) SubmitCode(ctx context.Context, phone, code string) (*LoginResult, error) {
	if e == nil || e.gateway == nil {
		return nil, ErrEngineNotReady
	}
	if phone == "" {
		return nil, ErrPhoneInvalid
	}
	if code == "" {
		return nil, ErrCodeInvalid
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.AllowSubmitCode(ctx, clientIPFromContext(ctx)); err != nil {
			return nil, e.limiterError(err)
		}
	}

	codeHash, err := e.attempts.GetCodeHash(ctx, phone)
	if err != nil {
		if errors.Is(err, errCodeHashNotFound) {
			return nil, ErrCodeExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	record, err := e.attempts.GetAttempt(ctx, phone)
	if err != nil {
		if errors.Is(err, errAttemptNotFound) {
			// A live code hash without its session is a store inconsistency,
			// not an expired attempt. Report it instead of recovering silently.
			log.Printf("tgauth: code hash present without session for %s", phone)
			return nil, ErrStateInconsistent
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	gwCtx, cancel := e.providerCall(ctx)
	defer cancel()

	result, err := e.gateway.SubmitCode(gwCtx, record.Session, phone, code, codeHash)
	if err != nil {
		log.Printf("tgauth: code sign-in failed for %s: %v", phone, err)
		return nil, translateGatewayError(err)
	}

	switch result.Outcome {
	case gateway.OutcomeCodeInvalid:
		return nil, ErrCodeInvalid

	case gateway.OutcomeTwoFARequired:
		pending := &attemptRecord{
			Stage:     stageTwoFAPending,
			UpdatedAt: nowUnix(),
			Session:   result.Session,
		}
		if err := e.attempts.SaveAttempt(ctx, phone, pending, e.config.Login.SessionTTL); err != nil {
			log.Printf("tgauth: pending session save failed for %s: %v", phone, err)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		// The provider accepted the code, so its verifier is spent. Keeping
		// it would only leave a replayable artifact behind.
		if err := e.attempts.DeleteCodeHash(ctx, phone); err != nil {
			log.Printf("tgauth: code hash cleanup failed for %s: %v", phone, err)
		}
		return &LoginResult{TwoFARequired: true}, nil

	case gateway.OutcomeAuthorized:
		token, err := e.finalize(ctx, phone, result.Session)
		if err != nil {
			// Transient state stays intact so the caller can retry finalize
			// without repeating the provider step.
			return nil, err
		}
		e.cleanupAttempt(ctx, phone)
		return &LoginResult{AccessToken: token, TokenType: "bearer"}, nil

	default:
		return nil, fmt.Errorf("%w: unknown sign-in outcome %d", ErrProviderUnavailable, result.Outcome)
	}
}

// SubmitPassword describes the submitpassword operation and its observable behavior.
//
// SubmitPassword may return an error when input validation, dependency calls, or security checks fail.
// SubmitPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// SubmitPassword completes a login that SubmitCode left pending on the
// account's two-factor password.
func (e *Engine) SubmitPassword(ctx context.Context, phone, password string) (*LoginResult, error) {
	if e == nil || e.gateway == nil {
		return nil, ErrEngineNotReady
	}
	if phone == "" {
		return nil, ErrPhoneInvalid
	}
	if password == "" {
		return nil, ErrPasswordInvalid
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.AllowSubmitPassword(ctx, clientIPFromContext(ctx)); err != nil {
			return nil, e.limiterError(err)
		}
	}

	record, err := e.attempts.GetAttempt(ctx, phone)
	if err != nil {
		if errors.Is(err, errAttemptNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record.Stage != stageTwoFAPending {
		// The stored session never reached the two-factor stage; the client
		// must restart from RequestCode.
		return nil, ErrSessionExpired
	}

	gwCtx, cancel := e.providerCall(ctx)
	defer cancel()

	session, err := e.gateway.SubmitPassword(gwCtx, record.Session, password)
	if err != nil {
		if errors.Is(err, gateway.ErrPasswordInvalid) {
			return nil, ErrPasswordInvalid
		}
		log.Printf("tgauth: password sign-in failed for %s: %v", phone, err)
		return nil, translateGatewayError(err)
	}

	token, err := e.finalize(ctx, phone, session)
	if err != nil {
		return nil, err
	}
	e.cleanupAttempt(ctx, phone)
	return &LoginResult{AccessToken: token, TokenType: "bearer"}, nil
}

// finalize runs the shared completion sequence on any terminal success:
// encrypt the final session blob, upsert it by phone, issue the bearer token.
// Each step is a hard dependency; on failure the in-flight transient state is
// left untouched.
func (e *Engine) finalize(ctx context.Context, phone, session string) (string, error) {
	ciphertext, err := e.vault.Encrypt(session)
	if err != nil {
		log.Printf("tgauth: session encryption failed for %s: %v", phone, err)
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if _, err := e.users.UpsertByPhone(ctx, phone, ciphertext); err != nil {
		log.Printf("tgauth: credential upsert failed for %s: %v", phone, err)
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	token, err := e.jwtManager.CreateAccess(phone)
	if err != nil {
		// The credential is already durable; the caller can re-authenticate
		// for a fresh token without repeating the provider login.
		log.Printf("tgauth: token issuance failed for %s: %v", phone, err)
		return "", fmt.Errorf("%w: %v", ErrTokenIssue, err)
	}

	return token, nil
}

// cleanupAttempt drops the in-flight artifacts after a completed login. Not
// atomic with the upsert; a leftover key expires on its own TTL.
func (e *Engine) cleanupAttempt(ctx context.Context, phone string) {
	if err := e.attempts.DeleteCodeHash(ctx, phone); err != nil {
		log.Printf("tgauth: code hash cleanup failed for %s: %v", phone, err)
	}
	if err := e.attempts.DeleteAttempt(ctx, phone); err != nil {
		log.Printf("tgauth: attempt cleanup failed for %s: %v", phone, err)
	}
}
