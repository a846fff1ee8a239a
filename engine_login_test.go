package tgauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ferdev7/tgauth/gateway"
)

// fakeGateway is a scripted provider. Counters expose how many wire calls the
// engine actually made.
type fakeGateway struct {
	mu sync.Mutex

	sendCalls     int
	codeCalls     int
	passwordCalls int

	sendErr          error
	acceptedCode     string
	acceptedPassword string
	twoFARequired    bool
}

func (g *fakeGateway) RequestCode(ctx context.Context, phone string) (*gateway.SendCodeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendCalls++
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	return &gateway.SendCodeResult{
		Session:  fmt.Sprintf("pending-%s-%d", phone, g.sendCalls),
		CodeHash: fmt.Sprintf("hash-%d", g.sendCalls),
	}, nil
}

func (g *fakeGateway) SubmitCode(ctx context.Context, session, phone, code, codeHash string) (*gateway.SignInResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.codeCalls++
	if code != g.acceptedCode {
		return &gateway.SignInResult{Outcome: gateway.OutcomeCodeInvalid}, nil
	}
	if g.twoFARequired {
		return &gateway.SignInResult{Outcome: gateway.OutcomeTwoFARequired, Session: session + ".2fa"}, nil
	}
	return &gateway.SignInResult{Outcome: gateway.OutcomeAuthorized, Session: session + ".authorized"}, nil
}

func (g *fakeGateway) SubmitPassword(ctx context.Context, session, password string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.passwordCalls++
	if password != g.acceptedPassword {
		return "", gateway.ErrPasswordInvalid
	}
	return session + ".authorized", nil
}

// memUserStore satisfies UserStore without a database. failures makes the
// next N upserts return an error.
type memUserStore struct {
	mu       sync.Mutex
	failures int
	upserts  int
	users    map[string]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*User)}
}

func (s *memUserStore) UpsertByPhone(ctx context.Context, phone string, encryptedSession []byte) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("database unavailable")
	}
	s.upserts++
	now := time.Now()
	user, ok := s.users[phone]
	if !ok {
		user = &User{ID: uuid.NewString(), Phone: phone, CreatedAt: now}
		s.users[phone] = user
	}
	user.EncryptedSession = append([]byte(nil), encryptedSession...)
	user.UpdatedAt = now
	return user, nil
}

func (s *memUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func newTestEngine(t *testing.T, gw gateway.Gateway, store UserStore) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Vault.Key = []byte("abcdef0123456789abcdef0123456789")

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithGateway(gw).
		WithUserStore(store).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	return engine, mr
}

const testPhone = "+15551234567"

func TestSubmitCodeBeforeRequestCode(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeGateway{acceptedCode: "12345"}, newMemUserStore())

	if _, err := engine.SubmitCode(context.Background(), testPhone, "12345"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestSubmitCodeAfterCodeHashExpiry(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	engine, mr := newTestEngine(t, gw, newMemUserStore())
	ctx := context.Background()

	if err := engine.RequestCode(ctx, testPhone); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}

	mr.FastForward(301 * time.Second)

	if _, err := engine.SubmitCode(ctx, testPhone, "12345"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired after TTL, got %v", err)
	}
	if gw.codeCalls != 0 {
		t.Fatalf("gateway must not be reached once the verifier expired, got %d calls", gw.codeCalls)
	}
}

func TestWrongCodeKeepsVerifierForRetry(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	users := newMemUserStore()
	engine, mr := newTestEngine(t, gw, users)
	ctx := context.Background()

	if err := engine.RequestCode(ctx, testPhone); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}

	if _, err := engine.SubmitCode(ctx, testPhone, "99999"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
	if !mr.Exists("phone_code_hash:" + testPhone) {
		t.Fatal("rejected code must leave the verifier in place")
	}

	result, err := engine.SubmitCode(ctx, testPhone, "12345")
	if err != nil {
		t.Fatalf("retry with correct code failed: %v", err)
	}
	if result.AccessToken == "" || result.TokenType != "bearer" || result.TwoFARequired {
		t.Fatalf("unexpected result: %+v", result)
	}
	if users.upserts != 1 {
		t.Fatalf("expected a single upsert, got %d", users.upserts)
	}
}

func TestFullLoginIssuesTokenAndClearsState(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	users := newMemUserStore()
	engine, mr := newTestEngine(t, gw, users)
	ctx := context.Background()

	if err := engine.RequestCode(ctx, testPhone); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}
	result, err := engine.SubmitCode(ctx, testPhone, "12345")
	if err != nil {
		t.Fatalf("SubmitCode failed: %v", err)
	}

	claims, err := engine.jwtManager.ParseAccess(result.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Subject != testPhone {
		t.Fatalf("token subject = %q, want %q", claims.Subject, testPhone)
	}

	if mr.Exists("tg_session:"+testPhone) || mr.Exists("phone_code_hash:"+testPhone) {
		t.Fatal("transient state must be cleared after a completed login")
	}

	stored := users.users[testPhone]
	if stored == nil {
		t.Fatal("no credential persisted")
	}
	plaintext, err := engine.vault.Decrypt(stored.EncryptedSession)
	if err != nil {
		t.Fatalf("stored credential does not decrypt: %v", err)
	}
	if plaintext != "pending-"+testPhone+"-1.authorized" {
		t.Fatalf("unexpected decrypted session %q", plaintext)
	}
}

func TestRepeatedLoginUpsertsSingleRecord(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	users := newMemUserStore()
	engine, _ := newTestEngine(t, gw, users)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := engine.RequestCode(ctx, testPhone); err != nil {
			t.Fatalf("RequestCode %d failed: %v", i, err)
		}
		if _, err := engine.SubmitCode(ctx, testPhone, "12345"); err != nil {
			t.Fatalf("SubmitCode %d failed: %v", i, err)
		}
	}

	if users.count() != 1 {
		t.Fatalf("expected one record, got %d", users.count())
	}
	if users.upserts != 2 {
		t.Fatalf("expected two upserts, got %d", users.upserts)
	}
}

func TestTwoFactorFlow(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345", acceptedPassword: "hunter2", twoFARequired: true}
	users := newMemUserStore()
	engine, mr := newTestEngine(t, gw, users)
	ctx := context.Background()

	if err := engine.RequestCode(ctx, testPhone); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}

	result, err := engine.SubmitCode(ctx, testPhone, "12345")
	if err != nil {
		t.Fatalf("SubmitCode failed: %v", err)
	}
	if !result.TwoFARequired || result.AccessToken != "" {
		t.Fatalf("expected pending two-factor result, got %+v", result)
	}
	if mr.Exists("phone_code_hash:" + testPhone) {
		t.Fatal("redeemed verifier must be removed once the password stage begins")
	}
	if !mr.Exists("tg_session:" + testPhone) {
		t.Fatal("session must survive into the password stage")
	}

	if _, err := engine.SubmitPassword(ctx, testPhone, "wrong"); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("expected ErrPasswordInvalid, got %v", err)
	}
	if !mr.Exists("tg_session:" + testPhone) {
		t.Fatal("a wrong password must not burn the pending session")
	}

	final, err := engine.SubmitPassword(ctx, testPhone, "hunter2")
	if err != nil {
		t.Fatalf("SubmitPassword failed: %v", err)
	}
	if final.AccessToken == "" || final.TokenType != "bearer" {
		t.Fatalf("unexpected final result: %+v", final)
	}
	if users.upserts != 1 {
		t.Fatalf("expected one upsert, got %d", users.upserts)
	}
	if mr.Exists("tg_session:" + testPhone) {
		t.Fatal("transient state must be cleared after a completed login")
	}
}

func TestSubmitPasswordWithoutPendingStage(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345", acceptedPassword: "hunter2"}
	engine, _ := newTestEngine(t, gw, newMemUserStore())
	ctx := context.Background()

	// No attempt at all.
	if _, err := engine.SubmitPassword(ctx, testPhone, "hunter2"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// An attempt that never passed the code stage.
	if err := engine.RequestCode(ctx, testPhone); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}
	if _, err := engine.SubmitPassword(ctx, testPhone, "hunter2"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired for a non-pending stage, got %v", err)
	}
	if gw.passwordCalls != 0 {
		t.Fatalf("gateway must not see a password without a pending stage, got %d calls", gw.passwordCalls)
	}
}

func TestCodeHashWithoutSessionIsInconsistent(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	engine, _ := newTestEngine(t, gw, newMemUserStore())
	ctx := context.Background()

	if err := engine.attempts.SaveCodeHash(ctx, testPhone, "orphan", time.Minute); err != nil {
		t.Fatalf("SaveCodeHash failed: %v", err)
	}

	if _, err := engine.SubmitCode(ctx, testPhone, "12345"); !errors.Is(err, ErrStateInconsistent) {
		t.Fatalf("expected ErrStateInconsistent, got %v", err)
	}
}

func TestSendCodeRateLimitStopsBeforeGateway(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	engine, _ := newTestEngine(t, gw, newMemUserStore())
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	for i := 0; i < 5; i++ {
		if err := engine.RequestCode(ctx, testPhone); err != nil {
			t.Fatalf("RequestCode %d failed: %v", i, err)
		}
	}

	err := engine.RequestCode(ctx, testPhone)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected *RateLimitError, got %T", err)
	}
	if rl.Provider || rl.RetryAfter <= 0 {
		t.Fatalf("unexpected rate limit detail: %+v", rl)
	}
	if gw.sendCalls != 5 {
		t.Fatalf("sixth call must be stopped before the gateway, got %d calls", gw.sendCalls)
	}
}

func TestRateLimitIsPerAddress(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	engine, _ := newTestEngine(t, gw, newMemUserStore())

	first := WithClientIP(context.Background(), "203.0.113.7")
	for i := 0; i < 5; i++ {
		if err := engine.RequestCode(first, testPhone); err != nil {
			t.Fatalf("RequestCode %d failed: %v", i, err)
		}
	}
	if err := engine.RequestCode(first, testPhone); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	other := WithClientIP(context.Background(), "198.51.100.9")
	if err := engine.RequestCode(other, testPhone); err != nil {
		t.Fatalf("a different address must not share the budget: %v", err)
	}
}

func TestProviderFloodWaitSurfacesRetryAfter(t *testing.T) {
	gw := &fakeGateway{sendErr: &gateway.FloodWaitError{RetryAfter: 17 * time.Second}}
	engine, _ := newTestEngine(t, gw, newMemUserStore())

	err := engine.RequestCode(context.Background(), testPhone)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected *RateLimitError, got %T", err)
	}
	if !rl.Provider || rl.RetryAfter != 17*time.Second {
		t.Fatalf("unexpected flood wait detail: %+v", rl)
	}
}

func TestProviderOutageOnRequestCode(t *testing.T) {
	gw := &fakeGateway{sendErr: errors.New("connection reset")}
	engine, _ := newTestEngine(t, gw, newMemUserStore())

	if err := engine.RequestCode(context.Background(), testPhone); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestFinalizeFailureLeavesStateForRetry(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	users := newMemUserStore()
	users.failures = 1
	engine, mr := newTestEngine(t, gw, users)
	ctx := context.Background()

	if err := engine.RequestCode(ctx, testPhone); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}

	if _, err := engine.SubmitCode(ctx, testPhone, "12345"); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !mr.Exists("tg_session:"+testPhone) || !mr.Exists("phone_code_hash:"+testPhone) {
		t.Fatal("a failed finalize must leave the transient state intact")
	}

	result, err := engine.SubmitCode(ctx, testPhone, "12345")
	if err != nil {
		t.Fatalf("retry after store recovery failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInputValidation(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	engine, _ := newTestEngine(t, gw, newMemUserStore())
	ctx := context.Background()

	if err := engine.RequestCode(ctx, ""); !errors.Is(err, ErrPhoneInvalid) {
		t.Fatalf("expected ErrPhoneInvalid, got %v", err)
	}
	if _, err := engine.SubmitCode(ctx, "", "12345"); !errors.Is(err, ErrPhoneInvalid) {
		t.Fatalf("expected ErrPhoneInvalid, got %v", err)
	}
	if _, err := engine.SubmitCode(ctx, testPhone, ""); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
	if _, err := engine.SubmitPassword(ctx, testPhone, ""); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("expected ErrPasswordInvalid, got %v", err)
	}
}

func TestAuthenticateIssuedToken(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	engine, _ := newTestEngine(t, gw, newMemUserStore())
	ctx := context.Background()

	if err := engine.RequestCode(ctx, testPhone); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}
	result, err := engine.SubmitCode(ctx, testPhone, "12345")
	if err != nil {
		t.Fatalf("SubmitCode failed: %v", err)
	}

	phone, err := engine.Authenticate(result.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if phone != testPhone {
		t.Fatalf("phone = %q", phone)
	}

	if _, err := engine.Authenticate(""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := engine.Authenticate("bogus"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestHealthReflectsRedisState(t *testing.T) {
	gw := &fakeGateway{acceptedCode: "12345"}
	engine, mr := newTestEngine(t, gw, newMemUserStore())

	status := engine.Health(context.Background())
	if !status.RedisAvailable {
		t.Fatalf("expected healthy backend: %+v", status)
	}

	mr.Close()

	status = engine.Health(context.Background())
	if status.RedisAvailable {
		t.Fatal("expected unavailable backend after shutdown")
	}
}
