// Command tgauth-loadtest measures login engine throughput against a local
// miniredis (default) or a real Redis. The provider is the in-process dev
// gateway, so no external service is contacted; the numbers isolate the
// engine, store, vault, and token paths.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ferdev7/tgauth"
	"github.com/ferdev7/tgauth/gateway"
)

const devCode = "54321"

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*tgauth.User
}

func (s *memUserStore) UpsertByPhone(ctx context.Context, phone string, encryptedSession []byte) (*tgauth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	user, ok := s.users[phone]
	if !ok {
		user = &tgauth.User{ID: uuid.NewString(), Phone: phone, CreatedAt: now}
		s.users[phone] = user
	}
	user.EncryptedSession = encryptedSession
	user.UpdatedAt = now
	return user, nil
}

func main() {
	var (
		phones      = flag.Int("phones", 10000, "number of distinct phone numbers")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (request-code + full-login)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *phones <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "phones, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := tgauth.New().
		WithConfig(tgauth.Config{
			Login:    tgauth.LoginConfig{CodeHashTTL: 300 * time.Second, SessionTTL: 24 * time.Hour},
			Provider: tgauth.ProviderConfig{CallTimeout: 5 * time.Second},
			JWT: tgauth.JWTConfig{
				AccessTTL: 30 * time.Minute,
				Secret:    []byte("loadtest-secret-0123456789abcdef"),
				Issuer:    "tgauth",
			},
			Vault: tgauth.VaultConfig{Key: []byte("loadtest-vault-key-0123456789abc")},
			// The measurement targets the engine, not the limiter.
			RateLimit: tgauth.RateLimitConfig{Enabled: false},
		}).
		WithRedis(client).
		WithGateway(gateway.NewDev(devCode, "", nil)).
		WithUserStore(&memUserStore{users: make(map[string]*tgauth.User)}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}

	phoneList := make([]string, *phones)
	for i := range phoneList {
		phoneList[i] = fmt.Sprintf("+1555%07d", i)
	}

	requestStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		return engine.RequestCode(ctx, phoneList[r.Intn(len(phoneList))])
	})
	loginStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		phone := phoneList[r.Intn(len(phoneList))]
		if err := engine.RequestCode(ctx, phone); err != nil {
			return err
		}
		_, err := engine.SubmitCode(ctx, phone, devCode)
		return err
	})

	fmt.Println("---- results ----")
	printStats("request-code", requestStats)
	printStats("full-login", loginStats)
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
