// Command medvault-loadtest measures token resolve and login throughput of
// the engine against an in-memory identity store.
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

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/password"
	"github.com/MrEthical07/medvault/store/memstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const seedPassword = "Loadtest123!"

func main() {
	var (
		identities  = flag.Int("identities", 10000, "number of identities to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		resolveOps  = flag.Int("resolve-ops", 200000, "token resolve operations")
		loginOps    = flag.Int("login-ops", 2000, "login operations (argon2 bound)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *identities <= 0 || *concurrency <= 0 || *resolveOps <= 0 || *loginOps < 0 {
		fmt.Fprintln(os.Stderr, "identities, concurrency and resolve-ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := redisClient(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := medvault.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-signing-key-0123456789abcdef")
	cfg.Password.MaxConcurrent = *concurrency
	// Every login shares one origin; size the auth window so the redis
	// round trip is measured without rejecting the run.
	cfg.RateLimit.Auth = medvault.WindowConfig{Limit: *loginOps + 1, Window: time.Hour}
	cfg.Audit.Enabled = false

	store := memstore.New()
	engine, err := medvault.New().
		WithConfig(cfg).
		WithIdentityStore(store).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d identities...\n", *identities)
	startSeed := time.Now()
	emails, tokens, err := seed(ctx, store, engine, cfg.Password, *identities)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runPhase(*resolveOps, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Resolve(ctx, tokens[r.Intn(len(tokens))])
		return err
	})
	loginStats := runPhase(*loginOps, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Login(ctx, emails[r.Intn(len(emails))], seedPassword)
		return err
	})

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("login", loginStats)
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// seed hashes the password once and shares the hash across identities.
func seed(ctx context.Context, store *memstore.Store, engine *medvault.Engine, pc medvault.PasswordConfig, n int) ([]string, []string, error) {
	hasher, err := password.New(password.Config{
		Memory:      pc.Memory,
		Time:        pc.Time,
		Parallelism: pc.Parallelism,
		SaltLength:  pc.SaltLength,
		KeyLength:   pc.KeyLength,
	})
	if err != nil {
		return nil, nil, err
	}
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		return nil, nil, err
	}

	roles := []model.Role{model.RoleDoctor, model.RolePatient}
	emails := make([]string, n)
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		identity := &model.Identity{
			ID:            fmt.Sprintf("lt-%d", i),
			Name:          fmt.Sprintf("Load Test %d", i),
			Email:         fmt.Sprintf("lt-%d@loadtest.local", i),
			PasswordHash:  hash,
			Role:          roles[i%len(roles)],
			Active:        true,
			EmailVerified: true,
		}
		if err := store.CreateIdentity(ctx, identity); err != nil {
			return nil, nil, err
		}
		token, err := engine.Issue(identity)
		if err != nil {
			return nil, nil, err
		}
		emails[i] = identity.Email
		tokens[i] = token.Value
	}
	return emails, tokens, nil
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
				if int(atomic.AddInt64(&cursor, 1)) > ops {
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
	return samples[(len(samples)-1)*p/100]
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
