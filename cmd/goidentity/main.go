// Command goidentity drives a simulated identity session from the terminal:
// init, role checks, profile loading, a burst of token refreshes, clear and
// logout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/metrics/export/internaldefs"
	"github.com/MrEthical07/goIdentity/session"
)

func main() {
	var (
		envFile     = flag.String("env", ".env", "dotenv file loaded before GOIDENTITY_* variables are read")
		redisAddr   = flag.String("redis-addr", "", "redis address for the session mirror; \"mini\" starts miniredis, empty keeps sessions in memory")
		refreshes   = flag.Int("refreshes", 20, "number of forced token refreshes")
		concurrency = flag.Int("concurrency", 4, "concurrent refresh callers")
		debug       = flag.Bool("debug", false, "development logging")
	)
	flag.Parse()

	if *refreshes < 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "refreshes must be >= 0 and concurrency > 0")
		os.Exit(2)
	}

	if err := run(*envFile, *redisAddr, *refreshes, *concurrency, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "goidentity: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile, redisAddr string, refreshes, concurrency int, debug bool) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := goIdentity.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	logger, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	builder := goIdentity.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAuditSink(goIdentity.NewZapSink(logger)).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rdb, cleanup, err := openRedis(redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()
	if rdb != nil {
		store := session.NewRedisStore(rdb, cfg.Session.RedisPrefix)
		rtt, err := store.Ping(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("session mirror %s (ping %s)\n", store.Namespace(), rtt.Round(time.Microsecond))
		builder = builder.WithSessionStore(store)
	}

	client, err := builder.Build()
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("close", zap.Error(err))
		}
	}()

	start := time.Now()
	if err := client.Init(ctx); err != nil {
		fmt.Printf("init failed after %s: %v\n", time.Since(start).Round(time.Millisecond), err)
	} else {
		fmt.Printf("init done in %s\n", time.Since(start).Round(time.Millisecond))
	}
	printSession(client)

	if !client.IsAuthenticated() {
		if err := client.Login(ctx); err != nil {
			return err
		}
		fmt.Println("logged in")
		printSession(client)
	}

	if err := printDocuments(ctx, client); err != nil {
		return err
	}

	printStats("refresh", refreshBurst(ctx, client, refreshes, concurrency))
	fmt.Printf("state after refreshes: %s\n", client.State())

	client.ClearToken()
	fmt.Printf("cleared: authenticated=%t realm-user=%t\n", client.IsAuthenticated(), client.HasRealmRole("realm-user"))

	if err := client.Login(ctx); err != nil {
		return err
	}
	if err := client.Logout(ctx); err != nil {
		return err
	}
	fmt.Printf("logged out: state=%s\n", client.State())

	printMetrics(client.MetricsSnapshot())
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	switch addr {
	case "":
		return nil, func() {}, nil
	case "mini":
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return rdb, func() {
			_ = rdb.Close()
			mr.Close()
		}, nil
	default:
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return rdb, func() { _ = rdb.Close() }, nil
	}
}

func printSession(client *goIdentity.Client) {
	fmt.Printf("state=%s authenticated=%t realm-user=%t resource-user=%t\n",
		client.State(),
		client.IsAuthenticated(),
		client.HasRealmRole("realm-user"),
		client.HasResourceRole("resource-user", "my-angular-client"),
	)
	fmt.Printf("login:    %s\n", client.CreateLoginURL())
	fmt.Printf("logout:   %s\n", client.CreateLogoutURL())
	fmt.Printf("register: %s\n", client.CreateRegisterURL())
	fmt.Printf("account:  %s\n", client.CreateAccountURL())
}

func printDocuments(ctx context.Context, client *goIdentity.Client) error {
	profile, err := client.LoadUserProfile(ctx)
	if err != nil {
		return err
	}
	info, err := client.LoadUserInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("profile: %s %s <%s> (%s)\n", profile.FirstName, profile.LastName, profile.Email, profile.Username)
	fmt.Printf("userinfo: sub=%s name=%s\n", info.Sub, info.Name)
	return nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

// refreshBurst forces n refreshes spread over workers. Concurrent callers
// coalesce, so a provider call may serve more than one of them.
func refreshBurst(ctx context.Context, client *goIdentity.Client, n, workers int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, n)
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if int(atomic.AddInt64(&cursor, 1)) > n || ctx.Err() != nil {
					return
				}
				t0 := time.Now()
				_, err := client.UpdateToken(ctx, -1)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
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
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: calls=%d failures=%d total=%s p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.p50.Round(time.Millisecond),
		s.p95.Round(time.Millisecond),
		s.p99.Round(time.Millisecond),
	)
}

func printMetrics(s goIdentity.MetricsSnapshot) {
	fmt.Println("---- counters ----")
	for _, def := range internaldefs.CounterDefs {
		if v := s.Counters[def.ID]; v > 0 {
			fmt.Printf("%-36s %d\n", def.Name, v)
		}
	}
}
