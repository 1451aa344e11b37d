// Command querycheck прогоняет заказы и покупателей через оба read-пути
// (ORM и raw SQL) и сообщает о расхождениях проекций. Код выхода 1, если
// найдено хотя бы одно расхождение или сбой запроса.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/ordering/internal/app"
	"github.com/vladislavdragonenkov/ordering/internal/config"
	"github.com/vladislavdragonenkov/ordering/internal/domain"
	"github.com/vladislavdragonenkov/ordering/internal/seed"
	"github.com/vladislavdragonenkov/ordering/internal/service/queries"
)

type options struct {
	sqlite      bool
	dsn         string
	seed        bool
	buyers      int
	orders      int
	rngSeed     int64
	maxOrderID  int64
	identities  []string
	concurrency int
	timeout     time.Duration
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type queryReport struct {
	Checks    int64          `json:"checks"`
	Failed    int64          `json:"failed"`
	LatencyMs latencySummary `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time              `json:"started_at"`
	DurationSeconds float64                `json:"duration_seconds"`
	Primary         string                 `json:"primary"`
	Shadow          string                 `json:"shadow"`
	Checks          int64                  `json:"checks"`
	Failed          int64                  `json:"failed"`
	Divergences     []string               `json:"divergences"`
	Queries         map[string]queryReport `json:"queries"`
}

type queryStats struct {
	checks    int64
	failed    int64
	latencies []float64
}

type collector struct {
	mu          sync.Mutex
	queries     map[string]*queryStats
	divergences []string
}

func newCollector() *collector {
	return &collector{queries: make(map[string]*queryStats)}
}

func (c *collector) record(query string, latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.queries[query]
	if !ok {
		stats = &queryStats{}
		c.queries[query] = stats
	}
	stats.checks++
	if err != nil && !domain.IsNotFound(err) {
		stats.failed++
	}
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) diverged(d queries.Divergence) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.divergences = append(c.divergences, d.String())
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Primary:         queries.PathSQL,
		Shadow:          queries.PathORM,
		Divergences:     append([]string{}, c.divergences...),
		Queries:         make(map[string]queryReport, len(c.queries)),
	}
	sort.Strings(result.Divergences)

	for name, stats := range c.queries {
		result.Checks += stats.checks
		result.Failed += stats.failed
		result.Queries[name] = queryReport{
			Checks:    stats.checks,
			Failed:    stats.failed,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}
	return result
}

func parseOptions(args []string) (options, error) {
	var (
		opts       options
		identities string
	)

	fs := flag.NewFlagSet("querycheck", flag.ContinueOnError)
	fs.BoolVar(&opts.sqlite, "sqlite", false, "use in-memory SQLite instead of PostgreSQL")
	fs.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: ORDERING_POSTGRES__DSN)")
	fs.BoolVar(&opts.seed, "seed", false, "generate buyers and orders before the sweep")
	fs.IntVar(&opts.buyers, "buyers", seed.DefaultBuyers, "buyers to generate with -seed")
	fs.IntVar(&opts.orders, "orders", seed.DefaultOrders, "orders to generate with -seed")
	fs.Int64Var(&opts.rngSeed, "rng-seed", seed.DefaultSeed, "random seed for -seed")
	fs.Int64Var(&opts.maxOrderID, "max-order-id", 0, "sweep order ids 1..N (without -seed)")
	fs.StringVar(&identities, "identities", "", "comma separated buyer identities to sweep (without -seed)")
	fs.IntVar(&opts.concurrency, "concurrency", 8, "parallel comparisons")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall timeout")
	fs.StringVar(&opts.outputPath, "output", "", "optional JSON report path")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	for _, identity := range strings.Split(identities, ",") {
		if identity = strings.TrimSpace(identity); identity != "" {
			opts.identities = append(opts.identities, identity)
		}
	}

	switch {
	case opts.concurrency <= 0:
		return options{}, errors.New("concurrency must be > 0")
	case opts.timeout <= 0:
		return options{}, errors.New("timeout must be > 0")
	case opts.seed && (opts.buyers <= 0 || opts.orders <= 0):
		return options{}, errors.New("buyers and orders must be > 0")
	case opts.sqlite && !opts.seed:
		return options{}, errors.New("-sqlite starts with an empty database, use it with -seed")
	case !opts.seed && opts.maxOrderID <= 0 && len(opts.identities) == 0:
		return options{}, errors.New("nothing to check: use -seed, -max-order-id or -identities")
	}
	return opts, nil
}

// serviceConfig строит конфигурацию с обоими read-путями и без outbox.
func serviceConfig(opts options) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if opts.sqlite {
		cfg.Storage.Driver = config.StorageDriverSQLite
		cfg.Storage.SQLiteDSN = "file:querycheck?mode=memory"
	} else {
		cfg.Storage.Driver = config.StorageDriverPostgres
		if opts.dsn != "" {
			cfg.Postgres.DSN = opts.dsn
		}
	}
	cfg.Queries.Primary = queries.PathSQL
	cfg.Queries.Shadow = false
	cfg.Outbox.Enabled = false
	cfg.Kafka.Brokers = nil
	return cfg, cfg.Validate()
}

// sweep сверяет пути по всем ключам и возвращает отчёт.
func sweep(ctx context.Context, paths map[string]domain.OrderQueries, orderIDs []int64, identities []string, concurrency int) (report, error) {
	primary, ok := paths[queries.PathSQL]
	if !ok {
		return report{}, fmt.Errorf("read path %q is not available", queries.PathSQL)
	}
	secondary, ok := paths[queries.PathORM]
	if !ok {
		return report{}, fmt.Errorf("read path %q is not available", queries.PathORM)
	}

	c := newCollector()
	shadow := queries.NewShadow(primary, secondary, queries.WithDivergenceHandler(c.diverged))
	startedAt := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	g.Go(func() error {
		start := time.Now()
		_, err := shadow.GetCardTypes(gctx)
		c.record(queries.QueryGetCardTypes, time.Since(start), err)
		return nil
	})
	for _, id := range orderIDs {
		g.Go(func() error {
			start := time.Now()
			_, err := shadow.GetOrder(gctx, id)
			c.record(queries.QueryGetOrder, time.Since(start), err)
			return gctx.Err()
		})
	}
	for _, identity := range identities {
		g.Go(func() error {
			start := time.Now()
			_, err := shadow.GetOrdersFromUser(gctx, identity)
			c.record(queries.QueryGetOrdersFromUser, time.Since(start), err)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return report{}, err
	}
	return c.buildReport(startedAt, time.Since(startedAt)), nil
}

func keysToCheck(ctx context.Context, a *app.App, opts options) ([]int64, []string, error) {
	if opts.seed {
		res, err := seed.NewGenerator(a.Orders(), a.Buyers()).Run(ctx, seed.Options{
			Buyers: opts.buyers,
			Orders: opts.orders,
			Seed:   opts.rngSeed,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("seed: %w", err)
		}
		// неизвестная identity тоже должна совпасть: пустой список на обоих путях
		return res.OrderIDs, append(res.BuyerIdentities, "00000000-0000-0000-0000-000000000000"), nil
	}

	ids := make([]int64, 0, opts.maxOrderID)
	for id := int64(1); id <= opts.maxOrderID; id++ {
		ids = append(ids, id)
	}
	return ids, opts.identities, nil
}

func run(ctx context.Context, opts options, out io.Writer) (report, error) {
	cfg, err := serviceConfig(opts)
	if err != nil {
		return report{}, err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return report{}, err
	}
	defer a.Close()

	orderIDs, identities, err := keysToCheck(ctx, a, opts)
	if err != nil {
		return report{}, err
	}

	result, err := sweep(ctx, a.Paths(), orderIDs, identities, opts.concurrency)
	if err != nil {
		return report{}, err
	}

	printReport(out, result)
	if opts.outputPath != "" {
		if err := writeJSONReport(opts.outputPath, result); err != nil {
			return report{}, fmt.Errorf("write report: %w", err)
		}
	}
	return result, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel)

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	result, err := run(ctx, opts, os.Stdout)
	if err != nil {
		fail("querycheck failed: %v", err)
	}
	if len(result.Divergences) > 0 || result.Failed > 0 {
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}

	// #nosec G304 -- path is an explicit CLI output parameter.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(out io.Writer, result report) {
	fmt.Fprintln(out, "Query check summary")
	fmt.Fprintf(out, "primary=%s shadow=%s checks=%d failed=%d divergences=%d duration=%.2fs\n",
		result.Primary,
		result.Shadow,
		result.Checks,
		result.Failed,
		len(result.Divergences),
		result.DurationSeconds,
	)

	names := make([]string, 0, len(result.Queries))
	for name := range result.Queries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Queries[name]
		fmt.Fprintf(out, "%s: checks=%d failed=%d p50=%.2fms p95=%.2fms max=%.2fms\n",
			name,
			stats.Checks,
			stats.Failed,
			stats.LatencyMs.P50,
			stats.LatencyMs.P95,
			stats.LatencyMs.Max,
		)
	}
	for _, d := range result.Divergences {
		fmt.Fprintf(out, "DIVERGENCE %s\n", d)
	}
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}
