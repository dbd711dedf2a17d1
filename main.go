package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dealmungchi/bestdeal/config"
	"github.com/dealmungchi/bestdeal/internal/finder"
	"github.com/dealmungchi/bestdeal/internal/marketplace"
	"github.com/dealmungchi/bestdeal/internal/observability"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/services/apify"
	"github.com/dealmungchi/bestdeal/services/cache"
	"github.com/dealmungchi/bestdeal/services/publisher"
	"github.com/dealmungchi/bestdeal/services/requests"
	"github.com/dealmungchi/bestdeal/services/worker"
)

func main() {
	var (
		term       = flag.String("term", "", "search term for a one-off search")
		source     = flag.String("source", "", "marketplace to search (default: all)")
		region     = flag.String("region", "", "storefront region for regional marketplaces")
		workerMode = flag.Bool("worker", false, "serve search requests from the Redis stream")
		list       = flag.Bool("list", false, "list the enabled marketplaces")
	)
	flag.Parse()

	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	cfg := config.LoadConfig()

	if *list {
		if err := listSources(os.Stdout, cfg); err != nil {
			log.Fatal().Err(err).Msg("Invalid configuration")
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := newFinder(cfg, connectCache(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create marketplace clients")
	}

	switch {
	case *workerMode:
		runWorker(ctx, cfg, f)
	case *term != "":
		rep := f.Find(ctx, finder.Request{ID: "cli", Term: *term, Source: *source, Region: *region})
		fmt.Println(rep.Message)
		if rep.Status == finder.StatusFailed || rep.Status == finder.StatusUnknownSource {
			stop()
			os.Exit(1)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// connectCache returns the cooldown cache, or nil when memcache is unreachable
func connectCache(cfg *config.Config) cache.CacheService {
	memcache := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := memcache.Ping(); err != nil {
		logger.Warn("Memcache at %s unavailable, source cooldowns disabled: %v", cfg.MemcacheAddr, err)
		return nil
	}
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	return memcache
}

// newFinder wires the delegate, source clients and aggregator
func newFinder(cfg *config.Config, cacheSvc cache.CacheService) (*finder.Finder, error) {
	delegate := apify.NewFromConfig(cfg)

	manager, err := marketplace.NewManagerFromConfig(cfg, delegate, cacheSvc)
	if err != nil {
		return nil, err
	}
	return finder.New(manager, cfg.SearchTimeout), nil
}

func listSources(w io.Writer, cfg *config.Config) error {
	manager, err := marketplace.NewManagerFromConfig(cfg, nil, nil)
	if err != nil {
		return err
	}
	for _, source := range manager.Sources() {
		region := ""
		if manager.SupportsRegion(source) {
			region = " (regional)"
		}
		fmt.Fprintf(w, "%-12s %s%s\n", source, manager.DisplayName(source), region)
	}
	return nil
}

func runWorker(ctx context.Context, cfg *config.Config, f *finder.Finder) {
	log := logger.Default

	observability.Start(cfg.MetricsPort)
	log.Info().Str("port", cfg.MetricsPort).Msg("Metrics endpoint started")

	source := requests.NewFromConfig(cfg)
	defer source.Close()
	if err := source.EnsureGroup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare request stream")
	}

	pub := publisher.NewFromConfig(cfg)
	defer pub.Close()
	if err := pub.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Strs("sources", f.Sources()).
		Str("request_stream", cfg.RedisRequestStream).
		Str("report_stream", cfg.RedisReportStream).
		Msg("Starting bestdeal worker")

	worker.NewWorker(f, source, pub, cfg.WorkerConcurrency).Run(ctx)

	// Graceful shutdown
	log.Info().Msg("Shut down gracefully")
}
