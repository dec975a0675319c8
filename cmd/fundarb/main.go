package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arbengine/fundarb/internal/access"
	"github.com/arbengine/fundarb/internal/config"
	"github.com/arbengine/fundarb/internal/detector"
	"github.com/arbengine/fundarb/internal/distribution"
	"github.com/arbengine/fundarb/internal/httpapi"
	"github.com/arbengine/fundarb/internal/ledger"
	"github.com/arbengine/fundarb/internal/log"
	"github.com/arbengine/fundarb/internal/money"
	"github.com/arbengine/fundarb/internal/notify"
	"github.com/arbengine/fundarb/internal/profile"
	"github.com/arbengine/fundarb/internal/ratelimit"
	"github.com/arbengine/fundarb/internal/scheduler"
	"github.com/arbengine/fundarb/internal/store/kv"
	"github.com/arbengine/fundarb/internal/store/postgres"
	"github.com/arbengine/fundarb/internal/venue"
)

const (
	appName = "fundarb"
	version = "v0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Cross-venue funding-rate arbitrage detection and distribution engine",
		Version: version,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (defaults baked in if omitted)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDetectOnceCmd())
	rootCmd.AddCommand(newMigrateCheckCmd())
	rootCmd.AddCommand(newConfigValidateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-validate",
		Short: "Load the configuration and report whether it passes validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("config OK: %d venues, %d pairs, threshold %.2fbps, max recipients %d\n",
				len(cfg.MonitoredVenues), len(cfg.MonitoredPairs), cfg.ThresholdBps, cfg.MaxRecipientsPerOpportunity)
			return nil
		},
	}
}

func newMigrateCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-check",
		Short: "Verify the configured database is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log.Init(cfg.LogLevel, true)

			if cfg.Store.DatabaseURL == "" {
				return fmt.Errorf("store.database_url is not configured")
			}

			dbCfg := postgres.DefaultConfig()
			dbCfg.DSN = cfg.Store.DatabaseURL
			db, err := postgres.Open(dbCfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := postgres.Ping(ctx, db, 5*time.Second); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}

			fmt.Println("database reachable")
			return nil
		},
	}
}

func newDetectOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect-once",
		Short: "Run a single detection cycle and print the opportunities it emits",
		RunE:  runDetectOnce,
	}
}

func runDetectOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel, true)

	registry, err := buildVenueRegistry(cfg)
	if err != nil {
		return err
	}

	cycle, err := buildDetectionCycle(cfg, registry)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DetectionIntervalSeconds)*time.Second)
	defer cancel()

	opportunities, err := cycle.Run(ctx)
	if err != nil {
		return fmt.Errorf("detection cycle failed: %w", err)
	}

	// An interactive terminal gets a header line; scripted/piped
	// invocations get bare rows for easy parsing.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("%-14s %-16s %-16s %10s %10s\n", "PAIR", "LONG", "SHORT", "NET_BPS", "PRIORITY")
	}
	for _, opp := range opportunities {
		fmt.Printf("%-14s long=%-10s short=%-10s net=%.2fbps priority=%.2f\n",
			opp.Pair, opp.LongVenue, opp.ShortVenue, opp.NetRateDifference.Bps(), opp.PriorityScore)
	}
	fmt.Printf("%d opportunities detected\n", len(opportunities))
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, detection scheduler, and distribution pipeline",
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "override the HTTP listener port from config")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel, false)
	logger := log.Component("main")

	if cfg.Store.DatabaseURL == "" {
		return fmt.Errorf("store.database_url is required to serve")
	}

	store := kv.New(cfg.Store.RedisAddr)

	dbCfg := postgres.DefaultConfig()
	dbCfg.DSN = cfg.Store.DatabaseURL
	db, err := postgres.Open(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	usersRepo := postgres.NewUsersRepo(db, dbCfg.QueryTimeout)
	credentialsRepo := postgres.NewCredentialsRepo(db, dbCfg.QueryTimeout)

	creds, err := profile.NewCredentialStore(credentialsRepo, deriveEncryptionKey(cfg.EncryptionKeyRef))
	if err != nil {
		return err
	}

	profiles := profile.NewService(usersRepo, creds)
	sessions := profile.NewSessionStore(store)
	checker := access.NewChecker()
	limiter := ratelimit.New(store)
	routeTable := ratelimit.NewRouteTable(limiter, cfg.RateLimitTable)

	registry, err := buildVenueRegistry(cfg)
	if err != nil {
		return err
	}
	cycle, err := buildDetectionCycle(cfg, registry)
	if err != nil {
		return err
	}

	writer := ledger.NewPostgresWriter(db, dbCfg.QueryTimeout)

	transport := notify.NewTelegramTransport(notify.TelegramConfig{BotToken: os.Getenv("TELEGRAM_BOT_TOKEN")})
	router := notify.NewRouter(map[notify.Channel]notify.Transport{
		notify.ChannelPrivate: transport,
		notify.ChannelGroup:   transport,
	})

	engine := distribution.NewEngine(store, checker, router, ledger.DistributionSink{Writer: writer}, distribution.Fairness{
		PerBurst:        cfg.Fairness.PerBurst,
		PerDay:          cfg.Fairness.PerDay,
		CooldownSeconds: cfg.Fairness.CooldownSeconds,
		TierMultipliers: cfg.Fairness.TierMultipliers,
		ActivityBoost:   cfg.Fairness.ActivityBoost,
		GroupMultiplier: cfg.Fairness.GroupMultiplier,
	})

	serverCfg := httpapi.DefaultServerConfig()
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		serverCfg.Port = port
	}

	server := httpapi.NewServer(serverCfg, httpapi.Deps{
		Store:      store,
		Sessions:   sessions,
		Profiles:   profiles,
		Checker:    checker,
		RouteTable: routeTable,
		PingPostgres: func(ctx context.Context) error {
			return postgres.Ping(ctx, db, 3*time.Second)
		},
		Version: version,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(scheduler.Config{
		DetectionInterval:   time.Duration(cfg.DetectionIntervalSeconds) * time.Second,
		MaintenanceInterval: time.Hour,
		OnDetectionTick: func(ctx context.Context) error {
			return runDetectionTick(ctx, cycle, store, profiles, sessions, engine, writer, cfg)
		},
		OnMaintenanceTick: func(ctx context.Context) error {
			_, err := writer.Sweep(ctx, ledger.DefaultRetentionWindows(), time.Now())
			return err
		},
	})

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("scheduler stopped unexpectedly")
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped unexpectedly")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// runDetectionTick runs one detection cycle, persists each emitted
// opportunity's public record, builds the recipient candidate list from
// every active profile, and hands the pair off to the distribution engine.
func runDetectionTick(ctx context.Context, cycle *detector.Cycle, store kv.Store, profiles *profile.Service, sessions *profile.SessionStore, engine *distribution.Engine, writer ledger.Writer, cfg config.Config) error {
	opportunities, err := cycle.Run(ctx)
	if err != nil {
		return fmt.Errorf("detection cycle failed: %w", err)
	}

	candidates, roles, err := distribution.BuildCandidates(ctx, profiles, sessions, writer, access.FeatureFlags{})
	if err != nil {
		return fmt.Errorf("build recipient candidates: %w", err)
	}

	logger := log.Component("main")
	ttl := time.Duration(cfg.OpportunityTTLSeconds) * time.Second
	for _, opp := range opportunities {
		if err := store.Put(ctx, kv.OpportunityRecordKey(opp.ID), opp, kv.PutOptions{TTL: ttl}); err != nil {
			logger.Warn().Err(err).Str("opportunity_id", opp.ID).Msg("failed to persist opportunity record")
			continue
		}
		if err := writer.RecordDetection(ctx, ledger.DetectionRecord{
			OpportunityID:     opp.ID,
			Pair:              opp.Pair,
			LongVenue:         opp.LongVenue,
			ShortVenue:        opp.ShortVenue,
			NetRateDifference: opp.NetRateDifference.Float(),
			PriorityScore:     opp.PriorityScore,
			DetectedAt:        opp.DetectedAt,
		}); err != nil {
			logger.Warn().Err(err).Str("opportunity_id", opp.ID).Msg("failed to record detection")
		}

		engine.Distribute(ctx, opp, distribution.KindArbitrage, candidates, roles)
	}

	return nil
}

func buildVenueRegistry(cfg config.Config) (*venue.Registry, error) {
	cfgs := make([]venue.VenueConfig, 0, len(cfg.MonitoredVenues))
	for _, id := range cfg.MonitoredVenues {
		cfgs = append(cfgs, venue.VenueConfig{
			ID:        id,
			TimeoutMs: 10_000,
			TakerBps:  defaultTakerBps(id),
		})
	}
	return venue.NewRegistry(cfgs)
}

// defaultTakerBps is the static taker fee each venue adapter reports for
// every fee lookup; no adapter fetches a live fee schedule.
func defaultTakerBps(venueID string) float64 {
	switch venueID {
	case "binance":
		return 4
	case "okx":
		return 5
	case "kraken":
		return 10
	case "coinbase":
		return 6
	default:
		return 5
	}
}

func buildDetectionCycle(cfg config.Config, registry *venue.Registry) (*detector.Cycle, error) {
	threshold, err := money.FromBps(cfg.ThresholdBps)
	if err != nil {
		return nil, fmt.Errorf("invalid threshold_bps: %w", err)
	}

	return detector.NewCycle(detector.Config{
		MonitoredVenues:          cfg.MonitoredVenues,
		MonitoredPairs:           cfg.MonitoredPairs,
		Threshold:                threshold,
		DetectionIntervalSeconds: cfg.DetectionIntervalSeconds,
		OpportunityTTLSeconds:    cfg.OpportunityTTLSeconds,
		MaxRecipientsPerOpp:      cfg.MaxRecipientsPerOpportunity,
	}, registry), nil
}

// deriveEncryptionKey resolves the opaque encryption_key_ref into 32 key
// bytes. A production deployment would resolve this through a KMS or
// mounted secret file; this module takes the ref as the key material
// directly and stretches it to size with SHA-256.
func deriveEncryptionKey(ref string) []byte {
	sum := sha256.Sum256([]byte(ref))
	return sum[:]
}
