package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"contentmaker/internal/adapter/repo"
	"contentmaker/internal/generate"
	"contentmaker/internal/http/handlers"
	"contentmaker/internal/http/httpapi"
	"contentmaker/internal/infra"
	"contentmaker/internal/infra/geoip"
	"contentmaker/internal/jobs"
	"contentmaker/internal/providers/image"
	"contentmaker/internal/providers/music"
	"contentmaker/internal/providers/speech"
	"contentmaker/internal/providers/text"
	"contentmaker/internal/storage"
)

// testModeMusicSeconds caps synthetic tracks when TEST_MODE is on.
const testModeMusicSeconds = 2

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api: exited with error")
	}
	logger.Info().Msg("api: stopped")
}

func run(ctx context.Context, cfg *infra.Config, logger infra.Logger) error {
	files, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		return err
	}

	textGen, err := text.New(cfg, logger)
	if err != nil {
		return err
	}
	tokens, err := text.NewTokenCounter()
	if err != nil {
		logger.Warn().Err(err).Msg("api: tokenizer unavailable, estimating prompt sizes")
	}
	maxMusic := 0
	if cfg.TestMode {
		maxMusic = testModeMusicSeconds
	}
	engine := generate.New(generate.Providers{
		Text:   textGen,
		Images: image.New(cfg, logger),
		Speech: speech.New(cfg, logger),
		Music:  music.NewSynth(maxMusic),
		Tokens: tokens,
	}, files, generate.Options{
		ProviderTimeout: cfg.Jobs.ProviderTimeout,
		DefaultVoice:    cfg.ElevenLabs.DefaultVoice,
	}, logger)

	clock := infra.SystemClock{}
	var (
		storeOpts []jobs.StoreOption
		writer    *jobs.JournalWriter
		journal   *repo.JobJournalPG
	)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		journal = repo.NewJobJournal(infra.NewSQLRunner(pool, logger))
		if err := journal.EnsureSchema(ctx); err != nil {
			return err
		}
		writer = jobs.NewJournalWriter(journal, logger)
		storeOpts = append(storeOpts, jobs.WithJournal(writer))
	}
	store := jobs.NewStore(clock, storeOpts...)
	if journal != nil {
		restored, abandoned, err := jobs.Reconcile(ctx, store, journal, logger)
		if err != nil {
			return err
		}
		logger.Info().Int("restored", restored).Int("abandoned", abandoned).Msg("api: journal restored")
	}

	runner := jobs.NewRunner(store, files, engine, jobs.RunnerConfig{
		Concurrency: cfg.Jobs.WorkerConcurrency,
		JobTimeout:  cfg.Jobs.JobTimeout,
	}, logger)
	dispatcher := jobs.NewDispatcher(store, runner, clock, logger)
	sweeper := jobs.NewSweeper(store, files, clock, jobs.SweeperConfig{
		Retention: cfg.Jobs.Retention,
		Interval:  cfg.Jobs.SweepInterval,
	}, logger)

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}
	defer resolver.Close()
	var lookup func(string) (string, error)
	if resolver != nil {
		lookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(handlers.NewApp(dispatcher, store, files, logger), httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		TrustProxy:      cfg.TrustProxyHeaders,
		CountryLookup:   lookup,
		CountryLanguage: geoip.LanguageForCountry,
	})
	server := infra.NewHTTPServer(cfg, router)

	// The journal outlives the server so the runner's final transitions reach it.
	journalCtx, stopJournal := context.WithCancel(context.Background())
	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		if writer != nil {
			_ = writer.Run(journalCtx)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr()).
			Str("text_provider", textGen.Name()).
			Bool("test_mode", cfg.TestMode).
			Msg("api: listening")
		return server.Run(gctx)
	})
	g.Go(func() error { return sweeper.Run(gctx) })
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: workers did not stop in time")
	}
	stopJournal()
	<-journalDone

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
