// cmd/matchengine wires the core packages into a runnable process:
// CLI/config loading, the venue definition (instruments + phase
// schedule), the engine repository, the phase controller, optional
// persistence (file-based instrument state, opt-in Mongo trade tape),
// the admin HTTP API, and a thin demo order-entry transport. Grounded on
// the teacher's cmd/feedsim/main.go: context-based graceful shutdown on
// SIGINT/SIGTERM, ticker-driven background workers started as goroutines,
// one http.Server for the whole process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/openmarket-sim/matchcore/internal/adminapi"
	"github.com/openmarket-sim/matchcore/internal/config"
	"github.com/openmarket-sim/matchcore/internal/fabric"
	"github.com/openmarket-sim/matchcore/internal/instrument"
	"github.com/openmarket-sim/matchcore/internal/logging"
	"github.com/openmarket-sim/matchcore/internal/matchengine"
	"github.com/openmarket-sim/matchcore/internal/persist"
	"github.com/openmarket-sim/matchcore/internal/phase"
	"github.com/openmarket-sim/matchcore/internal/repository"
	"github.com/openmarket-sim/matchcore/internal/session"
)

func main() {
	cmd := config.NewRootCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(flags config.CLIFlags, v *viper.Viper) error {
	logging.Init(logging.DefaultOptions())
	log.Info().Str("prefix", flags.Prefix).Str("instance", flags.InstanceID).Msg("matchengine starting")

	def, err := loadVenueDefinition(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("load venue config: %w", err)
	}

	cfg := config.Default()
	cfg.InstancePrefix = flags.Prefix
	cfg.InstanceID = flags.InstanceID
	applyOperationalOverrides(&cfg, v)

	instruments, err := def.instruments()
	if err != nil {
		return fmt.Errorf("parse instruments: %w", err)
	}
	scheduleRecords, err := def.schedule()
	if err != nil {
		return fmt.Errorf("parse phase schedule: %w", err)
	}
	cfg.PhaseSchedule = scheduleRecords
	if def.Timezone != "" {
		cfg.Timezone = def.Timezone
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolve timezone %q: %w", cfg.Timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	var mongoStore *persist.MongoStore
	var reader persist.TradeReader
	if cfg.TradeTapeEnabled {
		store, err := persist.NewMongoStore(ctx, cfg.MongoURI, persist.TradeStreamConfig{
			Enabled:          cfg.TradeStreaming,
			IncludeVolume:    cfg.TradeVolumeStreaming,
			IncludeParties:   cfg.TradePartiesStreaming,
			IncludeAggressor: cfg.TradeAggressorStreaming,
		})
		if err != nil {
			log.Error().Err(err).Msg("trade tape disabled: mongo connect failed")
		} else {
			if err := store.Migrate(ctx); err != nil {
				log.Error().Err(err).Msg("trade tape disabled: migration failed")
				store.Close(ctx)
			} else {
				mongoStore = store
				reader = persist.NewMongoTradeReader(store.DB())
			}
		}
	}

	pool := fabric.NewPool(cfg.WorkerPoolSize)

	lookup := instrument.NewLookup()
	repo := repository.New()
	for _, inst := range instruments {
		lookup.Add(inst)

		eng := matchengine.NewEngine(inst, pool, matchengine.Config{
			AllowAmendDownOnHalt: cfg.AllowAmendDownOnHalt,
			SupportDay:           cfg.SupportDay,
			SupportIOC:           cfg.SupportIOC,
			SupportFOK:           cfg.SupportFOK,
			DepthOrdersExclusion: cfg.DepthOrdersExclusion,
		})
		eng.OnExecutionReport(logExecutionReport)
		eng.OnOrderCancelReject(logCancelReject)
		eng.OnSecurityStatus(logSecurityStatus)
		eng.OnMarketDataReject(logMarketDataReject)
		if mongoStore != nil {
			eng.OnTrade(func(tr matchengine.Trade) {
				if err := mongoStore.SaveTrade(context.Background(), tr); err != nil {
					log.Error().Err(err).Uint64("trade_id", tr.TradeId).Msg("save trade")
				}
			})
		}

		if err := repo.AddEngine(eng); err != nil {
			return fmt.Errorf("register instrument %d: %w", inst.InstrumentId, err)
		}
	}
	repo.Seal()
	log.Info().Int("instruments", repo.Len()).Msg("engines registered")

	if cfg.PersistenceEnabled {
		fileStore := persist.NewFileStore(cfg.PersistenceFilePath)
		if err := fileStore.RecoverState(repo); err != nil {
			log.Fatal().Err(err).Msg("recover instrument state")
		}
	}

	if mongoStore != nil {
		go persist.RunRetention(ctx, mongoStore, cfg.TradeRetentionDays)
		if cfg.ArchiveDir != "" {
			archiver := persist.NewArchiver(mongoStore, cfg.ArchiveDir, cfg.ArchiveMaxGB, cfg.ArchiveIntervalHours, cfg.ArchiveAfterHours)
			go archiver.Run(ctx)
		}
	}

	accessor := repository.NewAccessor(repo)
	sessionRegistry := session.NewRegistry(accessor)

	now := time.Now().In(loc)
	schedule := phase.NewSchedule(cfg.PhaseSchedule)
	initial := schedule.Select(phase.TimeOfDay(now)).Kind
	controller := phase.NewController(schedule, loc, initial, accessor)
	controller.Start()

	if cfg.FixSessionsPath != "" {
		sessions, err := config.LoadFixSessions(cfg.FixSessionsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load fix sessions")
		}
		log.Info().Int("sessions", len(sessions)).Msg("fix sessions loaded")
	}

	adminSrv := adminapi.NewServer(controller, repo, lookup, reader, cfg.AdminRateLimitRPS)

	mux := chi.NewRouter()
	mux.Mount("/", adminSrv.NewRouter())
	mux.Post("/orders", handleNewOrder(repo))
	mux.Get("/marketdata", handleMarketDataStream(repo, sessionRegistry))

	httpSrv := &http.Server{Addr: cfg.AdminListenAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.AdminListenAddr).Msg("admin/order-entry listening")
	serveErr := httpSrv.ListenAndServe()
	if serveErr != nil && serveErr != http.ErrServerClosed {
		log.Error().Err(serveErr).Msg("http server error")
	}

	controller.Stop()

	if cfg.PersistenceEnabled {
		fileStore := persist.NewFileStore(cfg.PersistenceFilePath)
		if err := fileStore.StoreState(repo); err != nil {
			log.Error().Err(err).Msg("final state snapshot failed")
		} else {
			log.Info().Msg("final state snapshot written")
		}
	}

	if mongoStore != nil {
		mongoStore.Close(context.Background())
	}

	pool.Shutdown()
	log.Info().Msg("matchengine stopped")
	return nil
}

// applyOperationalOverrides copies viper-bound operational flags (which
// also read from MATCHCORE_-prefixed environment variables) onto cfg.
func applyOperationalOverrides(cfg *config.Config, v *viper.Viper) {
	cfg.MongoURI = v.GetString("mongo-uri")
	cfg.TradeTapeEnabled = v.GetBool("trade-tape-enabled")
	cfg.TradeRetentionDays = v.GetInt("trade-retention-days")
	cfg.AdminListenAddr = v.GetString("admin-listen-addr")
	cfg.AdminRateLimitRPS = v.GetInt("admin-rate-limit-rps")
	cfg.ArchiveDir = v.GetString("archive-dir")
	cfg.PersistenceFilePath = v.GetString("persistence-file-path")
	cfg.PersistenceEnabled = v.GetBool("persistence-enabled")
	cfg.FixSessionsPath = v.GetString("fix-sessions-path")
}
