package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/vestsk/tippebot/external/espn"
	"github.com/vestsk/tippebot/internal/config"
	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/domain/team"
	"github.com/vestsk/tippebot/internal/infrastructure/discord"
	"github.com/vestsk/tippebot/internal/infrastructure/sheets"
	"github.com/vestsk/tippebot/internal/interfaces/commands"
	"github.com/vestsk/tippebot/internal/interfaces/httpapi"
	"github.com/vestsk/tippebot/internal/observability"
	"github.com/vestsk/tippebot/internal/platform/id"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"github.com/vestsk/tippebot/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Bot owns the long-running parts of the process: the Discord listener, the
// reminder and auto-post loops and the keep-alive HTTP server.
type Bot struct {
	cfg        config.Config
	logger     *logging.Logger
	metrics    *observability.Metrics
	session    *discord.Session
	dispatcher *commands.Dispatcher
	reminders  *usecase.ReminderService
	autopost   *usecase.AutoPostService
	server     *httpapi.Server
}

// Services is the set of usecases shared by the bot and the CLI.
type Services struct {
	Registry  *team.Registry
	ESPN      *espn.Client
	Matchups  *usecase.MatchupService
	Collector *usecase.CollectorService
	Export    *usecase.ExportService
	Reconcile *usecase.ReconcileService
	PPR       *usecase.PPRService
}

// Sources overrides the spreadsheet backends. Nil fields are served by
// Google Sheets.
type Sources struct {
	Grids     usecase.GridSource
	Workbooks usecase.WorkbookSource
}

// NewServices builds the usecases on top of the given chat client.
func NewServices(
	ctx context.Context,
	cfg config.Config,
	chatClient chat.Client,
	sources Sources,
	recorder usecase.Recorder,
	logger *logging.Logger,
) (*Services, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if recorder == nil {
		recorder = usecase.NewNoopRecorder()
	}

	registry, err := team.DefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("load team registry: %w", err)
	}

	espnCfg := espn.ClientConfig{
		HTTPClient:     &http.Client{Timeout: cfg.ESPNTimeout},
		ScoreboardURL:  cfg.ESPNScoreboardURL,
		FantasyURL:     cfg.ESPNFantasyURL,
		LeagueID:       cfg.ESPNLeagueID,
		Year:           cfg.ESPNYear,
		S2:             cfg.ESPNS2,
		SWID:           cfg.ESPNSWID,
		Timeout:        cfg.ESPNTimeout,
		RetryDelay:     cfg.ESPNRetryDelay,
		WeekTTL:        cfg.ESPNWeekTTL,
		Registry:       registry,
		Logger:         logger.Named("espn"),
		CircuitBreaker: cfg.ESPNCircuit,
	}
	if m, ok := recorder.(*observability.Metrics); ok {
		espnCfg.OnBreakerChange = m.BreakerState
		espnCfg.OnFailure = m.UpstreamFailure
	}
	espnClient := espn.NewClient(espnCfg)

	if sources.Grids == nil || sources.Workbooks == nil {
		sheetService, err := sheets.NewService(ctx, sheets.Config{
			CredentialsFile: cfg.GoogleCredentialsFile,
			Timeout:         cfg.SheetsTimeout,
			Logger:          logger.Named("sheets"),
		})
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		if sources.Grids == nil {
			sources.Grids = sheetService.GridSource(cfg.TippingSpreadsheetID, cfg.TippingSpreadsheetName, cfg.TippingWorksheet)
		}
		if sources.Workbooks == nil {
			sources.Workbooks = sheetService.WorkbookSource(cfg.PPRSpreadsheetID, cfg.PPRSpreadsheetName)
		}
	}

	matchups := usecase.NewMatchupService(espnClient, chatClient, registry, usecase.MatchupConfig{
		TippingChannelID: cfg.Discord.TippingChannelID,
		ChatterChannelID: cfg.Discord.ChatterChannelID,
	}, recorder, logger.Named("matchups"))
	collector := usecase.NewCollectorService(chatClient, registry, usecase.CollectorConfig{}, logger.Named("collector"))

	return &Services{
		Registry:  registry,
		ESPN:      espnClient,
		Matchups:  matchups,
		Collector: collector,
		Export:    usecase.NewExportService(sources.Grids, collector, recorder, logger.Named("export")),
		Reconcile: usecase.NewReconcileService(espnClient, sources.Grids, registry, recorder, logger.Named("reconcile")),
		PPR: usecase.NewPPRService(sources.Workbooks, usecase.PPRConfig{
			Season:    cfg.PPRSeason,
			Players:   cfg.PPRPlayers,
			TeamNames: cfg.TeamNames,
		}, recorder, logger.Named("ppr")),
	}, nil
}

// New wires the bot from configuration. Nothing connects until Run.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Bot, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if err := cfg.RequireDiscord(); err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()

	session, err := discord.NewSession(cfg.Discord.Token, logger.Named("discord"))
	if err != nil {
		return nil, err
	}

	svc, err := NewServices(ctx, cfg, session, Sources{}, metrics, logger)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		session: session,
	}

	bot.dispatcher = commands.NewDispatcher(session.Send, commands.Services{
		Matchups:  svc.Matchups,
		Export:    svc.Export,
		Reconcile: svc.Reconcile,
		PPR:       svc.PPR,
	}, commands.Config{
		Prefix:         cfg.Discord.CommandPrefix,
		AdminIDs:       cfg.Discord.AdminIDs,
		AdminChannelID: cfg.Discord.AdminChannelID,
		Cooldown:       cfg.Discord.CommandCooldown,
	}, id.NewUUIDGenerator(), metrics, logger.Named("commands"))

	state := &usecase.ReminderState{}
	if cfg.RemindersEnabled {
		bot.reminders = usecase.NewReminderService(svc.ESPN, session, usecase.ReminderConfig{
			ChatterChannelID: cfg.Discord.ChatterChannelID,
			TippingChannelID: cfg.Discord.TippingChannelID,
			Location:         cfg.Location,
			WaiversEnabled:   cfg.WaiversEnabled,
		}, state, metrics, logger.Named("reminders"))
	}
	if cfg.AutoPostEnabled {
		bot.autopost = usecase.NewAutoPostService(svc.ESPN, svc.Matchups, svc.Export, svc.Reconcile, usecase.AutoPostConfig{
			TippingChannelID: cfg.Discord.TippingChannelID,
			ChatterChannelID: cfg.Discord.ChatterChannelID,
			Interval:         cfg.AutoPostInterval,
		}, state, metrics, logger.Named("autopost"))
	}

	var opts []httpapi.Option
	if cfg.PprofEnabled {
		opts = append(opts, httpapi.WithPprof())
	}
	bot.server = httpapi.NewServer(cfg.HTTPAddr, metrics.Registry(), map[string]httpapi.HealthCheck{
		"discord": sessionReady(session),
	}, logger, opts...)

	return bot, nil
}

// Run connects to Discord and blocks until ctx is cancelled or the HTTP
// server fails. Loops are given shutdownTimeout to stop.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return err
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.logger.Warn("close discord session", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.session.Listen(ctx, b.dispatcher.Handle)
	b.logger.Info("bot started",
		"prefix", b.cfg.Discord.CommandPrefix,
		"reminders", b.reminders != nil,
		"autopost", b.autopost != nil,
	)

	serverErr := make(chan error, 1)
	var wg conc.WaitGroup
	wg.Go(func() {
		if err := b.server.Start(); err != nil {
			serverErr <- err
		}
	})
	if b.reminders != nil {
		wg.Go(func() { b.runLoop(ctx, "reminders", b.reminders.Run) })
	}
	if b.autopost != nil {
		wg.Go(func() { b.runLoop(ctx, "autopost", b.autopost.Run) })
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		b.logger.Error("http server failed", "error", runErr)
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := b.server.Shutdown(shutdownCtx); err != nil {
		b.logger.Error("graceful shutdown failed", "error", err)
	}
	wg.Wait()

	b.logger.Info("bot stopped")
	return runErr
}

func (b *Bot) runLoop(ctx context.Context, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		b.metrics.LoopError(name)
		b.logger.Error("loop exited", "loop", name, "error", err)
	}
}

func sessionReady(session interface{ SelfID() string }) httpapi.HealthCheck {
	return func(context.Context) error {
		if session.SelfID() == "" {
			return errors.New("discord session not ready")
		}
		return nil
	}
}
