package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"github.com/vestsk/tippebot/internal/platform/resilience"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultAutoPostInterval = time.Hour

	AutoPostPrompt = "Reager med laget du tror vinner på meldingene over."
)

type AutoPostConfig struct {
	TippingChannelID string
	ChatterChannelID string
	Interval         time.Duration
}

type AutoPostService struct {
	league    LeagueProvider
	matchups  *MatchupService
	export    *ExportService
	reconcile *ReconcileService
	cfg       AutoPostConfig
	state     *ReminderState
	recorder  Recorder
	logger    *logging.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewAutoPostService(
	league LeagueProvider,
	matchups *MatchupService,
	export *ExportService,
	reconcile *ReconcileService,
	cfg AutoPostConfig,
	state *ReminderState,
	recorder Recorder,
	logger *logging.Logger,
) *AutoPostService {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultAutoPostInterval
	}
	if state == nil {
		state = &ReminderState{}
	}
	if recorder == nil {
		recorder = NewNoopRecorder()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AutoPostService{
		league:    league,
		matchups:  matchups,
		export:    export,
		reconcile: reconcile,
		cfg:       cfg,
		state:     state,
		recorder:  recorder,
		logger:    logger,
		sleep:     resilience.Sleep,
	}
}

// Run polls every interval until ctx is cancelled. Failures are logged and
// the loop waits for the next poll.
func (s *AutoPostService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "auto-post loop started", "interval", s.cfg.Interval.String())
	for {
		if err := s.Step(ctx); err != nil && ctx.Err() == nil {
			s.recorder.LoopError("autopost")
			s.logger.ErrorContext(ctx, "auto-post iteration failed", "error", err)
		}
		if err := s.sleep(ctx, s.cfg.Interval); err != nil {
			s.logger.InfoContext(ctx, "auto-post loop stopped")
			return err
		}
	}
}

// Step processes the previous week if needed and then posts the current
// week's missing matchup lines. Nothing is posted while the previous week
// is unprocessed.
func (s *AutoPostService) Step(ctx context.Context) (err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AutoPostService.Step")
	defer func() { endSpan(span, err) }()

	week, err := s.league.CurrentWeek(ctx)
	if err != nil {
		return fmt.Errorf("read current fantasy week: %w", err)
	}
	span.SetAttributes(attribute.Int("week", week))

	if err := s.processPrevious(ctx, week); err != nil {
		return err
	}
	if s.state.LastAutoPostedWeek == week {
		return nil
	}

	lines, err := s.matchups.List(ctx, week)
	if err != nil {
		if errors.Is(err, ErrNoMatchupsFound) {
			s.logger.InfoContext(ctx, "no matchups published yet", "week", week)
			return nil
		}
		return fmt.Errorf("list matchups for week %d: %w", week, err)
	}

	posted, err := s.matchups.PostedLines(ctx, s.cfg.TippingChannelID)
	if err != nil {
		s.logger.WarnContext(ctx, "could not read posting history", "error", err)
		posted = map[string]struct{}{}
	}
	missing := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := posted[line]; !ok {
			missing = append(missing, line)
		}
	}
	if len(missing) == 0 {
		s.state.LastAutoPostedWeek = week
		s.logger.InfoContext(ctx, "matchups already posted", "week", week)
		return nil
	}

	if err := s.matchups.sendLines(ctx, s.cfg.TippingChannelID, missing); err != nil {
		return err
	}
	if err := s.matchups.send(ctx, s.cfg.TippingChannelID, AutoPostPrompt, "autopost_prompt"); err != nil {
		return err
	}
	if s.cfg.ChatterChannelID != "" {
		notice := fmt.Sprintf("@everyone Ukens kamper (uke %d) er lagt ut i %s!", week, chat.ChannelMention(s.cfg.TippingChannelID))
		if err := s.matchups.send(ctx, s.cfg.ChatterChannelID, notice, "autopost_notice"); err != nil {
			return err
		}
	}

	s.state.LastAutoPostedWeek = week
	s.logger.InfoContext(ctx, "auto-posted matchups", "week", week, "lines", len(missing), "already_posted", len(lines)-len(missing))
	return nil
}

func (s *AutoPostService) processPrevious(ctx context.Context, week int) error {
	if week <= 1 {
		return nil
	}
	previous := week - 1
	if s.state.LastProcessedWeek == previous {
		return nil
	}

	if _, err := s.export.Export(ctx, s.cfg.TippingChannelID, previous); err != nil {
		return fmt.Errorf("export week %d: %w", previous, err)
	}
	if err := s.matchups.send(ctx, s.cfg.TippingChannelID, ExportDoneMessage, "export_done"); err != nil {
		return err
	}
	result, err := s.reconcile.Reconcile(ctx, previous)
	if err != nil {
		return fmt.Errorf("reconcile week %d: %w", previous, err)
	}
	for _, msg := range ReconcileMessages(result) {
		if err := s.matchups.send(ctx, s.cfg.TippingChannelID, msg, "leaderboard"); err != nil {
			return err
		}
	}

	s.state.LastProcessedWeek = previous
	s.logger.InfoContext(ctx, "processed previous week", "week", previous)
	return nil
}
