package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/domain/matchup"
	"github.com/vestsk/tippebot/internal/domain/team"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type MatchupConfig struct {
	TippingChannelID string
	ChatterChannelID string
	Lookback         time.Duration
	HistoryLimit     int
}

type MatchupService struct {
	schedule matchup.Schedule
	chat     chat.Client
	registry *team.Registry
	cfg      MatchupConfig
	recorder Recorder
	logger   *logging.Logger
	now      func() time.Time
}

func NewMatchupService(
	schedule matchup.Schedule,
	chatClient chat.Client,
	registry *team.Registry,
	cfg MatchupConfig,
	recorder Recorder,
	logger *logging.Logger,
) *MatchupService {
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultCollectLookback
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if recorder == nil {
		recorder = NewNoopRecorder()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchupService{
		schedule: schedule,
		chat:     chatClient,
		registry: registry,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns the formatted posting lines for week in kickoff order.
func (s *MatchupService) List(ctx context.Context, week int) (lines []string, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchupService.List", attribute.Int("week", week))
	defer func() { endSpan(span, err) }()

	items, err := s.schedule.FetchWeek(ctx, week)
	if err != nil {
		return nil, err
	}
	matchup.SortByKickoff(items)

	lines = make([]string, 0, len(items))
	for _, m := range items {
		lines = append(lines, s.registry.FormatMatchLine(m.AwayTeam, m.HomeTeam))
	}
	return lines, nil
}

// Post sends every line of week to channelID and announces it in the
// chatter channel.
func (s *MatchupService) Post(ctx context.Context, channelID string, week int) (int, error) {
	lines, err := s.List(ctx, week)
	if err != nil {
		return 0, err
	}
	if err := s.sendLines(ctx, channelID, lines); err != nil {
		return 0, err
	}
	if s.cfg.ChatterChannelID != "" {
		notice := fmt.Sprintf("@everyone Ukens kamper er lagt ut i %s!", chat.ChannelMention(s.cfg.TippingChannelID))
		if err := s.send(ctx, s.cfg.ChatterChannelID, notice, "matchup_notice"); err != nil {
			return len(lines), err
		}
	}
	s.logger.InfoContext(ctx, "posted matchups", "week", week, "channel_id", channelID, "lines", len(lines))
	return len(lines), nil
}

// PostedLines returns the trimmed content of the bot's own messages in
// channelID within the lookback window.
func (s *MatchupService) PostedLines(ctx context.Context, channelID string) (map[string]struct{}, error) {
	since := s.now().Add(-s.cfg.Lookback)
	history, err := s.chat.History(ctx, channelID, since, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("read channel history: %w", err)
	}
	selfID := s.chat.SelfID()
	out := make(map[string]struct{}, len(history))
	for _, msg := range history {
		if msg.AuthorID != selfID {
			continue
		}
		out[strings.TrimSpace(msg.Content)] = struct{}{}
	}
	return out, nil
}

func (s *MatchupService) sendLines(ctx context.Context, channelID string, lines []string) error {
	for _, line := range lines {
		if err := s.send(ctx, channelID, line, "matchup_line"); err != nil {
			return err
		}
	}
	return nil
}

func (s *MatchupService) send(ctx context.Context, channelID, text, kind string) error {
	if err := s.chat.Send(ctx, channelID, text); err != nil {
		return fmt.Errorf("%w: send %s: %w", ErrResponse, kind, err)
	}
	s.recorder.MessageSent(kind)
	return nil
}
