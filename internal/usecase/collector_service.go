package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/domain/team"
	"github.com/vestsk/tippebot/internal/domain/tipping"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultCollectLookback = 14 * 24 * time.Hour
	defaultHistoryLimit    = 200
	defaultSessionGap      = 2 * time.Hour
	defaultReactionWorkers = 4
)

type CollectorConfig struct {
	Lookback     time.Duration
	HistoryLimit int
	SessionGap   time.Duration
	Workers      int
}

// CollectedRow is one posted matchup with the picks found on it, keyed by
// participant user ID.
type CollectedRow struct {
	MessageID string
	Code      string
	PostedAt  time.Time
	Picks     map[string]string
}

type CollectorService struct {
	chat     chat.Client
	registry *team.Registry
	cfg      CollectorConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewCollectorService(chatClient chat.Client, registry *team.Registry, cfg CollectorConfig, logger *logging.Logger) *CollectorService {
	if cfg.Lookback <= 0 {
		cfg.Lookback = defaultCollectLookback
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.SessionGap <= 0 {
		cfg.SessionGap = defaultSessionGap
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultReactionWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CollectorService{
		chat:     chatClient,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// CollectSession returns the picks of the most recent posting session in
// channelID, oldest message first.
func (s *CollectorService) CollectSession(ctx context.Context, channelID string, participants []tipping.Participant) (rows []CollectedRow, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CollectorService.CollectSession", attribute.String("channel_id", channelID))
	defer func() { endSpan(span, err) }()

	since := s.now().Add(-s.cfg.Lookback)
	history, err := s.chat.History(ctx, channelID, since, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("read channel history: %w", err)
	}

	session := LatestSession(FilterMatchupMessages(history, s.chat.SelfID()), s.cfg.SessionGap)
	if len(session) == 0 {
		return nil, fmt.Errorf("%w: no valid bot matchup messages since %s", ErrExport, since.Format(time.RFC3339))
	}

	rows = make([]CollectedRow, len(session))
	for i, msg := range session {
		rows[i] = CollectedRow{
			MessageID: msg.ID,
			Code:      s.registry.MatchCodeFromLine(msg.Content),
			PostedAt:  msg.CreatedAt,
			Picks:     make(map[string]string),
		}
	}

	if err := s.resolvePicks(ctx, channelID, session, rows, tipping.IndexByUser(participants)); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "collected reaction session", "channel_id", channelID, "messages", len(rows))
	return rows, nil
}

type reactionJob struct {
	row      int
	message  chat.Message
	reaction chat.Reaction
}

func (s *CollectorService) resolvePicks(
	ctx context.Context,
	channelID string,
	session []chat.Message,
	rows []CollectedRow,
	byUser map[string]tipping.Participant,
) error {
	jobs := make([]reactionJob, 0)
	for i, msg := range session {
		for _, reaction := range msg.Reactions {
			jobs = append(jobs, reactionJob{row: i, message: msg, reaction: reaction})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return fmt.Errorf("create reaction worker pool: %w", err)
	}
	defer pool.Release()

	users := make([][]string, len(jobs))
	errs := make([]error, len(jobs))

	var workers sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			users[i], errs[i] = s.chat.ReactionUsers(ctx, channelID, job.message.ID, job.reaction)
		}); err != nil {
			workers.Done()
			workers.Wait()
			return fmt.Errorf("submit reaction lookup: %w", err)
		}
	}
	workers.Wait()

	selfID := s.chat.SelfID()
	// Apply in job order so a user with several reactions resolves the same
	// way on every run: the last reaction on the message wins.
	for i, job := range jobs {
		if errs[i] != nil {
			return fmt.Errorf("list reaction users on message %s: %w", job.message.ID, errs[i])
		}
		pick := s.registry.PickForEmoji(job.reaction.Emoji)
		for _, userID := range users[i] {
			if userID == selfID {
				continue
			}
			if _, known := byUser[userID]; !known {
				continue
			}
			rows[job.row].Picks[userID] = pick
		}
	}
	return nil
}

// FilterMatchupMessages keeps messages authored by selfID in the strict
// matchup posting format.
func FilterMatchupMessages(messages []chat.Message, selfID string) []chat.Message {
	out := make([]chat.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.AuthorID != selfID {
			continue
		}
		if !team.IsMatchupMessage(msg.Content) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// LatestSession returns the newest run of messages in which consecutive
// messages are at most gap apart, ordered oldest first.
func LatestSession(messages []chat.Message, gap time.Duration) []chat.Message {
	if len(messages) == 0 {
		return nil
	}
	sorted := make([]chat.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	session := []chat.Message{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].CreatedAt.Sub(sorted[i].CreatedAt) > gap {
			break
		}
		session = append(session, sorted[i])
	}

	sort.SliceStable(session, func(i, j int) bool { return session[i].CreatedAt.Before(session[j].CreatedAt) })
	return session
}
