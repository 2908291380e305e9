package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/domain/matchup"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"github.com/vestsk/tippebot/internal/platform/resilience"
)

const (
	defaultReminderHour     = 18
	defaultWindowOpenHour   = 8
	defaultSundayLead       = 60 * time.Minute
	defaultLoopErrorBackoff = 5 * time.Minute
)

// ReminderState holds the last-sent markers of one scheduler instance. The
// reminder loop owns the reminder fields and the auto-post loop owns the
// week fields. Nothing is persisted; a restart starts from zero.
type ReminderState struct {
	LastWaiverWeek     int
	LastThursdayWeek   int
	LastSundayDate     string
	LastAutoPostedWeek int
	LastProcessedWeek  int
}

type ReminderConfig struct {
	ChatterChannelID string
	TippingChannelID string
	Location         *time.Location
	ReminderHour     int
	WindowOpenHour   int
	SundayLead       time.Duration
	ErrorBackoff     time.Duration
	WaiversEnabled   bool
}

type ReminderService struct {
	schedule matchup.Schedule
	chat     chat.Client
	cfg      ReminderConfig
	state    *ReminderState
	recorder Recorder
	logger   *logging.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewReminderService(
	schedule matchup.Schedule,
	chatClient chat.Client,
	cfg ReminderConfig,
	state *ReminderState,
	recorder Recorder,
	logger *logging.Logger,
) *ReminderService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ReminderHour <= 0 {
		cfg.ReminderHour = defaultReminderHour
	}
	if cfg.WindowOpenHour <= 0 {
		cfg.WindowOpenHour = defaultWindowOpenHour
	}
	if cfg.SundayLead <= 0 {
		cfg.SundayLead = defaultSundayLead
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = defaultLoopErrorBackoff
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
	return &ReminderService{
		schedule: schedule,
		chat:     chatClient,
		cfg:      cfg,
		state:    state,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		sleep:    resilience.Sleep,
	}
}

// Run repeats Step until ctx is cancelled. A failed step is logged and
// retried after the error backoff.
func (s *ReminderService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "reminder loop started", "location", s.cfg.Location.String())
	for {
		err := s.Step(ctx)
		if ctx.Err() != nil {
			s.logger.InfoContext(ctx, "reminder loop stopped")
			return ctx.Err()
		}
		if err == nil {
			continue
		}
		s.recorder.LoopError("reminder")
		s.logger.ErrorContext(ctx, "reminder loop iteration failed", "error", err, "backoff", s.cfg.ErrorBackoff.String())
		if err := s.sleep(ctx, s.cfg.ErrorBackoff); err != nil {
			return err
		}
	}
}

// Step evaluates the current weekday once, sending at most one reminder,
// and returns after sleeping until the next moment worth re-evaluating.
func (s *ReminderService) Step(ctx context.Context) error {
	now := s.now().In(s.cfg.Location)

	switch now.Weekday() {
	case time.Tuesday:
		if s.cfg.WaiversEnabled {
			return s.waiverReminder(ctx, now)
		}
	case time.Thursday:
		if now.Before(s.at(now, s.cfg.ReminderHour)) {
			return s.thursdayReminder(ctx, now)
		}
	case time.Sunday:
		done, err := s.sundayReminder(ctx, now)
		if err != nil || done {
			return err
		}
	}

	next := s.nextWindow(now)
	s.logger.DebugContext(ctx, "reminder loop idle", "until", next.Format(time.RFC3339))
	return s.sleep(ctx, next.Sub(now))
}

func (s *ReminderService) waiverReminder(ctx context.Context, now time.Time) error {
	due := s.at(now, s.cfg.ReminderHour)
	if err := s.sleepUntil(ctx, due); err != nil {
		return err
	}
	week := isoWeekKey(now)
	if s.state.LastWaiverWeek != week {
		if err := s.send(ctx, "@everyone Ikke glem waivers!", "waiver_reminder"); err != nil {
			return err
		}
		s.state.LastWaiverWeek = week
		s.logger.InfoContext(ctx, "waiver reminder sent", "iso_week", week)
	}
	return s.sleepUntil(ctx, due.AddDate(0, 0, 1))
}

func (s *ReminderService) thursdayReminder(ctx context.Context, now time.Time) error {
	due := s.at(now, s.cfg.ReminderHour)
	if err := s.sleepUntil(ctx, due); err != nil {
		return err
	}
	week := isoWeekKey(now)
	if s.state.LastThursdayWeek != week {
		text := fmt.Sprintf("@everyone RAUÅ I GIR, ukå begynne snart så sjekk %s!", chat.ChannelMention(s.cfg.TippingChannelID))
		if err := s.send(ctx, text, "thursday_reminder"); err != nil {
			return err
		}
		s.state.LastThursdayWeek = week
		s.logger.InfoContext(ctx, "thursday reminder sent", "iso_week", week)
	}
	return s.sleepUntil(ctx, due.AddDate(0, 0, 1))
}

// sundayReminder reports done=false when there is nothing left to send
// today, so the caller falls through to the idle sleep.
func (s *ReminderService) sundayReminder(ctx context.Context, now time.Time) (bool, error) {
	items, err := s.schedule.FetchWeek(ctx, 0)
	if err != nil {
		if errors.Is(err, ErrNoMatchupsFound) {
			return false, nil
		}
		return false, fmt.Errorf("fetch sunday schedule: %w", err)
	}
	sunday := matchup.OnWeekday(items, time.Sunday, s.cfg.Location)
	if len(sunday) == 0 {
		return false, nil
	}
	matchup.SortByKickoff(sunday)
	first := sunday[0].KickoffAt.In(s.cfg.Location)
	due := first.Add(-s.cfg.SundayLead)
	if !now.Before(due) {
		return false, nil
	}

	if err := s.sleepUntil(ctx, due); err != nil {
		return true, err
	}
	date := first.Format(time.DateOnly)
	if s.state.LastSundayDate != date {
		text := "@everyone Early window snart, husk " + chat.ChannelMention(s.cfg.TippingChannelID)
		if err := s.send(ctx, text, "sunday_reminder"); err != nil {
			return true, err
		}
		s.state.LastSundayDate = date
		s.logger.InfoContext(ctx, "sunday reminder sent", "date", date, "first_kickoff", first.Format(time.RFC3339))
	}
	return true, s.sleepUntil(ctx, due.AddDate(0, 0, 1))
}

// nextWindow is the earliest upcoming opening of a reminder day. Waking at
// the opening hour rather than the send hour leaves the branch time to wait
// for its own deadline.
func (s *ReminderService) nextWindow(now time.Time) time.Time {
	days := []time.Weekday{time.Thursday, time.Sunday}
	if s.cfg.WaiversEnabled {
		days = append(days, time.Tuesday)
	}
	var next time.Time
	for _, day := range days {
		candidate := nextWeekdayAt(now, day, s.cfg.WindowOpenHour)
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}

func (s *ReminderService) at(now time.Time, hour int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, s.cfg.Location)
}

func (s *ReminderService) sleepUntil(ctx context.Context, t time.Time) error {
	d := t.Sub(s.now())
	if d <= 0 {
		return ctx.Err()
	}
	return s.sleep(ctx, d)
}

func (s *ReminderService) send(ctx context.Context, text, kind string) error {
	if err := s.chat.Send(ctx, s.cfg.ChatterChannelID, text); err != nil {
		return fmt.Errorf("%w: send %s: %w", ErrResponse, kind, err)
	}
	s.recorder.MessageSent(kind)
	return nil
}

// nextWeekdayAt returns the first day-at-hour strictly after now.
func nextWeekdayAt(now time.Time, day time.Weekday, hour int) time.Time {
	offset := (int(day) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day()+offset, hour, 0, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// isoWeekKey folds the ISO year into the week number so markers never
// collide across a season that spans New Year.
func isoWeekKey(t time.Time) int {
	year, week := t.ISOWeek()
	return year*100 + week
}
