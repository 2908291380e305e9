package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/domain/ppr"
	"github.com/vestsk/tippebot/internal/platform/id"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"github.com/vestsk/tippebot/internal/usecase"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultPrefix = "!"

	DeniedMessage  = "Kanskje hvis du spør veldig pent så kan du få lov te å bruke botten."
	UnknownFailure = "Noe gikk galt, admin er varslet."
)

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDenied   = "denied"
	OutcomeCooldown = "cooldown"
)

type MatchupPoster interface {
	Post(ctx context.Context, channelID string, week int) (int, error)
}

type Exporter interface {
	Export(ctx context.Context, channelID string, week int) (usecase.ExportResult, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, week int) (usecase.ReconcileResult, error)
}

type PPRRunner interface {
	Run(ctx context.Context, reply func(ctx context.Context, text string) error) ([]ppr.Entry, error)
}

// Metrics counts handled commands by outcome.
type Metrics interface {
	CommandHandled(command, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) CommandHandled(string, string) {}

// Services are the use cases behind the privileged commands. A nil service
// leaves its command unregistered.
type Services struct {
	Matchups  MatchupPoster
	Export    Exporter
	Reconcile Reconciler
	PPR       PPRRunner
}

type Config struct {
	Prefix         string
	AdminIDs       []string
	AdminChannelID string
	Cooldown       time.Duration
}

type handlerFunc func(ctx context.Context, req Request) error

type command struct {
	run        handlerFunc
	privileged bool
}

// Dispatcher parses prefixed chat messages and runs the matching command.
type Dispatcher struct {
	send     SendFunc
	services Services
	cfg      Config
	admins   map[string]struct{}
	cooldown *Cooldown
	ids      id.Generator
	metrics  Metrics
	logger   *logging.Logger
	now      func() time.Time
	commands map[string]command
}

func NewDispatcher(
	send SendFunc,
	services Services,
	cfg Config,
	ids id.Generator,
	metrics Metrics,
	logger *logging.Logger,
) *Dispatcher {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = logging.Default()
	}

	admins := make(map[string]struct{}, len(cfg.AdminIDs))
	for _, adminID := range cfg.AdminIDs {
		if adminID = strings.TrimSpace(adminID); adminID != "" {
			admins[adminID] = struct{}{}
		}
	}

	d := &Dispatcher{
		send:     send,
		services: services,
		cfg:      cfg,
		admins:   admins,
		cooldown: NewCooldown(cfg.Cooldown),
		ids:      ids,
		metrics:  metrics,
		logger:   logger.Named("commands"),
		now:      time.Now,
	}
	d.commands = d.register()
	return d
}

// Handle runs the command in msg, if any. Unknown commands and plain
// messages are ignored.
func (d *Dispatcher) Handle(ctx context.Context, msg chat.Message) {
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, d.cfg.Prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(content, d.cfg.Prefix))
	if len(fields) == 0 {
		return
	}
	name := fields[0]
	cmd, ok := d.commands[name]
	if !ok {
		return
	}

	req := Request{
		Command:      name,
		ChannelID:    msg.ChannelID,
		CallerID:     msg.AuthorID,
		Args:         fields[1:],
		InvocationID: d.ids.NewID(),
		Send:         d.send,
	}
	logger := d.logger.With("command", name, "invocation_id", req.InvocationID, "user_id", msg.AuthorID)

	ctx, span := startSpan(ctx, "commands.Dispatcher."+name,
		attribute.String("invocation_id", req.InvocationID),
		attribute.String("channel_id", msg.ChannelID),
	)
	defer span.End()

	if allowed, retryAfter := d.cooldown.Allow(msg.AuthorID, d.now()); !allowed {
		text := fmt.Sprintf("%s e ein liten pissemaur. STRAFFESHOT! (Prøv igjen om %.1f sekunder.)",
			chat.UserMention(msg.AuthorID), retryAfter.Seconds())
		d.replyQuietly(ctx, logger, req, text)
		d.metrics.CommandHandled(name, OutcomeCooldown)
		return
	}

	if cmd.privileged && !d.isAdmin(msg.AuthorID) {
		logger.InfoContext(ctx, "command denied")
		d.replyQuietly(ctx, logger, req, DeniedMessage)
		d.metrics.CommandHandled(name, OutcomeDenied)
		return
	}

	started := d.now()
	if err := cmd.run(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.fail(ctx, logger, req, err)
		d.metrics.CommandHandled(name, OutcomeError)
		return
	}
	d.metrics.CommandHandled(name, OutcomeOK)
	logger.InfoContext(ctx, "command handled", "duration", d.now().Sub(started))
}

func (d *Dispatcher) isAdmin(userID string) bool {
	_, ok := d.admins[userID]
	return ok
}

// fail logs err, tells the caller what went wrong and reports the failure to
// the admin channel.
func (d *Dispatcher) fail(ctx context.Context, logger *logging.Logger, req Request, err error) {
	summary, known := usecase.Category(err)
	logger.ErrorContext(ctx, "command failed", "known", known, "error", err)

	if !known {
		summary = UnknownFailure
	}
	if !crerr.Is(err, usecase.ErrResponse) {
		d.replyQuietly(ctx, logger, req, summary)
	}

	if d.cfg.AdminChannelID == "" {
		return
	}
	prefix := "❌ Uventet feil"
	if known {
		prefix = "⚠️ BotError"
	}
	report := fmt.Sprintf("%s i `%s`:\n```%v```", prefix, req.Command, err)
	if sendErr := d.send(ctx, d.cfg.AdminChannelID, report); sendErr != nil {
		logger.WarnContext(ctx, "admin error report failed", "error", sendErr)
	}
}

func (d *Dispatcher) replyQuietly(ctx context.Context, logger *logging.Logger, req Request, text string) {
	if err := req.Reply(ctx, text); err != nil {
		logger.WarnContext(ctx, "reply failed", "error", err)
	}
}
