package discord

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/platform/logging"
)

const (
	pageSize     = 100
	discordEpoch = int64(1420070400000)
)

// Session adapts a discordgo gateway session to chat.Client.
type Session struct {
	dg     *discordgo.Session
	logger *logging.Logger

	mu     sync.RWMutex
	selfID string
}

func NewSession(token string, logger *logging.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.Default()
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("discord token is empty")
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	s := &Session{dg: dg, logger: logger}
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		if r.User == nil {
			return
		}
		s.mu.Lock()
		s.selfID = r.User.ID
		s.mu.Unlock()
		s.logger.Info("discord session ready", "user", r.User.Username, "user_id", r.User.ID, "guilds", len(r.Guilds))
	})
	return s, nil
}

func (s *Session) Open() error {
	if err := s.dg.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	return s.dg.Close()
}

func (s *Session) SelfID() string {
	s.mu.RLock()
	id := s.selfID
	s.mu.RUnlock()
	if id != "" {
		return id
	}
	if s.dg.State != nil && s.dg.State.User != nil {
		return s.dg.State.User.ID
	}
	return ""
}

// Listen forwards messages from other users to handle until ctx is done.
func (s *Session) Listen(ctx context.Context, handle func(ctx context.Context, msg chat.Message)) {
	remove := s.dg.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.Author == nil || m.Author.Bot {
			return
		}
		if ctx.Err() != nil {
			return
		}
		handle(ctx, toMessage(m.Message))
	})
	go func() {
		<-ctx.Done()
		remove()
	}()
}

// History returns up to limit messages posted after the given time, newest
// first.
func (s *Session) History(ctx context.Context, channelID string, after time.Time, limit int) ([]chat.Message, error) {
	cursor := snowflakeAt(after)
	out := make([]chat.Message, 0, limit)
	for len(out) < limit {
		batch, err := s.dg.ChannelMessages(channelID, min(pageSize, limit-len(out)), "", cursor, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("read history of %s: %w", channelID, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, m := range batch {
			out = append(out, toMessage(m))
			if newerID(m.ID, cursor) {
				cursor = m.ID
			}
		}
		if len(batch) < pageSize {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Session) ReactionUsers(ctx context.Context, channelID, messageID string, reaction chat.Reaction) ([]string, error) {
	emoji := reaction.APIName
	if emoji == "" {
		emoji = reaction.Emoji
	}

	var ids []string
	after := ""
	for {
		users, err := s.dg.MessageReactions(channelID, messageID, emoji, pageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("read %s reactions on %s: %w", emoji, messageID, err)
		}
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		if len(users) < pageSize {
			return ids, nil
		}
		after = users[len(users)-1].ID
	}
}

func (s *Session) Send(ctx context.Context, channelID, text string) error {
	if _, err := s.dg.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to %s: %w", channelID, err)
	}
	return nil
}

func toMessage(m *discordgo.Message) chat.Message {
	out := chat.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
	}
	for _, r := range m.Reactions {
		if r == nil || r.Emoji == nil {
			continue
		}
		out.Reactions = append(out.Reactions, chat.Reaction{
			Emoji:   r.Emoji.MessageFormat(),
			APIName: r.Emoji.APIName(),
		})
	}
	return out
}

// snowflakeAt returns the smallest message ID created at t.
func snowflakeAt(t time.Time) string {
	ms := t.UnixMilli() - discordEpoch
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatInt(ms<<22, 10)
}

func newerID(candidate, current string) bool {
	a, errA := strconv.ParseUint(candidate, 10, 64)
	b, errB := strconv.ParseUint(current, 10, 64)
	if errA != nil || errB != nil {
		return false
	}
	return a > b
}
