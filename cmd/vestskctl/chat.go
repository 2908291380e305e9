package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vestsk/tippebot/internal/domain/chat"
)

var errNoChat = errors.New("chat history needs DISCORD_TOKEN")

// printChat prints what the bot would send. Reads go to the Discord session
// when one is configured.
type printChat struct {
	reader chat.Client
	w      io.Writer
	mu     sync.Mutex
}

func newPrintChat(reader chat.Client, w io.Writer) *printChat {
	return &printChat{reader: reader, w: w}
}

func (c *printChat) SelfID() string {
	if c.reader == nil {
		return ""
	}
	return c.reader.SelfID()
}

func (c *printChat) History(ctx context.Context, channelID string, after time.Time, limit int) ([]chat.Message, error) {
	if c.reader == nil {
		return nil, errNoChat
	}
	return c.reader.History(ctx, channelID, after, limit)
}

func (c *printChat) ReactionUsers(ctx context.Context, channelID, messageID string, reaction chat.Reaction) ([]string, error) {
	if c.reader == nil {
		return nil, errNoChat
	}
	return c.reader.ReactionUsers(ctx, channelID, messageID, reaction)
}

func (c *printChat) Send(_ context.Context, channelID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%s] %s\n", channelID, text)
	return err
}
