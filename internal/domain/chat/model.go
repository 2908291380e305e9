package chat

import (
	"context"
	"time"
)

type Reaction struct {
	// Emoji is the display form ("<:ne:752546616207999056>" or a unicode
	// character) used for pick lookup.
	Emoji string
	// APIName is the form the platform expects when listing reacting users.
	APIName string
}

type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	CreatedAt time.Time
	Reactions []Reaction
}

// Client is the slice of the chat platform the bot depends on.
type Client interface {
	SelfID() string
	History(ctx context.Context, channelID string, after time.Time, limit int) ([]Message, error)
	ReactionUsers(ctx context.Context, channelID, messageID string, reaction Reaction) ([]string, error)
	Send(ctx context.Context, channelID, text string) error
}

// ChannelMention renders a channel link.
func ChannelMention(channelID string) string {
	return "<#" + channelID + ">"
}

func UserMention(userID string) string {
	return "<@" + userID + ">"
}
