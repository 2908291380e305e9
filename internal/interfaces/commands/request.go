package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vestsk/tippebot/internal/usecase"
)

const maxWeek = 25

// SendFunc posts text to a channel.
type SendFunc func(ctx context.Context, channelID, text string) error

// Request is what a command handler sees of the triggering message.
type Request struct {
	Command      string
	ChannelID    string
	CallerID     string
	Args         []string
	InvocationID string
	Send         SendFunc
}

// Reply answers in the channel the command came from.
func (r Request) Reply(ctx context.Context, text string) error {
	if err := r.Send(ctx, r.ChannelID, text); err != nil {
		return fmt.Errorf("%w: reply to %s: %w", usecase.ErrResponse, r.Command, err)
	}
	return nil
}

// Week returns the optional week argument, or 0 for the current week.
func (r Request) Week() (int, error) {
	if len(r.Args) == 0 {
		return 0, nil
	}
	week, err := strconv.Atoi(r.Args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: week %q is not a number", usecase.ErrInvalidInput, r.Args[0])
	}
	if week < 1 || week > maxWeek {
		return 0, fmt.Errorf("%w: week must be between 1 and %d, got %d", usecase.ErrInvalidInput, maxWeek, week)
	}
	return week, nil
}
