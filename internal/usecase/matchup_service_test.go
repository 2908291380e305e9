package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/domain/matchup"
	chatmock "github.com/vestsk/tippebot/internal/mocks/domain/chat"
	matchupmock "github.com/vestsk/tippebot/internal/mocks/domain/matchup"
)

func TestMatchupService_List_SortsAndFormats(t *testing.T) {
	t.Parallel()

	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 3).Return([]matchup.Matchup{
		scheduledMatchup("New York Jets", "Miami Dolphins", kickoff.Add(time.Hour)),
		scheduledMatchup("Oslo Vikings", "New England Patriots", kickoff),
	}, nil)

	service := NewMatchupService(schedule, nil, testRegistry, MatchupConfig{}, nil, testLogger())
	lines, err := service.List(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Oslo Vikings @ New England Patriots <:ne:752546616207999056>",
		testRegistry.FormatMatchLine("New York Jets", "Miami Dolphins"),
	}, lines)
}

func TestMatchupService_Post_SendsLinesAndNotice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 0).Return([]matchup.Matchup{
		scheduledMatchup("Buffalo Bills", "New England Patriots", kickoff),
	}, nil)

	client := chatmock.NewClient(t)
	client.On("Send", mock.Anything, "cmd-channel", testRegistry.FormatMatchLine("Buffalo Bills", "New England Patriots")).Return(nil).Once()
	client.On("Send", mock.Anything, "chatter", "@everyone Ukens kamper er lagt ut i <#vestsk>!").Return(nil).Once()

	recorder := newCountingRecorder()
	service := NewMatchupService(schedule, client, testRegistry, MatchupConfig{
		TippingChannelID: "vestsk",
		ChatterChannelID: "chatter",
	}, recorder, testLogger())

	n, err := service.Post(ctx, "cmd-channel", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, recorder.messages["matchup_line"])
	assert.Equal(t, 1, recorder.messages["matchup_notice"])
}

func TestMatchupService_Post_SendFailureIsResponseError(t *testing.T) {
	t.Parallel()

	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 0).Return([]matchup.Matchup{
		scheduledMatchup("Buffalo Bills", "New England Patriots", kickoff),
	}, nil)
	client := chatmock.NewClient(t)
	client.On("Send", mock.Anything, "vestsk", mock.Anything).Return(errors.New("missing access"))

	service := NewMatchupService(schedule, client, testRegistry, MatchupConfig{TippingChannelID: "vestsk"}, nil, testLogger())
	_, err := service.Post(context.Background(), "vestsk", 0)
	if !errors.Is(err, ErrResponse) {
		t.Fatalf("expected ErrResponse, got %v", err)
	}
}

func TestMatchupService_PostedLines_OnlyOwnMessages(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 11, 20, 0, 0, 0, time.UTC)
	client := chatmock.NewClient(t)
	client.On("SelfID").Return(testBotID)
	client.On("History", mock.Anything, "vestsk", now.Add(-14*24*time.Hour), 200).Return([]chat.Message{
		{AuthorID: testBotID, Content: " Bills @ Patriots "},
		{AuthorID: "u1", Content: "Jets @ Dolphins"},
	}, nil)

	service := NewMatchupService(nil, client, testRegistry, MatchupConfig{}, nil, testLogger())
	service.now = func() time.Time { return now }

	posted, err := service.PostedLines(context.Background(), "vestsk")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"Bills @ Patriots": {}}, posted)
}
