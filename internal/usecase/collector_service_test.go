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
	"github.com/vestsk/tippebot/internal/domain/tipping"
	chatmock "github.com/vestsk/tippebot/internal/mocks/domain/chat"
)

var testParticipants = []tipping.Participant{
	{UserID: "u1", DisplayName: "Arild", Index: 1},
	{UserID: "u2", DisplayName: "Knut", Index: 3},
}

func newTestCollector(client chat.Client, now time.Time) *CollectorService {
	s := NewCollectorService(client, testRegistry, CollectorConfig{}, testLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestCollectorService_CollectSession_PickFromTeamReaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 9, 11, 20, 0, 0, 0, time.UTC)
	patriots, _ := testRegistry.GlyphOf("New England Patriots")
	reaction := chat.Reaction{Emoji: patriots, APIName: "ne:752546616207999056"}

	client := chatmock.NewClient(t)
	client.On("SelfID").Return(testBotID)
	client.
		On("History", mock.Anything, "vestsk", now.Add(-14*24*time.Hour), 200).
		Return([]chat.Message{{
			ID:        "m1",
			AuthorID:  testBotID,
			Content:   "Bills @ Patriots",
			CreatedAt: now.Add(-time.Hour),
			Reactions: []chat.Reaction{reaction},
		}}, nil).
		Once()
	client.
		On("ReactionUsers", mock.Anything, "vestsk", "m1", reaction).
		Return([]string{"u1", testBotID, "stranger"}, nil).
		Once()

	rows, err := newTestCollector(client, now).CollectSession(ctx, "vestsk", testParticipants)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bills@Patriots", rows[0].Code)
	assert.Equal(t, map[string]string{"u1": "Patriots"}, rows[0].Picks)
}

func TestCollectorService_CollectSession_DrawAndUnknownEmoji(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 9, 11, 20, 0, 0, 0, time.UTC)
	draw := chat.Reaction{Emoji: testRegistry.DrawGlyph()}
	thumbs := chat.Reaction{Emoji: "👍"}

	client := chatmock.NewClient(t)
	client.On("SelfID").Return(testBotID)
	client.On("History", mock.Anything, "vestsk", mock.Anything, 200).Return([]chat.Message{{
		ID:        "m1",
		AuthorID:  testBotID,
		Content:   testRegistry.FormatMatchLine("Buffalo Bills", "New England Patriots"),
		CreatedAt: now.Add(-time.Hour),
		Reactions: []chat.Reaction{draw, thumbs},
	}}, nil)
	client.On("ReactionUsers", mock.Anything, "vestsk", "m1", draw).Return([]string{"u1"}, nil)
	client.On("ReactionUsers", mock.Anything, "vestsk", "m1", thumbs).Return([]string{"u2"}, nil)

	rows, err := newTestCollector(client, now).CollectSession(ctx, "vestsk", testParticipants)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bills@Patriots", rows[0].Code)
	assert.Equal(t, "Draw", rows[0].Picks["u1"])
	assert.Equal(t, "👍", rows[0].Picks["u2"])
}

func TestCollectorService_CollectSession_NoMessagesIsExportError(t *testing.T) {
	t.Parallel()

	client := chatmock.NewClient(t)
	client.On("SelfID").Return(testBotID)
	client.On("History", mock.Anything, "vestsk", mock.Anything, 200).Return([]chat.Message{{
		ID:        "m1",
		AuthorID:  testBotID,
		Content:   "@everyone Ukens kamper er lagt ut i <#1>!",
		CreatedAt: time.Now(),
	}}, nil)

	_, err := newTestCollector(client, time.Now()).CollectSession(context.Background(), "vestsk", testParticipants)
	if !errors.Is(err, ErrExport) {
		t.Fatalf("expected ErrExport, got %v", err)
	}
}

func TestCollectorService_CollectSession_ReactionLookupFails(t *testing.T) {
	t.Parallel()

	now := time.Now()
	reaction := chat.Reaction{Emoji: "👍"}
	client := chatmock.NewClient(t)
	client.On("SelfID").Return(testBotID).Maybe()
	client.On("History", mock.Anything, "vestsk", mock.Anything, 200).Return([]chat.Message{{
		ID: "m1", AuthorID: testBotID, Content: "Bills @ Patriots", CreatedAt: now, Reactions: []chat.Reaction{reaction},
	}}, nil)
	client.On("ReactionUsers", mock.Anything, "vestsk", "m1", reaction).Return(nil, errors.New("rate limited"))

	_, err := newTestCollector(client, now).CollectSession(context.Background(), "vestsk", testParticipants)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestLatestSession_StopsAtGap(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 11, 20, 0, 0, 0, time.UTC)
	msgs := []chat.Message{
		{ID: "old", CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "newest", CreatedAt: now},
		{ID: "mid", CreatedAt: now.Add(-30 * time.Minute)},
	}

	got := LatestSession(msgs, 2*time.Hour)
	require.Len(t, got, 2)
	assert.Equal(t, "mid", got[0].ID)
	assert.Equal(t, "newest", got[1].ID)

	assert.Empty(t, LatestSession(nil, 2*time.Hour))
}

func TestFilterMatchupMessages(t *testing.T) {
	t.Parallel()

	msgs := []chat.Message{
		{ID: "keep", AuthorID: testBotID, Content: "Bills @ Patriots"},
		{ID: "result", AuthorID: testBotID, Content: "Bills - Patriots: 17-24"},
		{ID: "human", AuthorID: "u1", Content: "Bills @ Patriots"},
		{ID: "mention", AuthorID: testBotID, Content: "@everyone Bills @ Patriots"},
		{ID: "prompt", AuthorID: testBotID, Content: AutoPostPrompt},
	}

	got := FilterMatchupMessages(msgs, testBotID)
	ids := make([]string, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"keep", "result"}, ids)
}
