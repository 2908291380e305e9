package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vestsk/tippebot/internal/domain/chat"
	"github.com/vestsk/tippebot/internal/domain/matchup"
	"github.com/vestsk/tippebot/internal/infrastructure/repository/memory"
	chatmock "github.com/vestsk/tippebot/internal/mocks/domain/chat"
	matchupmock "github.com/vestsk/tippebot/internal/mocks/domain/matchup"
	usecasemock "github.com/vestsk/tippebot/internal/mocks/usecase"
)

type sentMessage struct {
	channel string
	text    string
}

type sendLog struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (l *sendLog) capture(client *chatmock.Client) {
	client.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.sent = append(l.sent, sentMessage{channel: args.String(1), text: args.String(2)})
		}).
		Return(nil)
}

func (l *sendLog) texts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.sent))
	for _, m := range l.sent {
		out = append(out, m.text)
	}
	return out
}

// postedClient reports the week one lines as already posted by the bot.
func postedClient(t *testing.T) *chatmock.Client {
	t.Helper()
	client := chatmock.NewClient(t)
	client.On("SelfID").Return(testBotID)
	client.On("History", mock.Anything, "vestsk", mock.Anything, 200).Return([]chat.Message{
		{ID: "m2", AuthorID: testBotID, Content: testRegistry.FormatMatchLine("New York Jets", "Miami Dolphins")},
		{ID: "m1", AuthorID: testBotID, Content: testRegistry.FormatMatchLine("Buffalo Bills", "New England Patriots")},
	}, nil)
	return client
}

type autoPostFixture struct {
	service *AutoPostService
	state   *ReminderState
	grid    *memory.Grid
}

func newAutoPostFixture(t *testing.T, client *chatmock.Client, schedule matchup.Schedule, week int, state *ReminderState) autoPostFixture {
	t.Helper()
	now := time.Date(2025, 9, 11, 20, 0, 0, 0, time.UTC)

	league := usecasemock.NewLeagueProvider(t)
	league.On("CurrentWeek", mock.Anything).Return(week, nil)

	grid := newTippingGrid()
	matchups := NewMatchupService(schedule, client, testRegistry, MatchupConfig{
		TippingChannelID: "vestsk",
		ChatterChannelID: "chatter",
	}, nil, testLogger())
	export := newTestExport(client, gridSource(grid), now)
	reconcile := NewReconcileService(schedule, gridSource(grid), testRegistry, nil, testLogger())

	service := NewAutoPostService(league, matchups, export, reconcile, AutoPostConfig{
		TippingChannelID: "vestsk",
		ChatterChannelID: "chatter",
	}, state, nil, testLogger())
	return autoPostFixture{service: service, state: state, grid: grid}
}

func TestAutoPostService_Step_ProcessesPreviousWeekThenPosts(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 11, 20, 0, 0, 0, time.UTC)
	client := sessionClient(t, now)
	log := &sendLog{}
	log.capture(client)

	ravens := scheduledMatchup("Baltimore Ravens", "Cincinnati Bengals", kickoff.Add(7*24*time.Hour))
	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 1).Return(weekOneResults(), nil).Once()
	schedule.On("FetchWeek", mock.Anything, 2).Return([]matchup.Matchup{ravens}, nil).Once()

	fx := newAutoPostFixture(t, client, schedule, 2, &ReminderState{})
	require.NoError(t, fx.service.Step(context.Background()))

	assert.Equal(t, 1, fx.state.LastProcessedWeek)
	assert.Equal(t, 2, fx.state.LastAutoPostedWeek)
	assert.Equal(t, "Bills@Patriots", fx.grid.Cell(3, 1))
	assert.Equal(t, "Ukespoeng", fx.grid.Cell(5, 1))
	assert.Equal(t, "Sesongpoeng", fx.grid.Cell(6, 1))

	texts := log.texts()
	require.Len(t, texts, 6)
	assert.Equal(t, ExportDoneMessage, texts[0])
	assert.Contains(t, texts[1], "```Poeng for uke 1:")
	assert.Equal(t, "✅ Resultater for uke 1 er oppdatert.", texts[2])
	assert.Equal(t, testRegistry.FormatMatchLine("Baltimore Ravens", "Cincinnati Bengals"), texts[3])
	assert.Equal(t, AutoPostPrompt, texts[4])
	assert.Equal(t, "@everyone Ukens kamper (uke 2) er lagt ut i <#vestsk>!", texts[5])
	assert.Equal(t, "chatter", log.sent[5].channel)
}

func TestAutoPostService_Step_PostsOnlyMissingLines(t *testing.T) {
	t.Parallel()

	client := postedClient(t)
	log := &sendLog{}
	log.capture(client)

	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 2).Return([]matchup.Matchup{
		scheduledMatchup("Buffalo Bills", "New England Patriots", kickoff),
		scheduledMatchup("Baltimore Ravens", "Cincinnati Bengals", kickoff.Add(time.Hour)),
	}, nil)

	fx := newAutoPostFixture(t, client, schedule, 2, &ReminderState{LastProcessedWeek: 1})
	require.NoError(t, fx.service.Step(context.Background()))

	texts := log.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, testRegistry.FormatMatchLine("Baltimore Ravens", "Cincinnati Bengals"), texts[0])
	assert.Equal(t, 2, fx.state.LastAutoPostedWeek)
}

func TestAutoPostService_Step_AllLinesAlreadyPosted(t *testing.T) {
	t.Parallel()

	client := postedClient(t)

	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 2).Return([]matchup.Matchup{
		scheduledMatchup("Buffalo Bills", "New England Patriots", kickoff),
		scheduledMatchup("New York Jets", "Miami Dolphins", kickoff.Add(time.Hour)),
	}, nil)

	fx := newAutoPostFixture(t, client, schedule, 2, &ReminderState{LastProcessedWeek: 1})
	require.NoError(t, fx.service.Step(context.Background()))
	assert.Equal(t, 2, fx.state.LastAutoPostedWeek)
	client.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoPostService_Step_PreviousWeekFailureBlocksPosting(t *testing.T) {
	t.Parallel()

	client := chatmock.NewClient(t)
	client.On("SelfID").Return(testBotID)
	client.On("History", mock.Anything, "vestsk", mock.Anything, 200).Return([]chat.Message{}, nil)

	schedule := matchupmock.NewSchedule(t)
	fx := newAutoPostFixture(t, client, schedule, 5, &ReminderState{LastProcessedWeek: 3})

	err := fx.service.Step(context.Background())
	if !errors.Is(err, ErrExport) {
		t.Fatalf("expected ErrExport, got %v", err)
	}
	assert.Equal(t, 3, fx.state.LastProcessedWeek)
	assert.Zero(t, fx.state.LastAutoPostedWeek)
	schedule.AssertNotCalled(t, "FetchWeek", mock.Anything, 5)
}

func TestAutoPostService_Step_NoMatchupsYet(t *testing.T) {
	t.Parallel()

	schedule := matchupmock.NewSchedule(t)
	schedule.On("FetchWeek", mock.Anything, 1).Return(nil, ErrNoMatchupsFound)

	fx := newAutoPostFixture(t, chatmock.NewClient(t), schedule, 1, &ReminderState{})
	require.NoError(t, fx.service.Step(context.Background()))
	assert.Zero(t, fx.state.LastAutoPostedWeek)
}

func TestAutoPostService_Run_SleepsBetweenPolls(t *testing.T) {
	t.Parallel()

	league := usecasemock.NewLeagueProvider(t)
	league.On("CurrentWeek", mock.Anything).Return(0, ErrUpstreamFetch)

	ctx, cancel := context.WithCancel(context.Background())
	recorder := newCountingRecorder()
	service := NewAutoPostService(league, nil, nil, nil, AutoPostConfig{}, nil, recorder, testLogger())
	polls := 0
	service.sleep = func(ctx context.Context, d time.Duration) error {
		assert.Equal(t, time.Hour, d)
		polls++
		if polls == 2 {
			cancel()
		}
		return ctx.Err()
	}

	err := service.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	assert.Equal(t, 2, recorder.loopErrors["autopost"])
}
