package espn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/vestsk/tippebot/internal/domain/matchup"
	"github.com/vestsk/tippebot/internal/domain/team"
	"github.com/vestsk/tippebot/internal/platform/cache"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"github.com/vestsk/tippebot/internal/platform/resilience"
	"github.com/vestsk/tippebot/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultScoreboardURL = "https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard"
	DefaultFantasyURL    = "https://lm-api-reads.fantasy.espn.com/apis/v3/games/ffl"

	defaultTimeout    = 10 * time.Second
	defaultRetryDelay = 5 * time.Second
	defaultWeekTTL    = 30 * time.Second
	maxBodyBytes      = 4 << 20
	regularSeasonType = "2"
)

var errTransient = crerr.New("espn transient failure")

type ClientConfig struct {
	HTTPClient    *http.Client
	ScoreboardURL string
	FantasyURL    string
	LeagueID      int
	Year          int
	S2            string
	SWID          string
	Timeout       time.Duration
	RetryDelay    time.Duration
	// WeekTTL is how long a fetched scoreboard week is reused.
	WeekTTL  time.Duration
	Registry *team.Registry
	Logger   *logging.Logger

	CircuitBreaker  resilience.CircuitBreakerConfig
	OnBreakerChange resilience.StateChangeFunc
	// OnFailure is called once per request that failed after its retry.
	OnFailure func(upstream string)
	// Now is used to pick the season. Defaults to time.Now.
	Now func() time.Time
}

// Client reads the public NFL scoreboard and the private fantasy league
// endpoint. It implements matchup.Schedule and usecase.LeagueProvider.
type Client struct {
	httpClient    *http.Client
	scoreboardURL string
	fantasyURL    string
	leagueID      int
	year          int
	s2            string
	swid          string
	registry      *team.Registry
	logger        *logging.Logger
	breaker       *resilience.CircuitBreaker
	onFailure     func(upstream string)
	flight        singleflight.Group
	weeks         *cache.Store[[]matchup.Matchup]
	retry         resilience.RetryPolicy
	now           func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = team.MustDefaultRegistry()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = cfg.Timeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.WeekTTL <= 0 {
		cfg.WeekTTL = defaultWeekTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	onFailure := cfg.OnFailure
	if onFailure == nil {
		onFailure = func(string) {}
	}

	c := &Client{
		httpClient:    httpClient,
		scoreboardURL: firstNonEmpty(strings.TrimRight(strings.TrimSpace(cfg.ScoreboardURL), "/"), DefaultScoreboardURL),
		fantasyURL:    firstNonEmpty(strings.TrimRight(strings.TrimSpace(cfg.FantasyURL), "/"), DefaultFantasyURL),
		leagueID:      cfg.LeagueID,
		year:          cfg.Year,
		s2:            strings.TrimSpace(cfg.S2),
		swid:          strings.TrimSpace(cfg.SWID),
		registry:      registry,
		logger:        logger,
		breaker:       resilience.NewBreaker("espn", cfg.CircuitBreaker, cfg.OnBreakerChange),
		onFailure:     onFailure,
		weeks:         cache.NewStore[[]matchup.Matchup](cfg.WeekTTL),
		now:           now,
	}
	c.retry = resilience.RetryPolicy{
		Attempts:  2,
		Delay:     cfg.RetryDelay,
		Retryable: isTransient,
		OnRetry: func(attempt int, err error) {
			c.logger.Warn("espn request failed, retrying", "attempt", attempt, "delay", cfg.RetryDelay.String(), "error", err)
		},
	}
	return c
}

// SeasonFor returns the NFL season a date belongs to. January and February
// games belong to the previous year's season.
func SeasonFor(t time.Time) int {
	if t.Month() >= time.March {
		return t.Year()
	}
	return t.Year() - 1
}

// FetchWeek returns the week's matchups sorted by kickoff. week 0 reads the
// scoreboard's current week.
func (c *Client) FetchWeek(ctx context.Context, week int) ([]matchup.Matchup, error) {
	if week < 0 {
		return nil, fmt.Errorf("%w: week must be >= 0, got %d", usecase.ErrInvalidInput, week)
	}

	items, err := c.weeks.GetOrLoad(ctx, "week:"+strconv.Itoa(week), func(ctx context.Context) ([]matchup.Matchup, error) {
		return c.loadWeek(ctx, week)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

func (c *Client) loadWeek(ctx context.Context, week int) ([]matchup.Matchup, error) {
	query := url.Values{}
	if week > 0 {
		query.Set("dates", strconv.Itoa(SeasonFor(c.now())))
		query.Set("seasontype", regularSeasonType)
		query.Set("week", strconv.Itoa(week))
	}

	var payload scoreboardEnvelope
	if err := c.doJSON(ctx, withQuery(c.scoreboardURL, query), nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch scoreboard week=%d: %w", week, err)
	}
	if len(payload.Events) == 0 {
		return nil, fmt.Errorf("%w: week %d", usecase.ErrNoMatchupsFound, week)
	}

	out := make([]matchup.Matchup, 0, len(payload.Events))
	for _, ev := range payload.Events {
		m, ok := c.toMatchup(ev)
		if !ok {
			c.logger.WarnContext(ctx, "skip scoreboard event without home and away competitors", "event_id", ev.ID)
			continue
		}
		out = append(out, m)
	}
	matchup.SortByKickoff(out)

	c.logger.DebugContext(ctx, "fetched scoreboard", "week", week, "matchups", len(out))
	return out, nil
}

// CurrentWeek reads the fantasy league's current matchup period.
func (c *Client) CurrentWeek(ctx context.Context) (int, error) {
	if c.leagueID <= 0 {
		return 0, fmt.Errorf("%w: espn league id is not configured", usecase.ErrInvalidInput)
	}
	year := c.year
	if year <= 0 {
		year = SeasonFor(c.now())
	}

	endpoint := fmt.Sprintf("%s/seasons/%d/segments/0/leagues/%d", c.fantasyURL, year, c.leagueID)
	var cookies []*http.Cookie
	if c.s2 != "" {
		cookies = append(cookies, &http.Cookie{Name: "espn_s2", Value: c.s2})
	}
	if c.swid != "" {
		cookies = append(cookies, &http.Cookie{Name: "SWID", Value: c.swid})
	}

	var payload leagueEnvelope
	if err := c.doJSON(ctx, endpoint, cookies, &payload); err != nil {
		return 0, fmt.Errorf("fetch fantasy league %d: %w", c.leagueID, err)
	}

	week := payload.Status.CurrentMatchupPeriod
	if week <= 0 {
		week = payload.ScoringPeriodID
	}
	if week <= 0 {
		return 0, fmt.Errorf("%w: fantasy league %d reported no current week", usecase.ErrUpstreamFetch, c.leagueID)
	}
	return week, nil
}

func (c *Client) toMatchup(ev scoreboardEvent) (matchup.Matchup, bool) {
	if len(ev.Competitions) == 0 {
		return matchup.Matchup{}, false
	}
	var home, away *competitor
	for i := range ev.Competitions[0].Competitors {
		comp := &ev.Competitions[0].Competitors[i]
		switch comp.HomeAway {
		case "home":
			home = comp
		case "away":
			away = comp
		}
	}
	if home == nil || away == nil {
		return matchup.Matchup{}, false
	}

	status := matchup.NormalizeStatus(ev.Status.Type.State)
	if ev.Status.Type.Completed {
		status = matchup.StatusFinished
	}
	m := matchup.Matchup{
		Code:      c.registry.MatchCode(away.Team.DisplayName, home.Team.DisplayName),
		HomeTeam:  home.Team.DisplayName,
		AwayTeam:  away.Team.DisplayName,
		HomeShort: c.registry.ShortOf(home.Team.DisplayName),
		AwayShort: c.registry.ShortOf(away.Team.DisplayName),
		KickoffAt: parseDate(ev.Date),
		Status:    status,
	}
	// Pre-game and live scoreboards carry "0" or running scores.
	if status == matchup.StatusFinished {
		m.HomeScore = parseScore(home.Score)
		m.AwayScore = parseScore(away.Score)
	}
	return m, true
}

func (c *Client) doJSON(ctx context.Context, endpoint string, cookies []*http.Cookie, target any) error {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "espn circuit breaker rejected request", "state", c.breaker.State())
		c.onFailure("espn")
		return fmt.Errorf("%w: espn is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	out, err, _ := c.flight.Do(endpoint, func() (any, error) {
		var raw []byte
		reqErr := c.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			raw, err = c.executeRequest(ctx, endpoint, cookies)
			return err
		})
		c.breaker.Record(reqErr, isTransient)
		return raw, reqErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WarnContext(ctx, "espn request failed", "url", endpoint, "error", err)
		c.onFailure("espn")
		return fmt.Errorf("%w: %w", usecase.ErrUpstreamFetch, err)
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("%w: unexpected response payload type %T", usecase.ErrUpstreamFetch, out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode espn payload: %w", usecase.ErrUpstreamFetch, err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, endpoint string, cookies []*http.Cookie) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", errTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d body=%s", errTransient, resp.StatusCode, abbreviateBody(raw))
	}
	return raw, nil
}

func isTransient(err error) bool {
	return crerr.Is(err, errTransient)
}

func withQuery(base string, query url.Values) string {
	if encoded := query.Encode(); encoded != "" {
		return base + "?" + encoded
	}
	return base
}

// parseDate accepts RFC3339 and the feed's minute-precision form
// "2025-09-21T18:00Z".
func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseScore(raw string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &v
}

func abbreviateBody(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
