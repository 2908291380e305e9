package matchup

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/vestsk/tippebot/internal/domain/team"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
)

// Matchup is one game of a week as reported by the schedule feed.
type Matchup struct {
	Code      string
	HomeTeam  string
	AwayTeam  string
	HomeShort string
	AwayShort string
	KickoffAt time.Time
	HomeScore *int
	AwayScore *int
	Status    string
}

// Outcome returns the winning short code or team.DrawPick. ok is false
// until the feed reports the game finished with both scores.
func (m Matchup) Outcome() (string, bool) {
	if m.Status != StatusFinished || m.HomeScore == nil || m.AwayScore == nil {
		return "", false
	}
	switch {
	case *m.HomeScore > *m.AwayScore:
		return m.HomeShort, true
	case *m.AwayScore > *m.HomeScore:
		return m.AwayShort, true
	default:
		return team.DrawPick, true
	}
}

// OutcomeMap keys decided matchups by match code.
func OutcomeMap(items []Matchup) map[string]string {
	out := make(map[string]string, len(items))
	for _, m := range items {
		if winner, ok := m.Outcome(); ok {
			out[m.Code] = winner
		}
	}
	return out
}

// SortByKickoff orders ascending by kickoff, keeping feed order on ties.
func SortByKickoff(items []Matchup) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].KickoffAt.Before(items[j].KickoffAt)
	})
}

// OnWeekday keeps matchups whose kickoff falls on day in loc.
func OnWeekday(items []Matchup, day time.Weekday, loc *time.Location) []Matchup {
	out := make([]Matchup, 0, len(items))
	for _, m := range items {
		if m.KickoffAt.In(loc).Weekday() == day {
			out = append(out, m)
		}
	}
	return out
}

func NormalizeStatus(state string) string {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "in":
		return StatusLive
	case "post":
		return StatusFinished
	default:
		return StatusScheduled
	}
}

// Schedule is the read side of the sports feed. week 0 means the feed's
// current week.
type Schedule interface {
	FetchWeek(ctx context.Context, week int) ([]Matchup, error)
}
