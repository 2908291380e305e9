package ppr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HistorySheet is the worksheet holding appended (team, ppr, rank) snapshots.
const HistorySheet = "PPR-historikk"

// Reading is one owner's current points-per-reception value.
type Reading struct {
	Owner string
	PPR   float64
}

type Previous struct {
	PPR  float64
	Rank int
}

type Entry struct {
	Owner      string
	Team       string
	PPR        float64
	Rank       int
	Diff       float64
	RankChange string
}

func (e Entry) Line() string {
	return fmt.Sprintf("%d. %s: %.3f (%+.3f) %s", e.Rank, e.Team, e.PPR, e.Diff, e.RankChange)
}

// ParseHistory keeps the last valid snapshot row per team. Rows with fewer
// than three cells or unparsable numbers are skipped.
func ParseHistory(rows [][]string) map[string]Previous {
	out := make(map[string]Previous)
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		teamName := strings.TrimSpace(row[0])
		value, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			continue
		}
		rank, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			continue
		}
		out[teamName] = Previous{PPR: value, Rank: rank}
	}
	return out
}

// Rank orders readings by PPR descending and compares them with the previous
// snapshot. teamNames maps owner to fantasy team; unknown owners keep their name.
func Rank(readings []Reading, teamNames map[string]string, previous map[string]Previous) []Entry {
	sorted := make([]Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PPR > sorted[j].PPR })

	out := make([]Entry, 0, len(sorted))
	for i, r := range sorted {
		rank := i + 1
		teamName := r.Owner
		if mapped, ok := teamNames[r.Owner]; ok && mapped != "" {
			teamName = mapped
		}
		entry := Entry{Owner: r.Owner, Team: teamName, PPR: r.PPR, Rank: rank, RankChange: "="}
		if prev, ok := previous[teamName]; ok {
			entry.Diff = r.PPR - prev.PPR
			switch {
			case prev.Rank > rank:
				entry.RankChange = fmt.Sprintf("⇧%d", prev.Rank-rank)
			case prev.Rank < rank:
				entry.RankChange = fmt.Sprintf("⇩%d", rank-prev.Rank)
			}
		}
		out = append(out, entry)
	}
	return out
}

// SnapshotRows renders entries as history rows.
func SnapshotRows(entries []Entry) [][]string {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, []string{
			e.Team,
			strconv.FormatFloat(e.PPR, 'f', -1, 64),
			strconv.Itoa(e.Rank),
		})
	}
	return out
}
