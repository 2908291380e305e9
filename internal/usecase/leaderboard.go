package usecase

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// WeekLabel renders week for chat replies; 0 is the feed's current week.
func WeekLabel(week int) string {
	if week <= 0 {
		return "nåværende"
	}
	return strconv.Itoa(week)
}

// FormatLeaderboard renders the weekly ranking followed by the season
// ranking as one fixed-width block. Ties keep header order for the weekly
// list and weekly order for the season list.
func FormatLeaderboard(week int, standings []Standing) string {
	byWeek := make([]Standing, len(standings))
	copy(byWeek, standings)
	sort.SliceStable(byWeek, func(i, j int) bool { return byWeek[i].Weekly > byWeek[j].Weekly })

	bySeason := make([]Standing, len(byWeek))
	copy(bySeason, byWeek)
	sort.SliceStable(bySeason, func(i, j int) bool { return bySeason[i].Season > bySeason[j].Season })

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	fmt.Fprintf(buf, "```Poeng for uke %s:\n", WeekLabel(week))
	for i, st := range byWeek {
		fmt.Fprintf(buf, "%d. %-10s %d\n", i+1, st.Participant.Name(), st.Weekly)
	}
	_, _ = buf.WriteString("\nSesongtotal:\n")
	for i, st := range bySeason {
		fmt.Fprintf(buf, "%d. %-10s %d\n", i+1, st.Participant.Name(), st.Season)
	}
	_, _ = buf.WriteString("```")
	return buf.String()
}

// ReconcileMessages are the chat replies for a finished run.
func ReconcileMessages(result ReconcileResult) []string {
	return []string{
		FormatLeaderboard(result.Week, result.Standings),
		fmt.Sprintf("✅ Resultater for uke %s er oppdatert.", WeekLabel(result.Week)),
	}
}
