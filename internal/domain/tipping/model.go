package tipping

import (
	"strconv"
	"strings"
)

// Sheet layout. Rows and columns are 1-based as in the spreadsheet.
const (
	NameRow       = 1
	UserIDRow     = 2
	FirstMatchRow = 3
	CodeColumn    = 1

	WeeklyLabel = "Ukespoeng"
	SeasonLabel = "Sesongpoeng"
)

// Participant is one tipper. Index is the 0-based offset into a sheet row
// (column B is 1), recomputed from the header rows on every read.
type Participant struct {
	UserID      string
	DisplayName string
	Index       int
}

func (p Participant) Column() int {
	return p.Index + 1
}

// Name falls back to the user ID when the name header is blank.
func (p Participant) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.UserID
}

// ParticipantsFromRows maps the header rows to participants in column order.
// Blank ID cells get no participant; a repeated ID keeps its first column.
func ParticipantsFromRows(names, ids []string) []Participant {
	out := make([]Participant, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for i := 1; i < len(ids); i++ {
		userID := strings.TrimSpace(ids[i])
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		name := ""
		if i < len(names) {
			name = strings.TrimSpace(names[i])
		}
		out = append(out, Participant{UserID: userID, DisplayName: name, Index: i})
	}
	return out
}

// IndexByUser is the reaction-side lookup from chat identity to participant.
func IndexByUser(participants []Participant) map[string]Participant {
	out := make(map[string]Participant, len(participants))
	for _, p := range participants {
		out[p.UserID] = p
	}
	return out
}

// RowWidth is the number of cells needed to hold every participant's column.
func RowWidth(participants []Participant) int {
	width := 1
	for _, p := range participants {
		if p.Index+1 > width {
			width = p.Index + 1
		}
	}
	return width
}

type Classification int

const (
	Missing Classification = iota
	Correct
	Incorrect
)

func (c Classification) String() string {
	switch c {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "missing"
	}
}

// Classify grades a stored pick against the accepted values. The pick is
// compared exactly; case folding is already applied when building valid.
func Classify(pick string, valid []string) Classification {
	if pick == "" {
		return Missing
	}
	for _, v := range valid {
		if pick == v {
			return Correct
		}
	}
	return Incorrect
}

type Color struct {
	Red, Green, Blue float64
}

var (
	ColorGreen  = Color{Green: 1}
	ColorRed    = Color{Red: 1}
	ColorYellow = Color{Red: 1, Green: 1}
	ColorBlack  = Color{}
)

// Background is the fill used to annotate a classified cell.
func (c Classification) Background() Color {
	switch c {
	case Correct:
		return ColorGreen
	case Incorrect:
		return ColorRed
	default:
		return ColorYellow
	}
}

// ParseTotal reads a stored point total; anything non-numeric counts as 0.
func ParseTotal(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// CellValue returns row[index] or "" when the row is short.
func CellValue(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}

// ColumnLetter converts a 1-based column to its A1 letters.
func ColumnLetter(col int) string {
	if col < 1 {
		return ""
	}
	var out []byte
	for col > 0 {
		col--
		out = append([]byte{byte('A' + col%26)}, out...)
		col /= 26
	}
	return string(out)
}

func A1(row, col int) string {
	return ColumnLetter(col) + strconv.Itoa(row)
}
