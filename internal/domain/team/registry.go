package team

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DrawPick is the stored pick value for a tied game.
const DrawPick = "Draw"

//go:embed teams.yaml
var defaultTeamsYAML []byte

var (
	glyphPattern       = regexp.MustCompile(`<:.+?:\d+>`)
	matchupLinePattern = regexp.MustCompile(`^[A-Za-z0-9 .]+ @ [A-Za-z0-9 .]+$`)
	resultLinePattern  = regexp.MustCompile(`^[A-Za-z0-9 .]+ - [A-Za-z0-9 .]+: \d+-\d+$`)
	mentionTokens      = []string{"<@", "@everyone", "@here"}
)

// Team is an NFL franchise as shown in chat and stored in the grid.
type Team struct {
	Name  string `yaml:"name"`
	Short string `yaml:"short"`
	Glyph string `yaml:"glyph"`
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}
	if strings.TrimSpace(t.Short) == "" {
		return fmt.Errorf("team %q short code is required", t.Name)
	}
	if strings.ContainsAny(t.Short, " @") {
		return fmt.Errorf("team %q short code %q must not contain spaces or @", t.Name, t.Short)
	}
	return nil
}

type registryFile struct {
	DrawGlyph string `yaml:"draw_glyph"`
	Teams     []Team `yaml:"teams"`
}

// Registry is the immutable lookup table loaded at startup.
type Registry struct {
	teams     []Team
	byName    map[string]Team
	byGlyph   map[string]Team
	drawGlyph string
}

func NewRegistry(teams []Team, drawGlyph string) (*Registry, error) {
	r := &Registry{
		teams:     make([]Team, 0, len(teams)),
		byName:    make(map[string]Team, len(teams)),
		byGlyph:   make(map[string]Team, len(teams)),
		drawGlyph: strings.TrimSpace(drawGlyph),
	}
	for _, t := range teams {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byName[t.Name]; exists {
			return nil, fmt.Errorf("duplicate team name %q", t.Name)
		}
		r.teams = append(r.teams, t)
		r.byName[t.Name] = t
		if t.Glyph != "" {
			r.byGlyph[t.Glyph] = t
		}
	}
	return r, nil
}

// LoadRegistry parses the YAML registry format.
func LoadRegistry(raw []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode team registry: %w", err)
	}
	if len(file.Teams) == 0 {
		return nil, fmt.Errorf("team registry is empty")
	}
	return NewRegistry(file.Teams, file.DrawGlyph)
}

func DefaultRegistry() (*Registry, error) {
	return LoadRegistry(defaultTeamsYAML)
}

func MustDefaultRegistry() *Registry {
	r, err := DefaultRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Teams() []Team {
	out := make([]Team, len(r.teams))
	copy(out, r.teams)
	return out
}

func (r *Registry) DrawGlyph() string {
	return r.drawGlyph
}

func (r *Registry) Lookup(name string) (Team, bool) {
	t, ok := r.byName[strings.TrimSpace(name)]
	return t, ok
}

// ShortOf returns the registered short code, or the last word of name when
// the full name is unknown.
func (r *Registry) ShortOf(name string) string {
	name = strings.TrimSpace(name)
	if t, ok := r.byName[name]; ok {
		return t.Short
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func (r *Registry) GlyphOf(name string) (string, bool) {
	t, ok := r.Lookup(name)
	if !ok || t.Glyph == "" {
		return "", false
	}
	return t.Glyph, true
}

func (r *Registry) GlyphOr(name, fallback string) string {
	if glyph, ok := r.GlyphOf(name); ok {
		return glyph
	}
	return fallback
}

func (r *Registry) MatchCode(away, home string) string {
	return r.ShortOf(away) + "@" + r.ShortOf(home)
}

// MatchCodeFromLine derives the match code from a posted matchup message.
// Lines that are not "away @ home" are returned glyph-stripped as-is.
func (r *Registry) MatchCodeFromLine(content string) string {
	clean := StripGlyphs(content)
	parts := strings.Split(clean, "@")
	if len(parts) != 2 {
		return clean
	}
	return r.MatchCode(parts[0], parts[1])
}

// FormatMatchLine renders the message the bot posts for one matchup.
func (r *Registry) FormatMatchLine(away, home string) string {
	line := fmt.Sprintf("%s %s @ %s %s", r.GlyphOr(away, ""), away, home, r.GlyphOr(home, ""))
	return strings.TrimSpace(line)
}

// PickForEmoji maps a reaction back to the value stored in the grid.
// Unknown emoji are kept raw so the sheet stays inspectable.
func (r *Registry) PickForEmoji(emoji string) string {
	if r.drawGlyph != "" && emoji == r.drawGlyph {
		return DrawPick
	}
	if t, ok := r.byGlyph[emoji]; ok {
		return t.Short
	}
	return emoji
}

// ValidShorts lists the picks counted as correct for a winner. Every
// registered short code equal to the winner ignoring case qualifies, not only
// the competitor's own.
func (r *Registry) ValidShorts(winner string) []string {
	if winner == DrawPick {
		return []string{DrawPick}
	}
	out := []string{winner}
	for _, t := range r.teams {
		if t.Short != winner && strings.EqualFold(t.Short, winner) {
			out = append(out, t.Short)
		}
	}
	return out
}

func StripGlyphs(text string) string {
	return strings.TrimSpace(glyphPattern.ReplaceAllString(text, ""))
}

// IsMatchupMessage reports whether a bot message is a strict matchup or
// result posting, free of mentions.
func IsMatchupMessage(content string) bool {
	for _, token := range mentionTokens {
		if strings.Contains(content, token) {
			return false
		}
	}
	clean := StripGlyphs(content)
	return matchupLinePattern.MatchString(clean) || resultLinePattern.MatchString(clean)
}
