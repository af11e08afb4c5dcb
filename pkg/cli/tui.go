package cli

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color scheme of the session view.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme is green on the terminal default background.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Success: lipgloss.Color("#3fb950"),
	Error:   lipgloss.Color("#f85149"),
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles derives Styles from t.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border:  lipgloss.NewStyle().Foreground(t.Primary),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// Status styles a status message by kind ("error", "success" or anything
// else for info).
func (s Styles) Status(kind, text string) string {
	switch kind {
	case "error":
		return s.Error.Render(text)
	case "success":
		return s.Success.Render(text)
	}
	return s.Help.Render(text)
}

// Section is a labelled block of lines. Only the last lines that fit are
// shown.
type Section struct {
	Label string
	Lines []string
}

// Frame is a bordered screen: title and status, sections, help line.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Help     string
}

// Render draws the frame at width x height.
func (f Frame) Render(width, height int) string {
	if width < 8 || height < 6 {
		return f.Title + " " + f.Status
	}
	bc := f.Styles.Border
	inner := width - 4

	lines := []string{bc.Render("╭" + strings.Repeat("─", width-2) + "╮")}

	title := f.Styles.Title.Render(f.Title)
	pad := max(0, width-5-lipgloss.Width(title)-lipgloss.Width(f.Status))
	lines = append(lines, bc.Render("│")+" "+title+" "+f.Status+strings.Repeat(" ", pad)+" "+bc.Render("│"))

	n := max(len(f.Sections), 1)
	// top, title, one label per section, bottom, help
	per := max((height-4-n)/n, 1)
	for _, sec := range f.Sections {
		lines = append(lines, f.section(sec, per, width, inner)...)
	}

	lines = append(lines, bc.Render("╰"+strings.Repeat("─", width-2)+"╯"))
	lines = append(lines, f.Styles.Help.Render(f.Help))
	return strings.Join(lines, "\n")
}

func (f Frame) section(sec Section, height, width, inner int) []string {
	bc := f.Styles.Border
	label := f.Styles.Label.Render(" " + sec.Label + " ")
	pad := max(0, width-3-lipgloss.Width(label))
	out := []string{bc.Render("├─") + label + bc.Render(strings.Repeat("─", pad)+"┤")}

	content := sec.Lines
	if len(content) > height {
		content = content[len(content)-height:]
	}
	for i := range height {
		var text string
		if i < len(content) {
			text = content[i]
		}
		if lipgloss.Width(text) > inner {
			text = truncate(text, inner-1) + "…"
		}
		out = append(out, bc.Render("│")+" "+text+strings.Repeat(" ", max(0, inner-lipgloss.Width(text)))+" "+bc.Render("│"))
	}
	return out
}

// truncate cuts s to at most width display cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	cells := 0
	for i, r := range s {
		w := lipgloss.Width(string(r))
		if cells+w > width {
			return s[:i]
		}
		cells += w
	}
	return s
}

// Meter renders level (0..1) as a bar of width cells.
func Meter(level float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(level) || level < 0 {
		level = 0
	}
	filled := min(int(math.Round(math.Min(level, 1)*float64(width))), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
