package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/rag"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	answerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	levelStyles = map[activity.Level]lipgloss.Style{
		activity.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		activity.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		activity.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		activity.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		activity.LevelAgent:   lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	}
)

func confidenceStyle(score float64) lipgloss.Style {
	switch {
	case score >= 70:
		return highStyle
	case score >= 40:
		return mediumStyle
	default:
		return lowStyle
	}
}

// Terminal renders fa for a terminal of the given width. A width of zero or
// less leaves lines unwrapped.
func Terminal(fa rag.FinalAnswer, width int) string {
	box := answerStyle
	if width > 4 {
		box = box.Width(width - 2)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(box.Render(strings.TrimSpace(fa.Answer)))
	b.WriteString("\n")

	score := fmt.Sprintf("%.2f%%", fa.ConfidenceScore)
	b.WriteString("Confidence: " + confidenceStyle(fa.ConfidenceScore).Render(score))
	b.WriteString("\n")

	if len(fa.VerifiedSources) > 0 {
		b.WriteString("Sources: " + strings.Join(fa.VerifiedSources, ", "))
		b.WriteString("\n")
	}
	if cb := fa.ClaimBreakdown; cb.Total() > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Claims: %d supported, %d partially supported, %d not supported, %d contradicted",
			cb.Supported, cb.PartiallySupported, cb.NotSupported, cb.Contradicted)))
		b.WriteString("\n")
	}
	if fa.Limitations != "" {
		b.WriteString(mutedStyle.Render("Limitations: " + fa.Limitations))
		b.WriteString("\n")
	}
	return b.String()
}

// Entry renders one activity entry as a single colored line.
func Entry(e activity.Entry) string {
	style, ok := levelStyles[e.Level]
	if !ok {
		style = mutedStyle
	}
	return fmt.Sprintf("%s %s %s",
		mutedStyle.Render(e.Time.Format("15:04:05")),
		style.Render(fmt.Sprintf("%-8s", e.Level)),
		fmt.Sprintf("%s: %s", e.Stage, e.Message),
	)
}
