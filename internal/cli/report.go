package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hansang/unitprice/internal/engine"
)

// RenderReport renders a completed batch report as a styled box.
func RenderReport(report *engine.Report) string {
	lines := []string{
		row("Total rows", fmt.Sprintf("%d", report.Total)),
		row("Priced", SuccessStyle.Render(fmt.Sprintf("%d", report.Success))),
		row("Learned hits", fmt.Sprintf("%d", report.LearnedHits)),
		row("Fallback hits", fmt.Sprintf("%d", report.FallbackHits)),
		row("Failed", renderCount(report.Failed, ErrorStyle)),
		row("No specification", renderCount(report.SkippedNoSpec, WarningStyle)),
		row("No price", renderCount(report.SkippedNoPrice, WarningStyle)),
		row("Duration", report.Duration.Round(10*time.Millisecond).String()),
	}

	if len(report.TopFailureReasons) > 0 {
		reasons := make([]string, 0, len(report.TopFailureReasons))
		for _, rc := range report.TopFailureReasons {
			reasons = append(reasons, fmt.Sprintf("%s (%d)", rc.Reason, rc.Count))
		}
		lines = append(lines, row("Failure reasons", SubtleStyle.Render(strings.Join(reasons, ", "))))
	}

	return RenderBox("Pricing report", lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func row(label, value string) string {
	return LabelStyle.Render(label) + value
}

func renderCount(n int, style lipgloss.Style) string {
	if n == 0 {
		return "0"
	}
	return style.Render(fmt.Sprintf("%d", n))
}
