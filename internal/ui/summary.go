package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-planetarium/internal/planetarium"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// mapWidth is the dome map size in the summary; height is half of it.
const mapWidth = 41

// WriteSummary prints the outcome of a run. When styled is false the output
// is plain text suitable for logs and pipes.
func WriteSummary(w io.Writer, res planetarium.Result, styled bool) error {
	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}
	row := func(label, value string) string {
		if !styled {
			return fmt.Sprintf("%-14s%s\n", label, value)
		}
		return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(render(titleStyle, "Planetarium dome"))
	b.WriteString("\n")

	if res.OutputPath != "" {
		b.WriteString(row("output", fmt.Sprintf("%s (%d bytes)", res.OutputPath, res.Bytes)))
	}
	if res.Source != "" {
		b.WriteString(row("catalog", fmt.Sprintf("%d stars from %s", res.Fetched, res.Source)))
	}
	b.WriteString(row("perforations", fmt.Sprintf("%d", res.Perforations)))
	if len(res.Excluded) > 0 || res.Clipped > 0 {
		b.WriteString(row("field", fmt.Sprintf("%d excluded, %d clipped to the rim", len(res.Excluded), res.Clipped)))
	}
	if res.Published != nil {
		b.WriteString(row("published", res.Published.URI))
	}
	b.WriteString(row("duration", res.Duration.Round(time.Millisecond).String()))

	if len(res.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(render(warnStyle, fmt.Sprintf("%d warnings", len(res.Warnings))))
		b.WriteString("\n")
		for _, warn := range res.Warnings {
			b.WriteString("  ")
			b.WriteString(render(dimStyle, warn.Error()))
			b.WriteString("\n")
		}
	}

	if len(res.Layout) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderDomeMap(res.Layout, mapWidth, mapWidth/2, styled))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
