package shell

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/terra-clan/drills/internal/models"
	"github.com/terra-clan/drills/internal/session"
)

type palette struct {
	success lipgloss.Color
	failure lipgloss.Color
	warning lipgloss.Color
	accent  lipgloss.Color
	subtle  lipgloss.Color
}

var (
	lightPalette = palette{
		success: lipgloss.Color("28"),
		failure: lipgloss.Color("160"),
		warning: lipgloss.Color("130"),
		accent:  lipgloss.Color("25"),
		subtle:  lipgloss.Color("245"),
	}
	darkPalette = palette{
		success: lipgloss.Color("10"),
		failure: lipgloss.Color("9"),
		warning: lipgloss.Color("11"),
		accent:  lipgloss.Color("14"),
		subtle:  lipgloss.Color("8"),
	}
)

type styles struct {
	prompt  lipgloss.Style
	header  lipgloss.Style
	subtle  lipgloss.Style
	current lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	plain   lipgloss.Style
}

// newStyles builds the styles of one theme. Colors are dropped when w is
// not a terminal.
func newStyles(w io.Writer, theme session.Theme) styles {
	r := lipgloss.NewRenderer(w)
	p := lightPalette
	if theme == session.ThemeDark {
		p = darkPalette
	}

	return styles{
		prompt:  r.NewStyle().Foreground(p.accent).Bold(true),
		header:  r.NewStyle().Foreground(p.accent).Bold(true),
		subtle:  r.NewStyle().Foreground(p.subtle),
		current: r.NewStyle().Foreground(p.accent).Bold(true),
		success: r.NewStyle().Foreground(p.success).Bold(true),
		failure: r.NewStyle().Foreground(p.failure),
		warning: r.NewStyle().Foreground(p.warning),
		plain:   r.NewStyle(),
	}
}

// output picks the style of the output panel
func (s styles) output(class session.OutputClass) lipgloss.Style {
	switch class.Status {
	case session.OutputSuccess:
		return s.success
	case session.OutputError:
		if class.ErrorType == models.ErrorTimeout {
			return s.warning
		}
		return s.failure
	default:
		return s.plain
	}
}
