package display

import "github.com/charmbracelet/lipgloss"

// Palette holds the semantic styles of the summary table.
type Palette struct {
	// Plain renders a cell unchanged.
	Plain lipgloss.Style
	// Header renders the column headers.
	Header lipgloss.Style
	// Gain renders non-negative return cells.
	Gain lipgloss.Style
	// Loss renders negative return cells.
	Loss lipgloss.Style
	// Industry renders the industry column.
	Industry lipgloss.Style
}

// defaultPalette forms the colored palette.
func defaultPalette() Palette {
	return Palette{
		Plain:    lipgloss.NewStyle(),
		Header:   lipgloss.NewStyle().Bold(true),
		Gain:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFB2")),
		Loss:     lipgloss.NewStyle().Foreground(lipgloss.Color("#E94090")),
		Industry: lipgloss.NewStyle().Foreground(lipgloss.Color("#858392")),
	}
}

// plainPalette forms a palette whose styles all render unchanged text.
func plainPalette() Palette {
	plain := lipgloss.NewStyle()

	return Palette{
		Plain:    plain,
		Header:   plain,
		Gain:     plain,
		Loss:     plain,
		Industry: plain,
	}
}
