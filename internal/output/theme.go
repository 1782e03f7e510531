package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is a lipgloss-backed StyleProvider.
type Theme struct {
	styles map[string]lipgloss.Style
}

// DefaultTheme returns the colour theme used on capable terminals.
// Colours adapt to light and dark backgrounds.
func DefaultTheme() *Theme {
	return &Theme{styles: map[string]lipgloss.Style{
		"info":    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5FAFFF"}),
		"success": lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5FD75F"}),
		"warning": lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD75F"}),
		"error":   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}),
		"heading": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5F00AF", Dark: "#AF87FF"}),
		"label":   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		"value":   lipgloss.NewStyle(),
	}}
}

// GetStyle returns the style for semantic, or an empty style.
func (t *Theme) GetStyle(semantic string) TextStyle {
	if style, ok := t.styles[semantic]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// IsAvailable implements StyleProvider.
func (t *Theme) IsAvailable() bool {
	return t != nil && len(t.styles) > 0
}

// ColorSupported reports whether stdout renders colour, honouring NO_COLOR
// and non-terminal destinations through lipgloss's detected profile.
func ColorSupported() bool {
	return lipgloss.ColorProfile() != termenv.Ascii
}
