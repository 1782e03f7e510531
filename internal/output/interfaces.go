// Package output renders command results for expdb. A Printer writes plain,
// styled, JSON or YAML output, and takes its styling from an injected
// StyleProvider so rendering stays independent of any theme.
package output

import (
	"fmt"
	"strings"
)

// StyleProvider supplies the TextStyle for each semantic type.
type StyleProvider interface {
	// GetStyle returns the style for a semantic type such as "info" or "label".
	GetStyle(semantic string) TextStyle

	// IsAvailable reports whether the provider can be used. Printers fall
	// back to plain text when it returns false.
	IsAvailable() bool
}

// TextStyle renders text. lipgloss.Style satisfies it.
type TextStyle interface {
	Render(strs ...string) string
}

// Mode selects how a Printer renders.
type Mode int

const (
	// ModeAuto styles output when the terminal supports colour.
	ModeAuto Mode = iota
	// ModeStyled always applies the style provider.
	ModeStyled
	// ModePlain never styles.
	ModePlain
	// ModeJSON emits JSON documents.
	ModeJSON
	// ModeYAML emits YAML documents.
	ModeYAML
)

// String returns the flag spelling of m.
func (m Mode) String() string {
	switch m {
	case ModeStyled:
		return "styled"
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	case ModeYAML:
		return "yaml"
	default:
		return "text"
	}
}

// ParseMode parses a --format value.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "auto":
		return ModeAuto, nil
	case "styled", "color":
		return ModeStyled, nil
	case "plain":
		return ModePlain, nil
	case "json":
		return ModeJSON, nil
	case "yaml", "yml":
		return ModeYAML, nil
	default:
		return ModeAuto, fmt.Errorf("unknown output format %q (use text|plain|styled|json|yaml)", s)
	}
}

// SemanticType is the meaning of a piece of output, used to pick its style.
type SemanticType string

const (
	// SemanticPlain is unstyled text.
	SemanticPlain SemanticType = "plain"
	// SemanticInfo is informational text.
	SemanticInfo SemanticType = "info"
	// SemanticSuccess reports a completed action.
	SemanticSuccess SemanticType = "success"
	// SemanticWarning reports something the user should look at.
	SemanticWarning SemanticType = "warning"
	// SemanticError reports a failure.
	SemanticError SemanticType = "error"
	// SemanticHeading introduces a block, such as one experiment summary.
	SemanticHeading SemanticType = "heading"
	// SemanticLabel is the name half of a label/value pair.
	SemanticLabel SemanticType = "label"
	// SemanticValue is the value half of a label/value pair.
	SemanticValue SemanticType = "value"
)
