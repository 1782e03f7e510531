package output

// PlainTextStyle renders text with an optional semantic prefix and no colour.
type PlainTextStyle struct {
	prefix string
}

// NewPlainTextStyle creates a plain style with an optional prefix.
func NewPlainTextStyle(prefix string) *PlainTextStyle {
	return &PlainTextStyle{prefix: prefix}
}

// Render joins strs and prepends the prefix.
func (p *PlainTextStyle) Render(strs ...string) string {
	text := ""
	for i, s := range strs {
		if i > 0 {
			text += " "
		}
		text += s
	}
	return p.prefix + text
}

// PlainStyleProvider marks message kinds with symbols instead of colours.
type PlainStyleProvider struct {
	available bool
}

// NewPlainStyleProvider creates a new plain style provider.
func NewPlainStyleProvider() *PlainStyleProvider {
	return &PlainStyleProvider{available: true}
}

// GetStyle returns the prefix style for semantic.
func (p *PlainStyleProvider) GetStyle(semantic string) TextStyle {
	switch semantic {
	case "success":
		return NewPlainTextStyle("✓ ")
	case "warning":
		return NewPlainTextStyle("⚠ ")
	case "error":
		return NewPlainTextStyle("✗ ")
	case "info":
		return NewPlainTextStyle("ℹ ")
	default:
		return NewPlainTextStyle("")
	}
}

// IsAvailable implements StyleProvider.
func (p *PlainStyleProvider) IsAvailable() bool {
	return p.available
}
