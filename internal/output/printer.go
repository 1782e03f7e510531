package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// Printer writes command results in the configured mode.
type Printer struct {
	styleProvider StyleProvider
	writer        io.Writer
	mode          Mode
	silent        bool

	mu sync.Mutex
}

// NewPrinter creates a Printer writing to os.Stdout in ModeAuto.
func NewPrinter(options ...Option) *Printer {
	p := &Printer{
		writer: os.Stdout,
		mode:   ModeAuto,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Structured reports whether the printer emits machine-readable documents.
// Commands use it to choose between Data and line-oriented output.
func (p *Printer) Structured() bool {
	return p.mode == ModeJSON || p.mode == ModeYAML
}

// Println outputs text followed by a newline.
func (p *Printer) Println(text string) {
	p.output(SemanticPlain, text, true)
}

// Info outputs informational text.
func (p *Printer) Info(text string) {
	p.output(SemanticInfo, text, true)
}

// Success outputs success text.
func (p *Printer) Success(text string) {
	p.output(SemanticSuccess, text, true)
}

// Warning outputs warning text.
func (p *Printer) Warning(text string) {
	p.output(SemanticWarning, text, true)
}

// Error outputs error text.
func (p *Printer) Error(text string) {
	p.output(SemanticError, text, true)
}

// Heading outputs a block heading.
func (p *Printer) Heading(text string) {
	p.output(SemanticHeading, text, true)
}

// Field outputs an indented "label: value" line. width pads the label so
// consecutive fields line up.
func (p *Printer) Field(label, value string, width int) {
	if p.silent || p.Structured() {
		return
	}
	pad := ""
	if n := width - len(label); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	line := "  " + p.render(SemanticLabel, label+":") + pad + " " + p.render(SemanticValue, value) + "\n"
	p.write(line)
}

// Data writes v as a JSON or YAML document. In text modes it does nothing and
// callers are expected to print fields themselves.
func (p *Printer) Data(v interface{}) error {
	if p.silent {
		return nil
	}
	var (
		raw []byte
		err error
	)
	switch p.mode {
	case ModeJSON:
		raw, err = sonic.ConfigStd.MarshalIndent(v, "", "  ")
		if err == nil {
			raw = append(raw, '\n')
		}
	case ModeYAML:
		raw, err = yaml.Marshal(v)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", p.mode, err)
	}
	p.write(string(raw))
	return nil
}

// output is the core rendering path for line-oriented messages.
func (p *Printer) output(semantic SemanticType, text string, addNewline bool) {
	if p.silent {
		return
	}

	var finalText string
	switch p.mode {
	case ModeJSON, ModeYAML:
		finalText = p.renderStructured(semantic, text)
	default:
		finalText = p.render(semantic, text)
		if addNewline && !strings.HasSuffix(finalText, "\n") {
			finalText += "\n"
		}
	}
	p.write(finalText)
}

func (p *Printer) write(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprint(p.writer, text)
}

// render applies the provider's style in styled and auto modes and the plain
// prefixes otherwise.
func (p *Printer) render(semantic SemanticType, text string) string {
	if p.stylable() && p.mode != ModePlain {
		return p.styleProvider.GetStyle(string(semantic)).Render(text)
	}
	return NewPlainStyleProvider().GetStyle(string(semantic)).Render(text)
}

// renderStructured wraps a message so JSON/YAML streams stay parseable.
func (p *Printer) renderStructured(semantic SemanticType, text string) string {
	msg := map[string]string{
		"type":    string(semantic),
		"message": text,
	}
	if p.mode == ModeYAML {
		raw, err := yaml.Marshal(msg)
		if err != nil {
			return text + "\n"
		}
		return "---\n" + string(raw)
	}
	raw, err := sonic.ConfigStd.Marshal(msg)
	if err != nil {
		return text + "\n"
	}
	return string(raw) + "\n"
}

// stylable reports whether a usable style provider is configured.
func (p *Printer) stylable() bool {
	return p.styleProvider != nil && p.styleProvider.IsAvailable()
}
