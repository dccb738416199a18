package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Printer centralizes output formatting for commands.
// - Respects --output (text|json|yaml)
// - Uses ColorConfig for styling when printing text
// - Provides helpers for common message types
type Printer struct {
	format string
	quiet  bool
	out    io.Writer
	Colors *ColorConfig
}

func NewPrinter(format string) Printer {
	return Printer{format: format, out: os.Stdout, Colors: NewColorConfig()}
}

// WithWriter returns a copy of p writing to w.
func (p Printer) WithWriter(w io.Writer) Printer {
	p.out = w
	return p
}

// Format is the selected output format ("text" when unset).
func (p Printer) Format() string {
	if p.format == "" {
		return "text"
	}
	return p.format
}

// Structured reports whether output is machine-readable.
func (p Printer) Structured() bool {
	f := p.Format()
	return f == "json" || f == "yaml"
}

// Textf prints formatted text (always text path).
func (p Printer) Textf(format string, a ...any) { fmt.Fprintf(p.out, format, a...) }

// JSON pretty-prints a JSON value.
func (p Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML prints v as a YAML document.
func (p Printer) YAML(v any) error {
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Emit writes v in the selected structured format. It returns false for
// text output so callers can render their own view.
func (p Printer) Emit(v any) (bool, error) {
	switch p.Format() {
	case "json":
		return true, p.JSON(v)
	case "yaml":
		return true, p.YAML(v)
	}
	return false, nil
}

// Success prints a success line with themed prefix.
func (p Printer) Success(msg string) {
	if p.quiet {
		return
	}
	if p.Colors.EmojiEnabled {
		fmt.Fprintf(p.out, "%s %s\n", p.Colors.Success("✓"), msg)
	} else {
		fmt.Fprintf(p.out, "%s %s\n", p.Colors.Success("[OK]"), msg)
	}
}

// Info prints an informational line.
func (p Printer) Info(msg string) {
	if p.quiet {
		return
	}
	if p.Colors.EmojiEnabled {
		fmt.Fprintln(p.out, p.Colors.Info("ℹ"), msg)
	} else {
		fmt.Fprintln(p.out, p.Colors.Info("[INFO]"), msg)
	}
}

// Warn prints a warning line.
func (p Printer) Warn(msg string) {
	if p.Colors.EmojiEnabled {
		fmt.Fprintln(p.out, p.Colors.Warning("!"), msg)
	} else {
		fmt.Fprintln(p.out, p.Colors.Warning("[WARN]"), msg)
	}
}

// Error prints an error line.
func (p Printer) Error(msg string) {
	if p.Colors.EmojiEnabled {
		fmt.Fprintln(p.out, p.Colors.Error("✗"), msg)
	} else {
		fmt.Fprintln(p.out, p.Colors.Error("[ERR]"), msg)
	}
}

// Header prints a section header.
func (p Printer) Header(title string) {
	fmt.Fprintln(p.out, p.Colors.Header(" "+title+" "))
}

// Section prints a section header with separator
func (p Printer) Section(title string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.Colors.SubHeader(title))
	fmt.Fprintln(p.out, p.Colors.Separator(40))
}

// KeyValueLine prints a key-value pair with proper formatting
func (p Printer) KeyValueLine(key, value string) {
	fmt.Fprintf(p.out, "%s %s\n", p.Colors.Label(key+":"), p.Colors.Value(value))
}

// Box prints lines inside a rounded border.
func (p Printer) Box(text string) {
	fmt.Fprintln(p.out, p.Colors.Box(text))
}
