package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color codes for terminal output
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Cyan          = "\033[36m"
	BrightBlack   = "\033[90m"
	BrightRed     = "\033[91m"
	BrightGreen   = "\033[92m"
	BrightYellow  = "\033[93m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
)

// Theme defines the color scheme for different UI elements
type Theme struct {
	Success     string
	Warning     string
	Error       string
	Info        string
	Header      string
	SubHeader   string
	Label       string
	Value       string
	Description string
	Separator   string
	Prompt      string
	Pending     string
}

// DefaultTheme returns the default color theme
func DefaultTheme() *Theme {
	return &Theme{
		Success:     BrightGreen,
		Warning:     BrightYellow,
		Error:       BrightRed,
		Info:        BrightCyan,
		Header:      Bold + BrightCyan,
		SubHeader:   Bold + Cyan,
		Label:       Bold,
		Value:       "", // terminal default foreground
		Description: BrightBlack,
		Separator:   BrightBlack,
		Prompt:      Bold + BrightMagenta,
		Pending:     BrightBlack,
	}
}

// ColorConfig manages color output settings
type ColorConfig struct {
	Enabled      bool
	EmojiEnabled bool
	Theme        *Theme
}

// NewColorConfig creates a color configuration honoring NO_COLOR and dumb
// terminals.
func NewColorConfig() *ColorConfig {
	noColor := os.Getenv("NO_COLOR") != ""
	term := os.Getenv("TERM")

	return &ColorConfig{
		Enabled:      !noColor && term != "dumb" && term != "",
		EmojiEnabled: true,
		Theme:        DefaultTheme(),
	}
}

// Apply applies a color to text if colors are enabled
func (c *ColorConfig) Apply(color, text string) string {
	if !c.Enabled || color == "" {
		return text
	}
	return color + text + Reset
}

func (c *ColorConfig) Success(text string) string     { return c.Apply(c.Theme.Success, text) }
func (c *ColorConfig) Warning(text string) string     { return c.Apply(c.Theme.Warning, text) }
func (c *ColorConfig) Error(text string) string       { return c.Apply(c.Theme.Error, text) }
func (c *ColorConfig) Info(text string) string        { return c.Apply(c.Theme.Info, text) }
func (c *ColorConfig) Header(text string) string      { return c.Apply(c.Theme.Header, text) }
func (c *ColorConfig) SubHeader(text string) string   { return c.Apply(c.Theme.SubHeader, text) }
func (c *ColorConfig) Label(text string) string       { return c.Apply(c.Theme.Label, text) }
func (c *ColorConfig) Value(text string) string       { return c.Apply(c.Theme.Value, text) }
func (c *ColorConfig) Description(text string) string { return c.Apply(c.Theme.Description, text) }

// Separator returns a colored separator line
func (c *ColorConfig) Separator(width int) string {
	return c.Apply(c.Theme.Separator, strings.Repeat("─", width))
}

// StatusIcon returns a colored status icon (respects emoji settings)
func (c *ColorConfig) StatusIcon(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "cached", "stable":
		if c.EmojiEnabled {
			return c.Success("✓")
		}
		return c.Success("[OK]")
	case "warning", "changed", "prerelease":
		if c.EmojiEnabled {
			return c.Warning("⚠")
		}
		return c.Warning("[WARN]")
	case "error", "failed", "missing":
		if c.EmojiEnabled {
			return c.Error("✗")
		}
		return c.Error("[ERR]")
	default:
		if c.EmojiEnabled {
			return c.Apply(c.Theme.Pending, "○")
		}
		return c.Apply(c.Theme.Pending, "[ ]")
	}
}

// Box frames text in a rounded border. Without colors the border is drawn
// in the terminal's default color.
func (c *ColorConfig) Box(text string) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	if c.Enabled {
		style = style.BorderForeground(lipgloss.Color("63"))
	}
	return style.Render(text)
}
