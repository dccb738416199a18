package ui

import (
	"errors"
	"strings"

	"github.com/aebs/aebs/internal/builderr"
)

// ErrorMessage represents a structured, actionable error to present to users.
type ErrorMessage struct {
	Problem string   // one-line problem statement
	Causes  []string // possible causes
	Actions []string // actionable steps to resolve
	Hints   []string // optional hints (e.g., commands to try)
}

// Format renders the error using the color theme. It does not include ANSI
// codes when colors are disabled (NO_COLOR or dumb terminal).
func (e ErrorMessage) Format(c *ColorConfig) string {
	var b strings.Builder
	if c.EmojiEnabled {
		b.WriteString(c.Error("✗ "))
	} else {
		b.WriteString(c.Error("[ERR] "))
	}
	b.WriteString(c.Header("Error"))
	b.WriteString("\n")
	if e.Problem != "" {
		b.WriteString("  ")
		b.WriteString(c.Label("Problem"))
		b.WriteString(": ")
		b.WriteString(e.Problem)
		b.WriteString("\n")
	}
	writeList(&b, c, "Possible causes", "•", e.Causes, false)
	writeList(&b, c, "Try", "→", e.Actions, false)
	writeList(&b, c, "Hints", "·", e.Hints, true)
	return b.String()
}

func writeList(b *strings.Builder, c *ColorConfig, title, bullet string, items []string, dim bool) {
	if len(items) == 0 {
		return
	}
	if !c.EmojiEnabled {
		bullet = "-"
	}
	b.WriteString("  ")
	b.WriteString(c.Label(title))
	b.WriteString(":\n")
	for _, it := range items {
		b.WriteString("   ")
		b.WriteString(bullet)
		b.WriteString(" ")
		if dim {
			it = c.Description(it)
		}
		b.WriteString(it)
		b.WriteString("\n")
	}
}

// ErrorMessageFor turns a pipeline error into guidance keyed on its kind.
func ErrorMessageFor(err error) ErrorMessage {
	msg := ErrorMessage{Problem: err.Error()}
	switch {
	case errors.Is(err, builderr.ErrTooManyRedirects):
		msg.Causes = []string{"The download URL redirects in a loop"}
		msg.Actions = []string{"Check --catalog-url points at a GitHub-compatible releases API"}
	case errors.Is(err, builderr.ErrCatalogFetch):
		msg.Causes = []string{"No network access", "GitHub API rate limit reached"}
		msg.Actions = []string{"Retry later", "Set --catalog-url to a mirror"}
	case errors.Is(err, builderr.ErrDownload):
		msg.Causes = []string{"Connection dropped", "The asset was removed from the release"}
		msg.Actions = []string{"Re-run the build; partial files are not kept"}
		msg.Hints = []string{"aebs assets <tag>"}
	case errors.Is(err, builderr.ErrDestinationUnavailable):
		msg.Causes = []string{"Not enough free space for the runtime archive"}
		msg.Actions = []string{"Free disk space or choose another --cache directory"}
	case errors.Is(err, builderr.ErrExtraction):
		msg.Causes = []string{"Corrupt or truncated archive"}
		msg.Actions = []string{"Delete the cached archive and rebuild"}
		msg.Hints = []string{"aebs cache verify"}
	case errors.Is(err, builderr.ErrMissingDependency):
		msg.Causes = []string{"Dependencies are not installed"}
		msg.Actions = []string{"Run npm install in the project directory"}
	case errors.Is(err, builderr.ErrBundling):
		msg.Causes = []string{"A source file could not be copied or sealed"}
		msg.Actions = []string{"Check permissions under src/ and build/"}
	case errors.Is(err, builderr.ErrMissingPrerequisite):
		msg.Causes = []string{"package.json is missing or invalid", "The runtime layout is not what was expected"}
		msg.Actions = []string{"Check package.json has name, productName and version"}
	case errors.Is(err, builderr.ErrIconConversion):
		msg.Causes = []string{"config.icon is not a PNG or JPEG image"}
		msg.Actions = []string{"Point config.icon at a square PNG of at least 256px"}
	case errors.Is(err, builderr.ErrRename):
		msg.Causes = []string{"The output directory holds a previous build"}
		msg.Actions = []string{"Run aebs clean and build again"}
	case errors.Is(err, builderr.ErrMetadata):
		msg.Causes = []string{"The runtime's Info.plist or version resource could not be rewritten"}
		msg.Actions = []string{"Run aebs clean and build again"}
	}
	return msg
}
