package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// DownloadBar renders a byte-oriented progress bar for runtime downloads.
// On a TTY it redraws a single line; otherwise it prints at 10% steps.
type DownloadBar struct {
	out        io.Writer
	label      string
	total      int64
	current    int64
	startTime  time.Time
	lastUpdate time.Time
	isTTY      bool
	lastPct    float64
	indent     string
}

// NewDownloadBar creates a bar labelled with the asset name. A total <= 0
// means the size is unknown and only the byte count is shown.
func NewDownloadBar(out io.Writer, label string) *DownloadBar {
	if out == nil {
		out = os.Stdout
	}
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	if isTTY {
		// disable focus reporting so ^[[I/^[[O don't land mid-bar
		fmt.Fprint(out, "\033[?1004l")
		FlushStdinWithTimeout(30 * time.Millisecond)
	}
	return &DownloadBar{
		out:       out,
		label:     label,
		startTime: time.Now(),
		isTTY:     isTTY,
		lastPct:   -1,
		indent:    "  ",
	}
}

// Update records progress. It matches fetch.ProgressFunc.
func (p *DownloadBar) Update(current, total int64) {
	p.current = current
	p.total = total

	now := time.Now()
	if p.isTTY && now.Sub(p.lastUpdate) < 100*time.Millisecond {
		return
	}
	p.lastUpdate = now

	if p.total <= 0 {
		fmt.Fprintf(p.out, "\r%s%s %s\033[K", p.indent, p.label, FormatBytes(current))
		return
	}

	pct := float64(current) / float64(p.total) * 100
	if p.isTTY {
		p.renderTTY(pct)
		return
	}
	threshold := float64(int(pct/10) * 10)
	if threshold > p.lastPct {
		p.lastPct = threshold
		fmt.Fprintf(p.out, "%s%s %.0f%%\n", p.indent, p.label, threshold)
	}
}

func (p *DownloadBar) renderTTY(pct float64) {
	elapsed := time.Since(p.startTime).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(p.current) / elapsed
	}

	eta := "0s"
	if speed > 0 && p.current < p.total {
		eta = FormatDuration(time.Duration(float64(p.total-p.current) / speed * float64(time.Second)))
	}

	width := 80
	if f, ok := p.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	barWidth := max(10, min(40, width-56-len(p.indent)))
	filled := max(0, min(barWidth, int(pct/100*float64(barWidth))))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Fprintf(p.out, "\r%s[%s] %5.1f%%   %s/%s   %s   ETA %s\033[K",
		p.indent,
		bar,
		pct,
		FormatBytes(p.current),
		FormatBytes(p.total),
		FormatSpeed(speed),
		eta,
	)
}

// Finish completes the bar and moves to the next line.
func (p *DownloadBar) Finish() {
	switch {
	case p.isTTY:
		if p.total > 0 {
			p.current = p.total
			p.renderTTY(100)
		}
		fmt.Fprintln(p.out)
		FlushStdinWithTimeout(30 * time.Millisecond)
	case p.total <= 0:
		fmt.Fprintln(p.out)
	case p.lastPct < 100:
		fmt.Fprintf(p.out, "%s%s 100%%\n", p.indent, p.label)
	}
}

// ExtractBar counts archive entries as they are written. Tar archives have
// no index, so their total is unknown and the bar runs as a counter.
type ExtractBar struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func NewExtractBar(out io.Writer, description string) *ExtractBar {
	if out == nil {
		out = os.Stdout
	}
	return &ExtractBar{out: out, bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)}
}

// Update matches extract.ProgressFunc.
func (e *ExtractBar) Update(current, total int64, _ string) {
	if total > 0 && e.bar.GetMax64() != total {
		e.bar.ChangeMax64(total)
	}
	_ = e.bar.Set64(current)
}

func (e *ExtractBar) Finish() {
	_ = e.bar.Finish()
	fmt.Fprintln(e.out)
}
