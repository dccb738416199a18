package main

import "github.com/aebs/aebs/internal/ui"

func main() {
	// Must run before the first lipgloss render.
	ui.InitTerminal()

	Execute()
}
