package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the flowgraph ASCII art banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Teal/Indigo)
	lines := []struct {
		text  string
		color string
	}{
		{"   __ _                                 _     ", "#2dd4bf"},
		{"  / _| | _____      ____ _ _ __ __ _ _ __ | |__  ", "#38bdf8"},
		{" | |_| |/ _ \\ \\ /\\ / / _` | '__/ _` | '_ \\| '_ \\ ", "#60a5fa"},
		{" |  _| | (_) \\ V  V / (_| | | | (_| | |_) | | | |", "#818cf8"},
		{" |_| |_|\\___/ \\_/\\_/ \\__, |_|  \\__,_| .__/|_| |_|", "#a78bfa"},
		{"                     |___/          |_|          ", "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	}
	fmt.Fprintln(w)
}
