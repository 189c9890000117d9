package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/flowgraph/internal/config"
	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/internal/presentation/tui"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}


// NewLogger configures the application logger.
// With debug set it logs at debug level regardless of the configuration;
// a quiet run discards everything.
func NewLogger(cfg config.Config, debug, quiet bool) *slog.Logger {
	if quiet {
		return logging.NewNop()
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		format = logging.FormatText
	}
	if debug {
		return logging.New(os.Stderr, slog.LevelDebug, format)
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.New(os.Stderr, level, format)
}

// Output selects how command results are written.
type Output string

const (
	OutputText     Output = "text"
	OutputJSON     Output = "json"
	OutputMarkdown Output = "markdown"
)

// ParseOutput validates an --output flag value.
func ParseOutput(s string) (Output, error) {
	switch o := Output(s); o {
	case OutputText, OutputJSON, OutputMarkdown:
		return o, nil
	default:
		return "", fmt.Errorf("unknown output %q (text, json, markdown)", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Emit writes a command result. JSON output encodes v; markdown output
// prints md as is; text output renders md with glamour when w is a terminal.
func Emit(w io.Writer, out Output, v any, md string) error {
	switch out {
	case OutputJSON:
		return WriteJSON(w, v)
	case OutputMarkdown:
		_, err := io.WriteString(w, md)
		return err
	}
	if f, ok := w.(*os.File); ok && tui.IsTerminal(f) {
		rendered, err := tui.NewRenderer()(md)
		if err == nil {
			md = rendered
		}
	}
	_, err := io.WriteString(w, md)
	return err
}
