// Package clipboard is the copy sink for recognized text.
package clipboard

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("clipboard: no system clipboard available")

// Sink accepts text for copy.
type Sink interface {
	WriteText(text string) error
	ReadText() (string, error)
}

var clipboardLock sync.Mutex

// System writes to the desktop clipboard (xclip/xsel/wl-clipboard on Linux).
type System struct{}

// NewSystem returns the system clipboard, or ErrUnsupported when no helper
// utility is installed.
func NewSystem() (*System, error) {
	if clipboard.Unsupported {
		return nil, ErrUnsupported
	}
	return &System{}, nil
}

func (System) WriteText(text string) error {
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: write: %w", err)
	}
	return nil
}

func (System) ReadText() (string, error) {
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("clipboard: read: %w", err)
	}
	return text, nil
}

// Memory keeps the copied text in process. Used on headless hosts.
type Memory struct {
	mu   sync.Mutex
	text string
}

func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

// New returns the system clipboard when available, else an in-process one.
func New() Sink {
	sys, err := NewSystem()
	if err != nil {
		slog.Warn("clipboard: system clipboard unavailable, copies stay in process", "error", err)
		return &Memory{}
	}
	return sys
}
