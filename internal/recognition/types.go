package recognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

// Mode selects how the service interprets frames.
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStatic, ModeDynamic:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

var (
	ErrNotInHistory = errors.New("recognition: entry not in history")
	ErrInvalidMode  = errors.New("recognition: invalid detection mode")
	ErrNoClipboard  = errors.New("recognition: no clipboard available")
)

const (
	DefaultMinConfidence = 0.5
	DefaultHistorySize   = 10
)

// Config contains session settings.
type Config struct {
	// MinConfidence is the exclusive lower bound (0..1) for accepting a token.
	MinConfidence float64
	// HistorySize caps the number of cleared texts kept for restore.
	HistorySize int
}

// Signal is the auxiliary state replaced on every successful response.
type Signal struct {
	HandDetected bool `json:"hand_detected"`
	// Confidence is a percentage (0..100).
	Confidence      float64                     `json:"confidence"`
	GestureSequence *signclient.GestureSequence `json:"gesture_sequence,omitempty"`
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Text     string   `json:"text" msgpack:"text"`
	History  []string `json:"history" msgpack:"history"`
	Signal   Signal   `json:"signal" msgpack:"signal"`
	Mode     Mode     `json:"mode" msgpack:"mode"`
	LastSign string   `json:"last_sign,omitempty" msgpack:"last_sign,omitempty"`
}

// Recognizer is the remote side of the session.
type Recognizer interface {
	Recognize(ctx context.Context, jpeg []byte) (*signclient.RecognizeResult, error)
	ClearSequence(ctx context.Context) error
}

// OverlaySink receives landmark data to draw.
type OverlaySink interface {
	Draw(info *signclient.HandInfo)
}

// ClipboardSink receives text to copy.
type ClipboardSink interface {
	WriteText(text string) error
}

// Publisher receives a notification after every state change.
type Publisher interface {
	Publish(u updatebus.Update)
}
