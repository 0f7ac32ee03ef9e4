// Package texttosign holds the text-to-sign session: the submitted text, the
// matched sign tokens, unmatched words and a short list of recent submissions.
package texttosign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

var (
	ErrEmptyText = errors.New("texttosign: please enter some text to translate")
	ErrPending   = errors.New("texttosign: a translation is already in progress")
)

const DefaultRecentSize = 5

// Translator is the remote side of the session.
type Translator interface {
	TranslateText(ctx context.Context, text string) (*signclient.TranslateResult, error)
}

// Publisher receives a notification after every state change.
type Publisher interface {
	Publish(u updatebus.Update)
}

// Config contains session settings.
type Config struct {
	RecentSize int
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Input          string                 `json:"input" msgpack:"input"`
	Signs          []signclient.SignToken `json:"signs" msgpack:"signs"`
	UnmatchedWords []string               `json:"unmatched_words" msgpack:"unmatched_words"`
	Recent         []string               `json:"recent" msgpack:"recent"`
	Pending        bool                   `json:"pending" msgpack:"pending"`
}

// Session is the text-to-sign state. Safe for concurrent use.
type Session struct {
	cfg    Config
	client Translator
	pub    Publisher

	mu        sync.Mutex
	input     string
	signs     []signclient.SignToken
	unmatched []string
	recent    []string
	pending   bool
}

// NewSession creates an empty session. pub is optional.
func NewSession(cfg Config, client Translator, pub Publisher) (*Session, error) {
	if client == nil {
		return nil, fmt.Errorf("texttosign: translator is required")
	}
	if cfg.RecentSize < 0 {
		return nil, fmt.Errorf("texttosign: recent size must not be negative")
	}
	if cfg.RecentSize == 0 {
		cfg.RecentSize = DefaultRecentSize
	}
	return &Session{cfg: cfg, client: client, pub: pub}, nil
}

// Translate submits text as-is. Blank text is rejected without a call. On
// failure the previous results are kept.
func (s *Session) Translate(ctx context.Context, text string) (Snapshot, error) {
	if strings.TrimSpace(text) == "" {
		return Snapshot{}, ErrEmptyText
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return Snapshot{}, ErrPending
	}
	s.pending = true
	s.input = text
	s.mu.Unlock()

	res, err := s.client.TranslateText(ctx, text)

	s.mu.Lock()
	s.pending = false
	if err != nil {
		s.mu.Unlock()
		slog.Warn("texttosign: translation failed", "error", err)
		return Snapshot{}, fmt.Errorf("texttosign: translate: %w", err)
	}

	s.signs = append([]signclient.SignToken(nil), res.Signs...)
	s.unmatched = append([]string(nil), res.UnmatchedWords...)
	s.recent = remember(s.recent, text, s.cfg.RecentSize)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	slog.Debug("texttosign: translated",
		"signs", len(snap.Signs),
		"unmatched", len(snap.UnmatchedWords),
	)

	s.publish(snap)
	return snap, nil
}

// remember prepends text to recent unless already present (no reordering on
// repeat), truncating to size.
func remember(recent []string, text string, size int) []string {
	for _, r := range recent {
		if r == text {
			return recent
		}
	}
	out := make([]string, 0, size)
	out = append(out, text)
	for _, r := range recent {
		if len(out) == size {
			break
		}
		out = append(out, r)
	}
	return out
}

// Clear empties the input and results. Recent submissions are kept.
func (s *Session) Clear() {
	s.mu.Lock()
	s.input = ""
	s.signs = nil
	s.unmatched = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

// Recent returns the recent submissions, most recent first.
func (s *Session) Recent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recent...)
}

// Snapshot returns a copy of the full state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Input:          s.input,
		Signs:          append([]signclient.SignToken{}, s.signs...),
		UnmatchedWords: append([]string{}, s.unmatched...),
		Recent:         append([]string{}, s.recent...),
		Pending:        s.pending,
	}
}

func (s *Session) publish(snap Snapshot) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(updatebus.Update{Kind: updatebus.KindTranslation, Payload: snap})
}
