// Package training records labelled frames for a gesture and triggers model
// training on the remote service.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

const (
	DefaultInterval      = 500 * time.Millisecond
	DefaultTargetSamples = 20

	statusSuccess = "success"
)

var (
	ErrEmptyGesture       = errors.New("training: gesture name required")
	ErrRecording          = errors.New("training: already recording")
	ErrTrainingInProgress = errors.New("training: model training already in progress")
	ErrTrainingFailed     = errors.New("training: model training failed")
)

// Client is the remote side of the recorder.
type Client interface {
	RecordTrainingSample(ctx context.Context, jpeg []byte, gesture, sessionID string) (*signclient.StatusResult, error)
	TrainModel(ctx context.Context) (*signclient.StatusResult, error)
}

// Publisher receives a notification after every state change.
type Publisher interface {
	Publish(u updatebus.Update)
}

// Config contains recorder settings.
type Config struct {
	Interval      time.Duration
	TargetSamples int
	CallTimeout   time.Duration
}

// Progress is a snapshot of the recorder.
type Progress struct {
	Gesture   string         `json:"gesture" msgpack:"gesture"`
	SessionID string         `json:"session_id,omitempty" msgpack:"session_id,omitempty"`
	Recording bool           `json:"recording" msgpack:"recording"`
	Training  bool           `json:"training" msgpack:"training"`
	Count     int            `json:"count" msgpack:"count"`
	Target    int            `json:"target" msgpack:"target"`
	Percent   float64        `json:"percent" msgpack:"percent"`
	Counts    map[string]int `json:"counts" msgpack:"counts"`
}

// Recorder samples frames for one gesture at a time through its own
// single-flight sampler.
type Recorder struct {
	cfg     Config
	client  Client
	pub     Publisher
	sampler framesampler.Sampler

	mu        sync.Mutex
	gesture   string
	sessionID string
	recording bool
	training  bool
	counts    map[string]int
}

// NewRecorder creates an idle recorder reading frames from src. pub is optional.
func NewRecorder(cfg Config, client Client, src framesampler.Source, pub Publisher) (*Recorder, error) {
	if client == nil {
		return nil, fmt.Errorf("training: client is required")
	}
	if cfg.TargetSamples < 0 {
		return nil, fmt.Errorf("training: target samples must not be negative")
	}
	if cfg.TargetSamples == 0 {
		cfg.TargetSamples = DefaultTargetSamples
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	r := &Recorder{
		cfg:    cfg,
		client: client,
		pub:    pub,
		counts: make(map[string]int),
	}

	sampler, err := framesampler.New(framesampler.Config{
		Name:        "training",
		Interval:    cfg.Interval,
		CallTimeout: cfg.CallTimeout,
	}, src, r)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	r.sampler = sampler
	return r, nil
}

func newSessionID() string {
	return "session_" + uuid.NewString()
}

// StartRecording begins periodic sampling for gesture under a new session id.
func (r *Recorder) StartRecording(gesture string) (Progress, error) {
	gesture = strings.TrimSpace(gesture)
	if gesture == "" {
		return Progress{}, ErrEmptyGesture
	}

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return Progress{}, ErrRecording
	}
	r.gesture = gesture
	r.sessionID = newSessionID()
	r.recording = true
	r.mu.Unlock()

	if err := r.sampler.StartCapture(); err != nil {
		r.mu.Lock()
		r.recording = false
		r.sessionID = ""
		r.mu.Unlock()
		return Progress{}, fmt.Errorf("training: start recording: %w", err)
	}

	p := r.Progress()
	slog.Info("training: recording started",
		"gesture", p.Gesture,
		"session_id", p.SessionID,
		"count", p.Count,
		"target", p.Target,
	)
	r.publish(p)
	return p, nil
}

// StopRecording ends recording early. Idempotent.
func (r *Recorder) StopRecording() Progress {
	r.sampler.StopCapture()

	r.mu.Lock()
	wasRecording := r.recording
	r.recording = false
	r.sessionID = ""
	r.mu.Unlock()

	p := r.Progress()
	if wasRecording {
		slog.Info("training: recording stopped", "gesture", p.Gesture, "count", p.Count)
		r.publish(p)
	}
	return p
}

// CaptureSample records one sample for gesture now. Not allowed while
// recording.
func (r *Recorder) CaptureSample(ctx context.Context, gesture string) (Progress, error) {
	gesture = strings.TrimSpace(gesture)
	if gesture == "" {
		return Progress{}, ErrEmptyGesture
	}

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return Progress{}, ErrRecording
	}
	r.gesture = gesture
	r.mu.Unlock()

	if err := r.sampler.CaptureOnce(ctx); err != nil {
		return Progress{}, fmt.Errorf("training: capture sample: %w", err)
	}
	return r.Progress(), nil
}

// Process uploads one frame. Implements framesampler.Worker.
func (r *Recorder) Process(ctx context.Context, frame *framesampler.Frame) (framesampler.Apply, error) {
	r.mu.Lock()
	gesture, sessionID := r.gesture, r.sessionID
	r.mu.Unlock()

	if gesture == "" {
		return nil, ErrEmptyGesture
	}
	if sessionID == "" {
		sessionID = newSessionID()
	}

	res, err := r.client.RecordTrainingSample(ctx, frame.Data, gesture, sessionID)
	if err != nil {
		return nil, err
	}

	return func() bool {
		return r.recordResult(gesture, res)
	}, nil
}

// recordResult counts a successful sample and reports whether the target was
// reached while recording.
func (r *Recorder) recordResult(gesture string, res *signclient.StatusResult) bool {
	if res == nil || res.Status != statusSuccess {
		slog.Warn("training: sample not accepted", "gesture", gesture, "status", statusOf(res))
		return false
	}

	r.mu.Lock()
	r.counts[gesture]++
	count := r.counts[gesture]
	reached := r.recording && count >= r.cfg.TargetSamples
	if reached {
		r.recording = false
		r.sessionID = ""
	}
	r.mu.Unlock()

	if reached {
		slog.Info("training: target reached, recording complete", "gesture", gesture, "count", count)
	}
	r.publish(r.Progress())
	return reached
}

func statusOf(res *signclient.StatusResult) string {
	if res == nil {
		return ""
	}
	return res.Status
}

// TrainModel asks the service to train on the recorded samples.
func (r *Recorder) TrainModel(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.training {
		r.mu.Unlock()
		return "", ErrTrainingInProgress
	}
	r.training = true
	r.mu.Unlock()
	r.publish(r.Progress())

	defer func() {
		r.mu.Lock()
		r.training = false
		r.mu.Unlock()
		r.publish(r.Progress())
	}()

	res, err := r.client.TrainModel(ctx)
	if err != nil {
		return "", fmt.Errorf("training: train model: %w", err)
	}
	if res.Status != statusSuccess {
		msg := res.Message
		if msg == "" {
			msg = "Failed to train model"
		}
		return "", fmt.Errorf("%w: %s", ErrTrainingFailed, msg)
	}

	slog.Info("training: model trained", "message", res.Message)
	return res.Message, nil
}

// Progress returns the recorder state.
func (r *Recorder) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}

	count := r.counts[r.gesture]
	percent := float64(count) / float64(r.cfg.TargetSamples) * 100
	if percent > 100 {
		percent = 100
	}

	return Progress{
		Gesture:   r.gesture,
		SessionID: r.sessionID,
		Recording: r.recording,
		Training:  r.training,
		Count:     count,
		Target:    r.cfg.TargetSamples,
		Percent:   percent,
		Counts:    counts,
	}
}

// Stats returns the recorder's sampler statistics.
func (r *Recorder) Stats() framesampler.SamplerStats {
	return r.sampler.Stats()
}

// Close stops recording and waits for an outstanding upload.
func (r *Recorder) Close() error {
	r.StopRecording()
	return r.sampler.Close()
}

func (r *Recorder) publish(p Progress) {
	if r.pub == nil {
		return
	}
	r.pub.Publish(updatebus.Update{Kind: updatebus.KindTraining, Payload: p})
}
