package core

import (
	"context"
	"log/slog"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/dictionary"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/recognition"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/texttosign"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/training"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

// CameraUpdate is the payload of camera updates
type CameraUpdate struct {
	State     string `json:"state" msgpack:"state"`
	LastError string `json:"last_error,omitempty" msgpack:"last_error,omitempty"`
	Supported bool   `json:"supported" msgpack:"supported"`
	Capturing bool   `json:"capturing" msgpack:"capturing"`
}

func (s *Service) publishCamera() {
	st := s.camera.Status()
	s.bus.Publish(updatebus.Update{
		Kind: updatebus.KindCamera,
		Payload: CameraUpdate{
			State:     st.State.String(),
			LastError: st.LastError,
			Supported: st.Supported,
			Capturing: s.sampler.IsCapturing(),
		},
	})
}

// Camera

// StartCamera acquires the camera. A no-op while Active.
func (s *Service) StartCamera(ctx context.Context) error {
	err := s.camera.Acquire(ctx)
	s.publishCamera()
	return err
}

// StopCamera forces both capture loops to Idle, then releases the camera.
// Cycles still in flight are discarded when they settle.
func (s *Service) StopCamera() error {
	s.sampler.StopCapture()
	s.recorder.StopRecording()

	err := s.camera.Release()
	s.overlay.Clear()
	s.publishCamera()
	return err
}

// Capture loop

// StartCapture starts the recognition loop. Requires an Active camera.
func (s *Service) StartCapture() error {
	if !s.camera.Status().IsActive() {
		return ErrNotActive
	}
	if err := s.sampler.StartCapture(); err != nil {
		return err
	}
	s.publishCamera()
	return nil
}

// StopCapture stops the recognition loop. Safe when idle.
func (s *Service) StopCapture() error {
	s.sampler.StopCapture()
	s.publishCamera()
	return nil
}

// CaptureOnce runs one recognition cycle and waits for it.
func (s *Service) CaptureOnce(ctx context.Context) error {
	if !s.camera.Status().IsActive() {
		return ErrNotActive
	}
	return s.sampler.CaptureOnce(ctx)
}

// Recognition session

func (s *Service) Recognition() recognition.Snapshot {
	return s.recognition.Snapshot()
}

func (s *Service) ClearText() recognition.Snapshot {
	s.recognition.ClearText()
	return s.recognition.Snapshot()
}

func (s *Service) RestoreFromHistory(entry string) (recognition.Snapshot, error) {
	if err := s.recognition.RestoreFromHistory(entry); err != nil {
		return recognition.Snapshot{}, err
	}
	return s.recognition.Snapshot(), nil
}

func (s *Service) CopyText() (bool, error) {
	return s.recognition.CopyToClipboard()
}

// SetMode switches the detection mode ("static" or "dynamic").
func (s *Service) SetMode(ctx context.Context, mode string) (recognition.Snapshot, error) {
	m, err := recognition.ParseMode(mode)
	if err != nil {
		return recognition.Snapshot{}, err
	}
	if err := s.recognition.SetMode(ctx, m); err != nil {
		return recognition.Snapshot{}, err
	}
	return s.recognition.Snapshot(), nil
}

// Text to sign

func (s *Service) Translation() texttosign.Snapshot {
	return s.translator.Snapshot()
}

func (s *Service) Translate(ctx context.Context, text string) (texttosign.Snapshot, error) {
	return s.translator.Translate(ctx, text)
}

func (s *Service) ClearTranslation() texttosign.Snapshot {
	s.translator.Clear()
	return s.translator.Snapshot()
}

// Dictionary

// Dictionary returns the signs whose name contains query (all when empty).
func (s *Service) Dictionary(ctx context.Context, query string) ([]dictionary.Entry, error) {
	return s.catalog.Filter(ctx, query)
}

func (s *Service) AddSign(ctx context.Context, name, imagePath string) (string, error) {
	return s.catalog.AddSign(ctx, name, imagePath)
}

// Training

func (s *Service) Training() training.Progress {
	return s.recorder.Progress()
}

// StartTraining records samples of gesture until the target is reached or
// StopTraining is called. Requires an Active camera.
func (s *Service) StartTraining(gesture string) (training.Progress, error) {
	if !s.camera.Status().IsActive() {
		return training.Progress{}, ErrNotActive
	}
	return s.recorder.StartRecording(gesture)
}

func (s *Service) StopTraining() training.Progress {
	return s.recorder.StopRecording()
}

func (s *Service) CaptureTrainingSample(ctx context.Context, gesture string) (training.Progress, error) {
	if !s.camera.Status().IsActive() {
		return training.Progress{}, ErrNotActive
	}
	return s.recorder.CaptureSample(ctx, gesture)
}

func (s *Service) TrainModel(ctx context.Context) (string, error) {
	msg, err := s.recorder.TrainModel(ctx)
	if err != nil {
		slog.Warn("core: model training failed", "error", err)
	}
	return msg, err
}

// Overlay

// OverlayPNG encodes the current overlay surface.
func (s *Service) OverlayPNG() ([]byte, error) {
	return s.overlay.PNG()
}
