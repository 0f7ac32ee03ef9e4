package core

import (
	"context"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/control"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/training"
)

// commandCallbacks binds control plane commands to service operations
func (s *Service) commandCallbacks() control.CommandCallbacks {
	return control.CommandCallbacks{
		OnGetStatus:    s.Status,
		OnStartCamera:  s.StartCamera,
		OnStopCamera:   s.StopCamera,
		OnStartCapture: s.StartCapture,
		OnStopCapture:  s.StopCapture,
		OnCaptureOnce:  s.CaptureOnce,
		OnClearText: func() error {
			s.ClearText()
			return nil
		},
		OnRestoreHistory: func(entry string) error {
			_, err := s.RestoreFromHistory(entry)
			return err
		},
		OnCopyText: s.CopyText,
		OnSetMode: func(ctx context.Context, mode string) error {
			_, err := s.SetMode(ctx, mode)
			return err
		},
		OnTranslate: func(ctx context.Context, text string) (map[string]interface{}, error) {
			snap, err := s.Translate(ctx, text)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"input":           snap.Input,
				"signs":           snap.Signs,
				"unmatched_words": snap.UnmatchedWords,
			}, nil
		},
		OnClearTranslation: func() error {
			s.ClearTranslation()
			return nil
		},
		OnStartTraining: func(gesture string) (map[string]interface{}, error) {
			p, err := s.StartTraining(gesture)
			if err != nil {
				return nil, err
			}
			return progressData(p), nil
		},
		OnStopTraining: func() (map[string]interface{}, error) {
			return progressData(s.StopTraining()), nil
		},
		OnTrainModel: s.TrainModel,
	}
}

func progressData(p training.Progress) map[string]interface{} {
	return map[string]interface{}{
		"gesture":    p.Gesture,
		"session_id": p.SessionID,
		"recording":  p.Recording,
		"count":      p.Count,
		"target":     p.Target,
		"percent":    p.Percent,
	}
}
