package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/dictionary"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/recognition"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/texttosign"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/training"
	cameracapture "github.com/jubileetitus07/isl-bridge-dynamic-words/modules/camera-capture"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler"
)

// maxBody bounds request bodies; every request is a small JSON object.
const maxBody = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("httpapi: failed to write response", "error", err)
	}
}

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	var apiErr *signclient.APIError
	switch {
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, recognition.ErrInvalidMode),
		errors.Is(err, texttosign.ErrEmptyText),
		errors.Is(err, training.ErrEmptyGesture),
		errors.Is(err, dictionary.ErrInvalidSign):
		return http.StatusBadRequest
	case errors.Is(err, recognition.ErrNotInHistory):
		return http.StatusNotFound
	case errors.Is(err, framesampler.ErrNotReady),
		errors.Is(err, framesampler.ErrBusy),
		errors.Is(err, framesampler.ErrCapturing),
		errors.Is(err, framesampler.ErrNoFrame),
		errors.Is(err, framesampler.ErrStale),
		errors.Is(err, texttosign.ErrPending),
		errors.Is(err, training.ErrRecording),
		errors.Is(err, training.ErrTrainingInProgress),
		errors.Is(err, cameracapture.ErrAcquireInProgress),
		errors.Is(err, cameracapture.ErrReleasedDuringAcquire):
		return http.StatusConflict
	case errors.Is(err, training.ErrTrainingFailed):
		return http.StatusBadGateway
	case errors.Is(err, cameracapture.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, cameracapture.ErrPermissionDenied),
		errors.Is(err, cameracapture.ErrDeviceNotFound),
		errors.Is(err, cameracapture.ErrDeviceBusy),
		errors.Is(err, cameracapture.ErrPipeline),
		errors.Is(err, cameracapture.ErrStreamEnded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Warn("httpapi: request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON body into v. Writes a 400 and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Status())
}

// Camera

func (s *Server) handleStartCamera(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.StartCamera(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"camera_active": true})
}

func (s *Server) handleStopCamera(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.StopCamera(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"camera_active": false})
}

// Capture loop

func (s *Server) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.StartCapture(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"capturing": true})
}

func (s *Server) handleStopCapture(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.StopCapture(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"capturing": false})
}

func (s *Server) handleCaptureOnce(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.CaptureOnce(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.backend.Recognition())
}

// Recognition session

func (s *Server) handleRecognition(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Recognition())
}

func (s *Server) handleClearText(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.ClearText())
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entry string `json:"entry"`
	}
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.backend.RestoreFromHistory(req.Entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	copied, err := s.backend.CopyText()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"copied": copied})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.backend.SetMode(r.Context(), req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Text to sign

func (s *Server) handleTranslation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Translation())
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	snap, err := s.backend.Translate(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleClearTranslation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.ClearTranslation())
}

// Dictionary

func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	entries, err := s.backend.Dictionary(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []dictionary.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"signs": entries})
}

func (s *Server) handleAddSign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		ImagePath string `json:"image_path"`
	}
	if !decode(w, r, &req) {
		return
	}
	msg, err := s.backend.AddSign(r.Context(), req.Name, req.ImagePath)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": msg})
}

// Training

func (s *Server) handleTraining(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Training())
}

func (s *Server) handleStartTraining(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Gesture string `json:"gesture"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := s.backend.StartTraining(req.Gesture)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStopTraining(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.StopTraining())
}

func (s *Server) handleTrainingSample(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Gesture string `json:"gesture"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := s.backend.CaptureTrainingSample(r.Context(), req.Gesture)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleTrainModel(w http.ResponseWriter, r *http.Request) {
	msg, err := s.backend.TrainModel(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Overlay

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	data, err := s.backend.OverlayPNG()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
