// Package httpapi exposes the bridge on a local HTTP listener: JSON endpoints
// for every service operation, the overlay surface as PNG and a websocket
// stream of session updates.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/dictionary"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/recognition"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/texttosign"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/training"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

// Backend is the service the API drives.
type Backend interface {
	Status() map[string]interface{}

	StartCamera(ctx context.Context) error
	StopCamera() error
	StartCapture() error
	StopCapture() error
	CaptureOnce(ctx context.Context) error

	Recognition() recognition.Snapshot
	ClearText() recognition.Snapshot
	RestoreFromHistory(entry string) (recognition.Snapshot, error)
	CopyText() (bool, error)
	SetMode(ctx context.Context, mode string) (recognition.Snapshot, error)

	Translation() texttosign.Snapshot
	Translate(ctx context.Context, text string) (texttosign.Snapshot, error)
	ClearTranslation() texttosign.Snapshot

	Dictionary(ctx context.Context, query string) ([]dictionary.Entry, error)
	AddSign(ctx context.Context, name, imagePath string) (string, error)

	Training() training.Progress
	StartTraining(gesture string) (training.Progress, error)
	StopTraining() training.Progress
	CaptureTrainingSample(ctx context.Context, gesture string) (training.Progress, error)
	TrainModel(ctx context.Context) (string, error)

	OverlayPNG() ([]byte, error)
}

// Config contains listener settings.
type Config struct {
	Addr string
}

// Server is the local HTTP surface.
type Server struct {
	cfg     Config
	backend Backend
	hub     *Hub
	router  *mux.Router
	started time.Time
}

// New builds the router. bus feeds the websocket stream.
func New(cfg Config, backend Backend, bus updatebus.Bus) (*Server, error) {
	if backend == nil {
		return nil, fmt.Errorf("httpapi: backend is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("httpapi: update bus is required")
	}

	s := &Server{
		cfg:     cfg,
		backend: backend,
		hub:     NewHub(bus),
		started: time.Now(),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/status", s.handleStatus).Methods("GET")

	r.HandleFunc("/camera/start", s.handleStartCamera).Methods("POST")
	r.HandleFunc("/camera/stop", s.handleStopCamera).Methods("POST")

	r.HandleFunc("/capture/start", s.handleStartCapture).Methods("POST")
	r.HandleFunc("/capture/stop", s.handleStopCapture).Methods("POST")
	r.HandleFunc("/capture/once", s.handleCaptureOnce).Methods("POST")

	r.HandleFunc("/recognition", s.handleRecognition).Methods("GET")
	r.HandleFunc("/recognition/clear", s.handleClearText).Methods("POST")
	r.HandleFunc("/recognition/restore", s.handleRestore).Methods("POST")
	r.HandleFunc("/recognition/copy", s.handleCopy).Methods("POST")
	r.HandleFunc("/recognition/mode", s.handleSetMode).Methods("POST")

	r.HandleFunc("/translation", s.handleTranslation).Methods("GET")
	r.HandleFunc("/translation", s.handleTranslate).Methods("POST")
	r.HandleFunc("/translation/clear", s.handleClearTranslation).Methods("POST")

	r.HandleFunc("/dictionary", s.handleDictionary).Methods("GET")
	r.HandleFunc("/dictionary", s.handleAddSign).Methods("POST")

	r.HandleFunc("/training", s.handleTraining).Methods("GET")
	r.HandleFunc("/training/start", s.handleStartTraining).Methods("POST")
	r.HandleFunc("/training/stop", s.handleStopTraining).Methods("POST")
	r.HandleFunc("/training/sample", s.handleTrainingSample).Methods("POST")
	r.HandleFunc("/training/train", s.handleTrainModel).Methods("POST")

	r.HandleFunc("/overlay.png", s.handleOverlay).Methods("GET")
	r.HandleFunc("/ws", s.hub.ServeWS).Methods("GET")

	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("httpapi: listening", "addr", s.cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi: serve: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	slog.Info("httpapi: stopped")
	return nil
}
