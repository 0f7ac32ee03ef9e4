package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/clipboard"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/config"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/control"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/dictionary"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/emitter"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/httpapi"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/overlay"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/recognition"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/texttosign"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/training"
	cameracapture "github.com/jubileetitus07/isl-bridge-dynamic-words/modules/camera-capture"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

const (
	statsInterval  = 30 * time.Second
	mqttSubscriber = "mqtt-emitter"
)

var (
	// ErrNotActive is returned by capture operations while the camera is not Active
	ErrNotActive = fmt.Errorf("core: camera not active: %w", framesampler.ErrNotReady)
	// ErrAlreadyRunning is returned by a second Run
	ErrAlreadyRunning = errors.New("core: service is already running")
)

// Options replaces the platform-facing parts of the service. Zero values
// select the real implementations.
type Options struct {
	// Device opens the camera (default: GStreamer V4L2)
	Device cameracapture.Device
	// Clipboard receives copied text (default: system clipboard or in-memory fallback)
	Clipboard clipboard.Sink
}

// Service is the bridge orchestrator. It owns the camera and every session.
type Service struct {
	cfg *config.Config

	client      *signclient.Client
	bus         updatebus.Bus
	camera      *cameracapture.Manager
	overlay     *overlay.Renderer
	recognition *recognition.Session
	sampler     framesampler.Sampler
	translator  *texttosign.Session
	recorder    *training.Recorder
	catalog     *dictionary.Catalog
	api         *httpapi.Server

	emitter        *emitter.MQTTEmitter
	controlHandler *control.Handler

	started   time.Time
	mu        sync.RWMutex
	isRunning bool
	cancelRun context.CancelFunc

	shutdownOnce sync.Once
}

// New builds the service from a validated configuration. Nothing touches the
// camera or the network until Run or an operation asks for it.
func New(cfg *config.Config, opts Options) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("core: config is required")
	}

	client, err := signclient.New(signclient.Config{
		BaseURL: cfg.Service.BaseURL,
		Timeout: cfg.Service.RequestTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	camCfg, err := cameraConfig(cfg.Camera)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	camera, err := cameracapture.NewManager(camCfg, opts.Device)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	width, height := camCfg.Resolution.Dimensions()
	renderer, err := overlay.NewRenderer(width, height)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.New()
	}

	bus := updatebus.New()

	session, err := recognition.NewSession(recognition.Config{
		MinConfidence: cfg.Recognition.MinConfidence,
		HistorySize:   cfg.Recognition.HistorySize,
	}, client, renderer, clip, bus)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	src := cameraSource{camera: camera}

	sampler, err := framesampler.New(framesampler.Config{
		Name:        "recognition",
		Interval:    cfg.Sampler.Interval(),
		CallTimeout: cfg.Sampler.CallTimeout(),
	}, src, session)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	translator, err := texttosign.NewSession(texttosign.Config{
		RecentSize: cfg.Translation.RecentSize,
	}, client, bus)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	recorder, err := training.NewRecorder(training.Config{
		Interval:      cfg.Training.Interval(),
		TargetSamples: cfg.Training.TargetSamples,
		CallTimeout:   cfg.Sampler.CallTimeout(),
	}, client, src, bus)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	catalog, err := dictionary.NewCatalog(dictionary.Config{
		TTL: cfg.Dictionary.CacheTTL(),
	}, client)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	s := &Service{
		cfg:         cfg,
		client:      client,
		bus:         bus,
		camera:      camera,
		overlay:     renderer,
		recognition: session,
		sampler:     sampler,
		translator:  translator,
		recorder:    recorder,
		catalog:     catalog,
	}

	if cfg.HTTP.Addr != "-" {
		s.api, err = httpapi.New(httpapi.Config{Addr: cfg.HTTP.Addr}, s, bus)
		if err != nil {
			return nil, fmt.Errorf("core: %w", err)
		}
	}

	if cfg.MQTT.Enabled() {
		s.emitter, err = emitter.NewMQTTEmitter(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("core: %w", err)
		}
	}

	slog.Info("core: service created",
		"instance_id", cfg.InstanceID,
		"service_url", client.BaseURL(),
		"http", cfg.HTTP.Addr,
		"mqtt", cfg.MQTT.Enabled(),
	)

	return s, nil
}

func cameraConfig(c config.CameraConfig) (cameracapture.Config, error) {
	res, err := cameracapture.ParseResolution(c.Resolution)
	if err != nil {
		return cameracapture.Config{}, err
	}
	cfg := cameracapture.DefaultConfig()
	cfg.Device = c.Device
	cfg.Resolution = res
	cfg.JPEGQuality = c.JPEGQuality
	if c.Mirror != nil {
		cfg.Mirror = *c.Mirror
	}
	cfg.StartTimeout = c.StartTimeout()
	cfg.FrameStaleAfter = c.FrameStaleAfter()
	return cfg, nil
}

// Run starts the optional surfaces (HTTP, MQTT) and blocks until ctx is
// cancelled or a surface fails.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.isRunning = true
	s.started = time.Now()
	ctx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel
	s.mu.Unlock()
	defer cancel()

	slog.Info("core: service starting", "instance_id", s.cfg.InstanceID)

	g, gctx := errgroup.WithContext(ctx)

	if s.api != nil {
		g.Go(func() error {
			return s.api.Run(gctx)
		})
	}

	if s.emitter != nil {
		if err := s.startMQTT(gctx, g); err != nil {
			cancel()
			g.Wait()
			return err
		}
	}

	if s.cfg.Camera.AutoStart {
		g.Go(func() error {
			if err := s.StartCamera(gctx); err != nil {
				slog.Warn("core: camera auto-start failed", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.logStats(gctx)
		return nil
	})

	slog.Info("core: service running",
		"http", s.api != nil,
		"mqtt", s.emitter != nil,
		"auto_start", s.cfg.Camera.AutoStart,
	)

	err := g.Wait()
	slog.Info("core: service run loop exiting")
	return err
}

func (s *Service) startMQTT(ctx context.Context, g *errgroup.Group) error {
	if err := s.emitter.Connect(ctx); err != nil {
		return fmt.Errorf("core: %w", err)
	}

	receiver, err := s.bus.SubscribeLatest(mqttSubscriber)
	if err != nil {
		return fmt.Errorf("core: subscribe emitter: %w", err)
	}
	g.Go(func() error {
		return s.emitter.Run(ctx, receiver)
	})

	s.controlHandler = control.NewHandler(s.cfg.MQTT, s.emitter.Client, s.commandCallbacks())
	if err := s.controlHandler.Start(ctx); err != nil {
		return fmt.Errorf("core: %w", err)
	}
	return nil
}

// logStats periodically logs sampler and bus telemetry
func (s *Service) logStats(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.sampler.Stats()
			bus := s.bus.BusStats()
			cam := s.camera.Stats()
			slog.Info("core: stats",
				"camera_state", s.camera.Status().State.String(),
				"captures", cam.Captures,
				"capture_misses", cam.CaptureMisses,
				"cycles_applied", st.CyclesApplied,
				"ticks_dropped_busy", st.TicksDroppedBusy,
				"failures", st.Failures,
				"stale_discarded", st.StaleDiscarded,
				"last_latency_ms", st.LastLatency.Milliseconds(),
				"updates_published", bus.TotalPublished,
				"update_drop_rate", updatebus.DropRate(bus),
			)
		}
	}
}

// Shutdown stops every loop, releases the camera and closes the cache. It
// gives up when ctx expires.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.shutdownOnce.Do(s.shutdown)
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("core: shutdown: %w", ctx.Err())
	}
}

func (s *Service) shutdown() {
	slog.Info("core: shutting down service")

	s.mu.Lock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.mu.Unlock()

	// 1. Loops first (they depend on camera frames)
	if err := s.recorder.Close(); err != nil {
		slog.Error("core: failed to close training recorder", "error", err)
	}
	if err := s.sampler.Close(); err != nil {
		slog.Error("core: failed to close sampler", "error", err)
	}

	// 2. Camera
	if err := s.camera.Release(); err != nil {
		slog.Error("core: failed to release camera", "error", err)
	}

	// 3. Control plane and MQTT
	if s.controlHandler != nil {
		if err := s.controlHandler.Stop(); err != nil {
			slog.Error("core: failed to stop control handler", "error", err)
		}
	}
	if s.emitter != nil {
		if err := s.emitter.Disconnect(); err != nil {
			slog.Error("core: failed to disconnect mqtt", "error", err)
		}
	}

	// 4. Cache and bus
	if err := s.catalog.Close(); err != nil {
		slog.Error("core: failed to close dictionary cache", "error", err)
	}
	s.bus.Close()

	s.mu.Lock()
	var uptime time.Duration
	if !s.started.IsZero() {
		uptime = time.Since(s.started)
	}
	s.isRunning = false
	s.mu.Unlock()

	slog.Info("core: service shutdown complete", "uptime", uptime)
}

// ShutdownTimeout returns the configured graceful shutdown timeout
func (s *Service) ShutdownTimeout() time.Duration {
	if t := s.cfg.ShutdownTimeout(); t > 0 {
		return t
	}
	return 5 * time.Second
}

// Bus returns the update bus.
func (s *Service) Bus() updatebus.Bus {
	return s.bus
}

// API returns the HTTP server, or nil when HTTP is disabled.
func (s *Service) API() *httpapi.Server {
	return s.api
}
