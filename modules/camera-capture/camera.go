package cameracapture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Manager implements CameraProvider. It is the only owner of the device handle.
type Manager struct {
	cfg    Config
	device Device
	width  int
	height int

	mu        sync.RWMutex
	state     State
	lastError string
	supported bool
	source    Source

	// Statistics (atomic for thread-safety)
	acquisitions   uint64
	failedAcquires uint64
	captures       uint64
	captureMisses  uint64
	lastFrameAt    atomic.Int64 // unix nanos of newest frame handed out

	errMu  sync.Mutex
	errors map[string]uint64
}

// NewManager creates a camera manager with fail-fast validation
//
// Validates configuration at construction time:
//   - Device must not be empty
//   - JPEG quality must be between 1 and 100
//   - StartTimeout must be positive
//
// When device is nil the GStreamer V4L2 device is used. If the device reports
// no camera capability the manager is created in StateError with
// Supported=false, and every Acquire fails with ErrUnsupported.
func NewManager(cfg Config, device Device) (*Manager, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("camera-capture: device is required")
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("camera-capture: invalid JPEG quality %d (must be 1-100)", cfg.JPEGQuality)
	}
	if cfg.StartTimeout <= 0 {
		return nil, fmt.Errorf("camera-capture: start timeout must be positive")
	}

	if device == nil {
		device = NewV4L2Device()
	}

	width, height := cfg.Resolution.Dimensions()

	m := &Manager{
		cfg:       cfg,
		device:    device,
		width:     width,
		height:    height,
		state:     StateIdle,
		supported: true,
		errors:    make(map[string]uint64),
	}

	if err := device.Available(); err != nil {
		m.supported = false
		m.state = StateError
		m.lastError = describe(fmt.Errorf("%w: %v", ErrUnsupported, err))
		m.countError(ErrUnsupported)
		slog.Warn("camera-capture: camera not supported", "error", err)
	}

	slog.Info("camera-capture: manager created",
		"device", cfg.Device,
		"resolution", cfg.Resolution.String(),
		"jpeg_quality", cfg.JPEGQuality,
		"mirror", cfg.Mirror,
		"supported", m.supported,
	)

	return m, nil
}

// Acquire opens the device and starts playback
//
// State transitions:
//
//	Idle/Error → Acquiring → Active   (success)
//	Idle/Error → Acquiring → Error    (failure, LastError set)
//	Active     → Active               (no-op while the stream is healthy)
//	Active     → Error → Acquiring      (stream ended, device reopened)
//
// The device is opened without holding the lock so Status() stays responsive
// while GStreamer negotiates. A concurrent Release during that window moves the
// session back to Idle; the freshly opened source is then closed here, so two
// handles are never held.
func (m *Manager) Acquire(ctx context.Context) error {
	m.mu.Lock()
	if !m.supported {
		m.mu.Unlock()
		return fmt.Errorf("camera-capture: %w", ErrUnsupported)
	}
	if m.state == StateActive && m.source != nil {
		err := m.source.Err()
		if err == nil {
			m.mu.Unlock()
			slog.Debug("camera-capture: already active, acquire is a no-op")
			return nil
		}
		m.endLocked(err)
	}
	if m.state == StateAcquiring {
		m.mu.Unlock()
		return ErrAcquireInProgress
	}
	m.state = StateAcquiring
	m.lastError = ""
	m.mu.Unlock()

	slog.Info("camera-capture: acquiring camera",
		"device", m.cfg.Device,
		"resolution", fmt.Sprintf("%dx%d", m.width, m.height),
	)

	src, err := m.device.Open(ctx, DeviceConfig{
		Device:       m.cfg.Device,
		Width:        m.width,
		Height:       m.height,
		JPEGQuality:  m.cfg.JPEGQuality,
		Mirror:       m.cfg.Mirror,
		StartTimeout: m.cfg.StartTimeout,
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAcquiring {
		// Released while we were opening
		if src != nil {
			if cerr := src.Close(); cerr != nil {
				slog.Warn("camera-capture: failed to close source after release", "error", cerr)
			}
		}
		return ErrReleasedDuringAcquire
	}

	if err != nil {
		m.state = StateError
		m.lastError = describe(err)
		atomic.AddUint64(&m.failedAcquires, 1)
		m.countError(err)
		slog.Error("camera-capture: failed to acquire camera",
			"device", m.cfg.Device,
			"error", err,
			"category", errorCategory(err),
		)
		return fmt.Errorf("camera-capture: acquire %s: %w", m.cfg.Device, err)
	}

	m.source = src
	m.state = StateActive
	atomic.AddUint64(&m.acquisitions, 1)

	slog.Info("camera-capture: camera active", "device", m.cfg.Device)

	return nil
}

// Release stops the device and returns the session to Idle. Idempotent.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.supported {
		return nil
	}

	src := m.source
	m.source = nil
	wasState := m.state
	if m.state == StateActive || m.state == StateAcquiring {
		m.state = StateIdle
	}

	if src == nil {
		if wasState == StateAcquiring {
			slog.Info("camera-capture: release requested during acquisition")
		}
		return nil
	}

	if err := src.Close(); err != nil {
		slog.Error("camera-capture: failed to stop device", "device", m.cfg.Device, "error", err)
		return fmt.Errorf("camera-capture: release %s: %w", m.cfg.Device, err)
	}

	slog.Info("camera-capture: camera released", "device", m.cfg.Device)
	return nil
}

// CaptureFrame returns the newest frame if the camera is active and the
// surface is ready. Never blocks on the device.
func (m *Manager) CaptureFrame() (*Frame, bool) {
	m.mu.RLock()
	src := m.source
	active := m.state == StateActive
	m.mu.RUnlock()

	if !active || src == nil {
		atomic.AddUint64(&m.captureMisses, 1)
		return nil, false
	}

	frame, ok := src.Latest()
	if !ok || len(frame.Data) == 0 {
		atomic.AddUint64(&m.captureMisses, 1)
		if err := src.Err(); err != nil {
			m.mu.Lock()
			if m.source == src {
				m.endLocked(err)
			}
			m.mu.Unlock()
			return nil, false
		}
		slog.Debug("camera-capture: surface not ready")
		return nil, false
	}

	if m.cfg.FrameStaleAfter > 0 && time.Since(frame.Timestamp) > m.cfg.FrameStaleAfter {
		atomic.AddUint64(&m.captureMisses, 1)
		slog.Debug("camera-capture: newest frame is stale",
			"seq", frame.Seq,
			"age", time.Since(frame.Timestamp),
		)
		return nil, false
	}

	atomic.AddUint64(&m.captures, 1)
	m.lastFrameAt.Store(frame.Timestamp.UnixNano())

	return &frame, true
}

// endLocked drops a source whose stream has ended and records why. The
// session moves to Error so the next Acquire reopens the device.
// Caller must hold m.mu.
func (m *Manager) endLocked(err error) {
	src := m.source
	m.source = nil
	m.state = StateError
	m.lastError = describe(err)
	m.countError(err)

	slog.Error("camera-capture: camera stream ended",
		"device", m.cfg.Device,
		"error", err,
		"category", errorCategory(err),
	)

	if cerr := src.Close(); cerr != nil {
		slog.Warn("camera-capture: failed to close ended source", "error", cerr)
	}
}

// Status returns the current session state
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Status{
		State:     m.state,
		LastError: m.lastError,
		Supported: m.supported,
	}
}

// Stats returns camera telemetry
func (m *Manager) Stats() CameraStats {
	var age time.Duration
	if ns := m.lastFrameAt.Load(); ns != 0 {
		age = time.Since(time.Unix(0, ns))
	}

	m.errMu.Lock()
	errs := make(map[string]uint64, len(m.errors))
	for k, v := range m.errors {
		errs[k] = v
	}
	m.errMu.Unlock()

	return CameraStats{
		Acquisitions:       atomic.LoadUint64(&m.acquisitions),
		FailedAcquisitions: atomic.LoadUint64(&m.failedAcquires),
		Captures:           atomic.LoadUint64(&m.captures),
		CaptureMisses:      atomic.LoadUint64(&m.captureMisses),
		LastFrameAge:       age,
		Errors:             errs,
		Resolution:         fmt.Sprintf("%dx%d", m.width, m.height),
	}
}

func (m *Manager) countError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	m.errMu.Lock()
	m.errors[errorCategory(err)]++
	m.errMu.Unlock()
}
