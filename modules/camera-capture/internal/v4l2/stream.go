package v4l2

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Stream is one open camera pipeline. It holds the device until Close.
type Stream struct {
	cfg      PipelineConfig
	elements *PipelineElements

	latest     atomic.Pointer[Frame]
	frameCount uint64
	bytesRead  uint64

	// ended is set on EOS or a fatal bus error; Latest reports no frame after that.
	ended     atomic.Bool
	lastError atomic.Pointer[string]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// StreamStats is a snapshot of pipeline counters.
type StreamStats struct {
	FrameCount uint64
	BytesRead  uint64
	Ended      bool
	LastError  string
}

// ProbeDevice opens and closes the device node to turn permission and
// missing-device conditions into a categorized error before GStreamer is involved.
func ProbeDevice(device string) error {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		category := ClassifyOpenError(err)
		return fmt.Errorf("%w: %s: %v", category.Sentinel(), device, err)
	}
	return f.Close()
}

// Open probes the device, builds the pipeline and waits until it reaches
// PLAYING (or fails, or startTimeout elapses).
func Open(ctx context.Context, cfg PipelineConfig, startTimeout time.Duration) (*Stream, error) {
	if err := ProbeDevice(cfg.Device); err != nil {
		return nil, err
	}

	elements, err := CreatePipeline(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPipeline, err)
	}

	s := &Stream{
		cfg:      cfg,
		elements: elements,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	callbackCtx := &CallbackContext{
		Latest:       &s.latest,
		FrameCounter: &s.frameCount,
		BytesRead:    &s.bytesRead,
		Width:        cfg.Width,
		Height:       cfg.Height,
	}
	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return OnNewSample(sink, callbackCtx)
		},
	})

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		_ = DestroyPipeline(elements)
		return nil, fmt.Errorf("%w: failed to start pipeline: %v", ErrPipeline, err)
	}

	if err := s.waitPlaying(ctx, startTimeout); err != nil {
		_ = DestroyPipeline(elements)
		return nil, err
	}

	s.wg.Add(1)
	go s.monitor()

	slog.Info("v4l2: camera pipeline playing",
		"device", cfg.Device,
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
	)

	return s, nil
}

// waitPlaying pops bus messages until the pipeline reports PLAYING or an error.
func (s *Stream) waitPlaying(ctx context.Context, timeout time.Duration) error {
	bus := s.elements.Pipeline.GetPipelineBus()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			category := ClassifyGStreamerError(gerr)
			slog.Error("v4l2: pipeline failed to start",
				"device", s.cfg.Device,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", category.String(),
			)
			return fmt.Errorf("%w: %s", category.Sentinel(), gerr.Error())

		case gst.MessageStateChanged:
			if msg.Source() != s.elements.Pipeline.GetName() {
				continue
			}
			_, newState := msg.ParseStateChanged()
			if newState == gst.StatePlaying {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: pipeline did not reach PLAYING within %s", ErrPipeline, timeout)
}

// monitor watches the bus for EOS and runtime errors. Either one ends the stream;
// the owner decides whether to re-acquire.
func (s *Stream) monitor() {
	defer s.wg.Done()

	bus := s.elements.Pipeline.GetPipelineBus()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("v4l2: end of stream received",
				"device", s.cfg.Device,
				"frames_processed", atomic.LoadUint64(&s.frameCount),
			)
			s.markEnded("end of stream")
			return

		case gst.MessageError:
			gerr := msg.ParseError()
			category := ClassifyGStreamerError(gerr)
			slog.Error("v4l2: pipeline error",
				"device", s.cfg.Device,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", category.String(),
				"frames_processed", atomic.LoadUint64(&s.frameCount),
			)
			s.markEnded(gerr.Error())
			return
		}
	}
}

func (s *Stream) markEnded(reason string) {
	s.lastError.Store(&reason)
	s.ended.Store(true)
	s.latest.Store(nil)
}

// Latest returns the most recent frame, or false if none has arrived yet or
// the stream has ended.
func (s *Stream) Latest() (Frame, bool) {
	if s.ended.Load() {
		return Frame{}, false
	}
	f := s.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Stats returns pipeline counters.
func (s *Stream) Stats() StreamStats {
	st := StreamStats{
		FrameCount: atomic.LoadUint64(&s.frameCount),
		BytesRead:  atomic.LoadUint64(&s.bytesRead),
		Ended:      s.ended.Load(),
	}
	if e := s.lastError.Load(); e != nil {
		st.LastError = *e
	}
	return st
}

// Close stops the monitor and tears the pipeline down. Idempotent.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(3 * time.Second):
			slog.Warn("v4l2: stop timeout exceeded, monitor may still be running")
		}

		s.latest.Store(nil)
		err = DestroyPipeline(s.elements)
		s.elements = nil

		slog.Info("v4l2: camera pipeline stopped",
			"device", s.cfg.Device,
			"frames_captured", atomic.LoadUint64(&s.frameCount),
			"bytes_read", atomic.LoadUint64(&s.bytesRead),
		)
	})
	return err
}
