package cameracapture

import (
	"context"
	"fmt"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/camera-capture/internal/v4l2"
)

// NewV4L2Device returns the GStreamer-backed Device for local V4L2 cameras
func NewV4L2Device() Device {
	return v4l2Device{}
}

type v4l2Device struct{}

func (v4l2Device) Available() error {
	return v4l2.Available()
}

func (v4l2Device) Open(ctx context.Context, cfg DeviceConfig) (Source, error) {
	stream, err := v4l2.Open(ctx, v4l2.PipelineConfig{
		Device:      cfg.Device,
		Width:       cfg.Width,
		Height:      cfg.Height,
		JPEGQuality: cfg.JPEGQuality,
		Mirror:      cfg.Mirror,
	}, cfg.StartTimeout)
	if err != nil {
		return nil, err
	}
	return &v4l2Source{stream: stream}, nil
}

// v4l2Source adapts the internal stream (internal Frame type) to Source
type v4l2Source struct {
	stream *v4l2.Stream
}

func (s *v4l2Source) Latest() (Frame, bool) {
	f, ok := s.stream.Latest()
	if !ok {
		return Frame{}, false
	}
	return Frame{
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
		Width:     f.Width,
		Height:    f.Height,
		Data:      f.Data,
		TraceID:   f.TraceID,
	}, true
}

func (s *v4l2Source) Err() error {
	st := s.stream.Stats()
	if !st.Ended {
		return nil
	}
	return fmt.Errorf("%w: %s (after %d frames)", ErrStreamEnded, st.LastError, st.FrameCount)
}

func (s *v4l2Source) Close() error {
	return s.stream.Close()
}
