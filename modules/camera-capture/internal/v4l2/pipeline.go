package v4l2

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// PipelineConfig contains configuration for GStreamer camera pipeline creation
type PipelineConfig struct {
	Device      string // V4L2 device node, e.g. /dev/video0
	Width       int
	Height      int
	JPEGQuality int  // 1-100
	Mirror      bool // horizontal flip so frames match a mirrored preview
}

// PipelineElements holds references to GStreamer pipeline elements
// needed for callbacks and cleanup
type PipelineElements struct {
	Pipeline *gst.Pipeline
	AppSink  *app.Sink
	Source   *gst.Element
}

// CreatePipeline creates and configures a GStreamer pipeline for a local camera
//
// Pipeline structure:
//
//	v4l2src → videoconvert → videoscale → capsfilter → [videoflip] → jpegenc → appsink
//
// The pipeline is configured but NOT started (state remains NULL).
// Caller must call pipeline.SetState(gst.StatePlaying) to start.
func CreatePipeline(cfg PipelineConfig) (*PipelineElements, error) {
	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("failed to create v4l2src: %w", err)
	}
	src.SetProperty("device", cfg.Device)
	src.SetProperty("do-timestamp", true)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	// Preferred resolution: the camera may deliver something else, videoscale
	// brings it to the requested size so the encoded still is predictable.
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsStr := buildRawCaps(cfg.Width, cfg.Height)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	var flip *gst.Element
	if cfg.Mirror {
		flip, err = gst.NewElement("videoflip")
		if err != nil {
			return nil, fmt.Errorf("failed to create videoflip: %w", err)
		}
		flip.SetArg("method", "horizontal-flip")
	}

	encoder, err := gst.NewElement("jpegenc")
	if err != nil {
		return nil, fmt.Errorf("failed to create jpegenc: %w", err)
	}
	encoder.SetProperty("quality", cfg.JPEGQuality)

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)    // No sync with clock (real-time)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)     // Drop old frames

	chain := []*gst.Element{src, converter, scaler, capsfilter}
	if flip != nil {
		chain = append(chain, flip)
	}
	chain = append(chain, encoder, appsink.Element)

	if err := pipeline.AddMany(chain...); err != nil {
		return nil, fmt.Errorf("failed to add pipeline elements: %w", err)
	}
	if err := gst.ElementLinkMany(chain...); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	slog.Debug("v4l2: camera pipeline created",
		"device", cfg.Device,
		"caps", capsStr,
		"mirror", cfg.Mirror,
		"jpeg_quality", cfg.JPEGQuality,
	)

	return &PipelineElements{
		Pipeline: pipeline,
		AppSink:  appsink,
		Source:   src,
	}, nil
}

// DestroyPipeline stops the pipeline and releases the device.
// Safe to call with nil elements.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}

	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}

	return nil
}

// Available reports whether GStreamer and the v4l2src plugin can be used
// on this host.
func Available() error {
	gst.Init(nil)

	elem, err := gst.NewElement("v4l2src")
	if err != nil {
		return fmt.Errorf("%w: v4l2src element not available: %v", ErrUnsupported, err)
	}
	elem.SetState(gst.StateNull)

	return nil
}

func buildRawCaps(width, height int) string {
	return fmt.Sprintf("video/x-raw,width=%d,height=%d", width, height)
}
