package core

import (
	cameracapture "github.com/jubileetitus07/isl-bridge-dynamic-words/modules/camera-capture"
	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/framesampler"
)

// cameraSource feeds samplers from the camera: ready while the camera is
// Active, one frame per Sample.
type cameraSource struct {
	camera cameracapture.CameraProvider
}

func (s cameraSource) Ready() bool {
	return s.camera.Status().IsActive()
}

func (s cameraSource) Sample() (*framesampler.Frame, bool) {
	f, ok := s.camera.CaptureFrame()
	if !ok {
		return nil, false
	}
	return &framesampler.Frame{
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
		Data:      f.Data,
		TraceID:   f.TraceID,
	}, true
}
