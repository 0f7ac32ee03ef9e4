// Package cameracapture owns the local camera device and exposes a
// frame-capture primitive for the recognition loop.
//
// # Overview
//
// A Manager holds at most one open device at a time. Acquire opens the V4L2
// camera through a GStreamer pipeline and blocks until it is playing; Release
// stops it. While active, the pipeline continuously encodes mirrored JPEG stills
// into a latest-only slot, and CaptureFrame hands out the newest one without
// touching the device.
//
//	v4l2src → videoconvert → videoscale → capsfilter(640x480) → videoflip → jpegenc → appsink
//	                                                                                     │
//	                                                              latest-frame slot ◄────┘
//	                                                                     │
//	                                                          CaptureFrame() (non-blocking)
//
// # Session state
//
// The session is a single State value rather than independent flags:
//
//	Idle ──Acquire──► Acquiring ──ok──► Active ──Release──► Idle
//	                      │                │
//	                      │            stream ended
//	                      │                ▼
//	                      └──fail──► Error ──Acquire──► Acquiring
//
// An Active session whose pipeline hits end of stream or a runtime bus error
// (camera unplugged) is moved to Error with ErrStreamEnded the next time
// CaptureFrame or Acquire looks at it.
//
// Error is not terminal: permission denial, a missing device node or a busy
// device are all reported through Status().LastError and the caller may retry.
// The only permanent failure is a platform without camera capability
// (Status().Supported == false), where Acquire short-circuits with
// ErrUnsupported and never touches a device.
//
// # Basic Usage
//
//	cam, err := cameracapture.NewManager(cameracapture.DefaultConfig(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cam.Acquire(ctx); err != nil {
//	    log.Printf("camera: %s", cam.Status().LastError)
//	}
//	defer cam.Release()
//
//	if frame, ok := cam.CaptureFrame(); ok {
//	    send(frame.Data) // JPEG bytes
//	}
//
// # Testing
//
// The Device and Source interfaces isolate GStreamer. Tests pass their own
// Device to NewManager; nothing in this package's tests needs a camera.
package cameracapture
