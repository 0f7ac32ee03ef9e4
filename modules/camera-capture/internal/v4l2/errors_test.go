package v4l2

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"
)

// TestClassifyMessage checks the heuristics against messages v4l2src actually emits.
func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name  string
		msg   string
		debug string
		want  ErrorCategory
	}{
		{
			name:  "permission",
			msg:   "Could not open device '/dev/video0' for reading and writing.",
			debug: "system error: Permission denied",
			want:  ErrCategoryPermission,
		},
		{
			name:  "missing node",
			msg:   "Cannot identify device '/dev/video9'.",
			debug: "system error: No such file or directory",
			want:  ErrCategoryNotFound,
		},
		{
			name:  "busy",
			msg:   "Failed to allocate required memory.",
			debug: "Buffer pool activation failed: Device or resource busy",
			want:  ErrCategoryBusy,
		},
		{
			name:  "negotiation",
			msg:   "Internal data stream error.",
			debug: "streaming stopped, reason not-negotiated (-4)",
			want:  ErrCategoryNegotiation,
		},
		{
			name: "caps",
			msg:  "Device '/dev/video0' does not support the requested caps",
			want: ErrCategoryNegotiation,
		},
		{
			name: "unknown",
			msg:  "something odd happened",
			want: ErrCategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMessage(tt.msg, tt.debug)
			if got != tt.want {
				t.Errorf("ClassifyMessage() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"not exist", &fs.PathError{Op: "open", Path: "/dev/video9", Err: syscall.ENOENT}, ErrCategoryNotFound},
		{"no device", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.ENODEV}, ErrCategoryNotFound},
		{"permission", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EACCES}, ErrCategoryPermission},
		{"busy", &fs.PathError{Op: "open", Path: "/dev/video0", Err: syscall.EBUSY}, ErrCategoryBusy},
		{"nil", nil, ErrCategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyOpenError(tt.err); got != tt.want {
				t.Errorf("ClassifyOpenError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorCategory_Sentinel(t *testing.T) {
	if !errors.Is(ErrCategoryPermission.Sentinel(), ErrPermissionDenied) {
		t.Error("permission category should map to ErrPermissionDenied")
	}
	if !errors.Is(ErrCategoryNotFound.Sentinel(), ErrDeviceNotFound) {
		t.Error("not_found category should map to ErrDeviceNotFound")
	}
	if !errors.Is(ErrCategoryNegotiation.Sentinel(), ErrPipeline) {
		t.Error("negotiation category should map to ErrPipeline")
	}
}

func TestProbeDevice_Missing(t *testing.T) {
	err := ProbeDevice("/dev/definitely-not-a-camera-0")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("ProbeDevice() = %v, want ErrDeviceNotFound", err)
	}
}

func TestProbeDevice_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "video")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := ProbeDevice(f.Name()); err != nil {
		t.Fatalf("ProbeDevice(%s) = %v, want nil", f.Name(), err)
	}
}

func TestBuildRawCaps(t *testing.T) {
	got := buildRawCaps(640, 480)
	want := fmt.Sprintf("video/x-raw,width=%d,height=%d", 640, 480)
	if got != want {
		t.Errorf("buildRawCaps() = %q, want %q", got, want)
	}
}
