package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
	cameracapture "github.com/jubileetitus07/isl-bridge-dynamic-words/modules/camera-capture"
)

const version = "v0.1.0"

func main() {
	device := flag.String("device", "/dev/video0", "V4L2 device node")
	resolution := flag.String("resolution", "vga", "Resolution: vga, 720p, qvga")
	quality := flag.Int("jpeg-quality", 80, "JPEG quality (1-100)")
	mirror := flag.Bool("mirror", true, "Flip frames horizontally")
	interval := flag.Duration("interval", time.Second, "Time between captures")
	outputDir := flag.String("output", "", "Directory to save captured JPEGs (optional)")
	maxFrames := flag.Int("max-frames", 0, "Maximum frames to capture (0 = unlimited)")
	recognizeURL := flag.String("recognize", "", "Service base URL; when set each frame is sent to /sign-to-text")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("test-camera %s\n", version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	res, err := cameracapture.ParseResolution(*resolution)
	if err != nil {
		log.Fatalf("Invalid resolution: %v", err)
	}

	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	var client *signclient.Client
	if *recognizeURL != "" {
		client, err = signclient.New(signclient.Config{BaseURL: *recognizeURL})
		if err != nil {
			log.Fatalf("Invalid service URL: %v", err)
		}
	}

	fmt.Printf("\n")
	fmt.Printf("Camera Capture Test %s\n", version)
	fmt.Printf("  Device:       %s\n", *device)
	fmt.Printf("  Resolution:   %s\n", res)
	fmt.Printf("  JPEG quality: %d\n", *quality)
	fmt.Printf("  Mirror:       %v\n", *mirror)
	fmt.Printf("  Interval:     %s\n", *interval)
	if *outputDir != "" {
		fmt.Printf("  Output Dir:   %s\n", *outputDir)
	}
	if client != nil {
		fmt.Printf("  Recognize:    %s\n", client.BaseURL())
	}
	fmt.Printf("\n")

	cfg := cameracapture.DefaultConfig()
	cfg.Device = *device
	cfg.Resolution = res
	cfg.JPEGQuality = *quality
	cfg.Mirror = *mirror

	camera, err := cameracapture.NewManager(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create camera manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Acquiring camera...")
	if err := camera.Acquire(ctx); err != nil {
		log.Fatalf("Failed to acquire camera: %v (%s)", err, camera.Status().LastError)
	}
	slog.Info("Camera active")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	startTime := time.Now()
	captured, saved := 0, 0

loop:
	for {
		select {
		case <-sigChan:
			fmt.Printf("\nReceived interrupt signal, shutting down...\n")
			break loop

		case <-ticker.C:
			frame, ok := camera.CaptureFrame()
			if !ok {
				fmt.Printf("[%s] no frame ready\n", time.Now().Format("15:04:05"))
				continue
			}
			captured++

			fmt.Printf("[%s] Frame #%-6d | Seq: %-8d | Size: %6.1f KB | %dx%d\n",
				time.Now().Format("15:04:05"),
				captured,
				frame.Seq,
				float64(len(frame.Data))/1024,
				frame.Width, frame.Height,
			)

			if *outputDir != "" {
				if err := saveFrame(*outputDir, frame); err != nil {
					slog.Error("Failed to save frame", "error", err, "seq", frame.Seq)
				} else {
					saved++
				}
			}

			if client != nil {
				recognize(ctx, client, frame)
			}

			if *maxFrames > 0 && captured >= *maxFrames {
				fmt.Printf("\nReached maximum frames (%d), stopping...\n", *maxFrames)
				break loop
			}
		}
	}

	if err := camera.Release(); err != nil {
		slog.Error("Error releasing camera", "error", err)
	}

	stats := camera.Stats()
	fmt.Printf("\n")
	fmt.Printf("Final Statistics\n")
	fmt.Printf("  Uptime:          %s\n", time.Since(startTime).Round(time.Second))
	fmt.Printf("  Frames Captured: %d\n", stats.Captures)
	fmt.Printf("  Capture Misses:  %d\n", stats.CaptureMisses)
	if *outputDir != "" {
		fmt.Printf("  Frames Saved:    %d\n", saved)
	}
	for category, n := range stats.Errors {
		fmt.Printf("  Errors (%s): %d\n", category, n)
	}
	fmt.Printf("\n")
}

func recognize(ctx context.Context, client *signclient.Client, frame *cameracapture.Frame) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	res, err := client.Recognize(ctx, frame.Data)
	if err != nil {
		fmt.Printf("           recognize failed: %v\n", err)
		return
	}
	fmt.Printf("           sign=%q confidence=%.2f hand=%v latency=%s\n",
		res.Sign, res.Confidence, res.HandDetected, time.Since(start).Round(time.Millisecond))
}

// saveFrame writes the JPEG as-is
func saveFrame(outputDir string, frame *cameracapture.Frame) error {
	filename := fmt.Sprintf("frame_%06d_%s.jpg", frame.Seq, frame.Timestamp.Format("20060102_150405.000"))
	if err := os.WriteFile(filepath.Join(outputDir, filename), frame.Data, 0644); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
