// Package overlay renders hand landmarks onto a transparent surface the size
// of the video frame. The renderer keeps no state between calls other than
// the last rendered surface.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/internal/signclient"
)

var (
	thumbColor    = color.NRGBA{R: 255, A: 178}
	indexColor    = color.NRGBA{B: 255, A: 178}
	pinchColor    = color.NRGBA{R: 255, G: 255, A: 178}
	landmarkColor = color.NRGBA{G: 255, A: 200}
	boneColor     = color.NRGBA{R: 255, G: 255, B: 255, A: 160}
)

const (
	tipRadius      = 8
	pinchWidth     = 3
	landmarkRadius = 4
	boneWidth      = 2
)

// Renderer draws onto an RGBA surface. Safe for concurrent use.
type Renderer struct {
	mu        sync.RWMutex
	surface   *image.RGBA
	updatedAt time.Time
	points    int
}

// NewRenderer creates a transparent surface of width×height.
func NewRenderer(width, height int) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("overlay: invalid surface size %dx%d", width, height)
	}
	return &Renderer{surface: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

// Draw replaces the surface content with info. A nil info clears it.
func (r *Renderer) Draw(info *signclient.HandInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.surface.Bounds()
	r.surface = image.NewRGBA(b)
	r.updatedAt = time.Now()
	r.points = 0

	if info == nil {
		return
	}

	w, h := b.Dx(), b.Dy()
	toPixel := func(p signclient.Point) image.Point {
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for i := 0; i+1 < len(info.Landmarks); i++ {
		line(r.surface, toPixel(info.Landmarks[i]), toPixel(info.Landmarks[i+1]), boneWidth, boneColor)
	}
	for _, p := range info.Landmarks {
		disc(r.surface, toPixel(p), landmarkRadius, landmarkColor)
	}
	r.points += len(info.Landmarks)

	if info.ThumbTip != nil && info.IndexTip != nil {
		thumb, index := toPixel(*info.ThumbTip), toPixel(*info.IndexTip)
		disc(r.surface, thumb, tipRadius, thumbColor)
		disc(r.surface, index, tipRadius, indexColor)
		line(r.surface, thumb, index, pinchWidth, pinchColor)
		r.points += 2
	}
}

// Clear empties the surface.
func (r *Renderer) Clear() {
	r.Draw(nil)
}

// Resize changes the surface size and clears it.
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("overlay: invalid surface size %dx%d", width, height)
	}
	r.mu.Lock()
	r.surface = image.NewRGBA(image.Rect(0, 0, width, height))
	r.points = 0
	r.mu.Unlock()
	return nil
}

// Image returns a copy of the surface.
func (r *Renderer) Image() *image.RGBA {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := image.NewRGBA(r.surface.Bounds())
	copy(cp.Pix, r.surface.Pix)
	return cp
}

// PNG encodes the surface.
func (r *Renderer) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Image()); err != nil {
		return nil, fmt.Errorf("overlay: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Points returns the number of points drawn by the last Draw and when it ran.
func (r *Renderer) Points() (int, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.points, r.updatedAt
}

// disc fills a circle of radius rad centred on c.
func disc(img *image.RGBA, c image.Point, rad int, col color.Color) {
	for dy := -rad; dy <= rad; dy++ {
		for dx := -rad; dx <= rad; dx++ {
			if dx*dx+dy*dy <= rad*rad {
				img.Set(c.X+dx, c.Y+dy, col)
			}
		}
	}
}

// line draws a segment of the given width (Bresenham, stamped with discs).
func line(img *image.RGBA, a, b image.Point, width int, col color.Color) {
	rad := width / 2
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	e := dx + dy

	x, y := a.X, a.Y
	for {
		disc(img, image.Pt(x, y), rad, col)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
