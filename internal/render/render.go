// Package render runs the per-frame pipeline: raw frames in from a capture
// source, composited output frames out to an encoder or preview. The export
// loop is playback-driven and terminates exactly when the source does; the
// preview loop is tick-driven and always shows the newest frame.
package render

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/framecast/framecast/internal/compose"
	"github.com/framecast/framecast/internal/models"
)

// FrameSink receives composited raw RGBA frames.
type FrameSink interface {
	WriteFrame(frame []byte) error
}

// Pipeline composites one captured frame into one output frame: letterboxed
// background, overlay, text layers, and the watermark when it applies.
type Pipeline struct {
	comp      *compose.Compositor
	layers    []models.TextLayer
	watermark string // empty means no watermark

	mu      sync.Mutex
	overlay image.Image
}

// NewPipeline creates a pipeline for the given output surface. The overlay
// may be nil when the asset has not resolved. A non-empty watermark label is
// stamped onto every frame.
func NewPipeline(width, height int, overlay image.Image, layers []models.TextLayer, watermark string) *Pipeline {
	return &Pipeline{
		comp:      compose.New(width, height),
		overlay:   overlay,
		layers:    layers,
		watermark: watermark,
	}
}

// SetOverlay swaps the overlay image, used when a retried asset load resolves
// mid-session. Safe to call while Compose runs on another goroutine; the
// swap takes effect on the next frame.
func (p *Pipeline) SetOverlay(overlay image.Image) {
	p.mu.Lock()
	p.overlay = overlay
	p.mu.Unlock()
}

// FrameBytes returns the raw RGBA size of one input frame, which matches the
// output surface because capture already letterboxes to it.
func (p *Pipeline) FrameBytes() int {
	w, h := p.comp.Size()
	return w * h * 4
}

// Compose renders one output frame from raw RGBA input bytes. The returned
// image is reused across calls.
func (p *Pipeline) Compose(raw []byte) *image.RGBA {
	w, h := p.comp.Size()

	var src image.Image
	if len(raw) >= w*h*4 {
		src = &image.RGBA{Pix: raw, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	}

	p.mu.Lock()
	overlay := p.overlay
	p.mu.Unlock()

	out := p.comp.Frame(src, overlay)
	compose.DrawTextLayers(out, p.layers, compose.DesignWidth, compose.DesignHeight)
	if p.watermark != "" {
		compose.DrawWatermark(out, p.watermark)
	}
	return out
}

// Export drains src frame by frame, composites each one, and writes the
// result to sink. It returns the number of frames written. Termination is
// driven by the source: a clean EOF on a frame boundary ends the export, a
// partial frame is an error. ctx cancellation aborts between frames.
func Export(ctx context.Context, src io.Reader, p *Pipeline, sink FrameSink) (int, error) {
	frame := make([]byte, p.FrameBytes())
	frames := 0

	for {
		select {
		case <-ctx.Done():
			return frames, ctx.Err()
		default:
		}

		_, err := io.ReadFull(src, frame)
		if err == io.EOF {
			return frames, nil
		}
		if err == io.ErrUnexpectedEOF {
			return frames, fmt.Errorf("truncated frame after %d complete frames", frames)
		}
		if err != nil {
			return frames, fmt.Errorf("reading frame %d: %w", frames, err)
		}

		out := p.Compose(frame)
		if err := sink.WriteFrame(out.Pix); err != nil {
			return frames, fmt.Errorf("writing frame %d: %w", frames, err)
		}
		frames++
	}
}

// Preview consumes a live source and invokes fn at the tick cadence with the
// newest composited frame. Frames arriving between ticks replace each other
// rather than queueing, so a slow consumer sees fresh video, not a backlog.
type Preview struct {
	p   *Pipeline
	src io.Reader

	mu     sync.Mutex
	latest []byte
	seq    uint64
	shown  uint64
}

// NewPreview wires a pipeline to a live frame source.
func NewPreview(p *Pipeline, src io.Reader) *Preview {
	return &Preview{p: p, src: src}
}

// Run blocks until ctx is cancelled or the source ends. fn is called from
// Run's goroutine, never concurrently with itself.
func (pv *Preview) Run(ctx context.Context, fps int, fn func(*image.RGBA)) error {
	if fps <= 0 {
		fps = 30
	}

	done := make(chan error, 1)
	go pv.pump(done)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		case <-ticker.C:
			if frame, ok := pv.take(); ok {
				fn(pv.p.Compose(frame))
			}
		}
	}
}

// pump reads frames as fast as the source produces them, keeping only the
// newest one.
func (pv *Preview) pump(done chan<- error) {
	size := pv.p.FrameBytes()
	buf := make([]byte, size)

	for {
		_, err := io.ReadFull(pv.src, buf)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				done <- nil
			} else {
				done <- err
			}
			return
		}

		pv.mu.Lock()
		if pv.latest == nil {
			pv.latest = make([]byte, size)
		}
		copy(pv.latest, buf)
		pv.seq++
		pv.mu.Unlock()
	}
}

// take returns the newest frame if one arrived since the last call.
func (pv *Preview) take() ([]byte, bool) {
	pv.mu.Lock()
	defer pv.mu.Unlock()
	if pv.seq == pv.shown || pv.latest == nil {
		return nil, false
	}
	pv.shown = pv.seq
	return pv.latest, true
}
