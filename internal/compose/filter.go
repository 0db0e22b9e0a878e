package compose

import "fmt"

// ScalePadFilter builds the ffmpeg filter that aspect-fits a stream into the
// destination size and pads the letterbox bands with opaque black. Used on
// the capture side so raw frames arrive already letterboxed at the exact
// destination size.
func ScalePadFilter(width, height int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		width, height, width, height,
	)
}
