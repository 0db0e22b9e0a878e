package capture

import (
	"encoding/json"
	"fmt"
	"os/exec"
)

// MediaInfo contains the intrinsic properties of a media file.
type MediaInfo struct {
	Width    int
	Height   int
	FPS      float64
	Duration float64
	Codec    string
	HasAudio bool
}

// probeMedia reads media metadata via ffprobe; a var so tests can stub it.
var probeMedia = ffprobeMedia

// Probe reads the intrinsic properties of a media file.
func Probe(path string) (*MediaInfo, error) {
	return probeMedia(path)
}

func ffprobeMedia(path string) (*MediaInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "stream=codec_type,codec_name,width,height,r_frame_rate:format=duration",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to probe media: %w", err)
	}

	var probeResult struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}

	if err := json.Unmarshal(output, &probeResult); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	for _, stream := range probeResult.Streams {
		switch stream.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = stream.Width
				info.Height = stream.Height
				info.Codec = stream.CodecName

				// Frame rate is "num/den"
				var num, den int
				if _, err := fmt.Sscanf(stream.RFrameRate, "%d/%d", &num, &den); err == nil && den > 0 {
					info.FPS = float64(num) / float64(den)
				}
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("no video stream found")
	}

	if probeResult.Format.Duration != "" {
		fmt.Sscanf(probeResult.Format.Duration, "%f", &info.Duration)
	}

	return info, nil
}

// AspectRatioLabel returns a human-readable aspect ratio for the dimensions.
func AspectRatioLabel(width, height int) string {
	if width == 0 || height == 0 {
		return "unknown"
	}

	gcd := func(a, b int) int {
		for b != 0 {
			a, b = b, a%b
		}
		return a
	}

	g := gcd(width, height)

	ratio := float64(width) / float64(height)
	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	case ratio > 0.99 && ratio < 1.01:
		return "1:1"
	default:
		return fmt.Sprintf("%d:%d", width/g, height/g)
	}
}
