package models

import "fmt"

// QualityTier identifies one of the fixed quality profiles the UI and the
// recording controller both reference.
type QualityTier string

const (
	Tier480p  QualityTier = "480p"
	Tier720p  QualityTier = "720p"
	Tier1080p QualityTier = "1080p"
)

// QualityProfile maps a tier to canonical dimensions and bitrates. The
// canonical resolution is landscape; Dimensions swaps width and height for
// portrait output rather than hard-coding per-orientation values.
type QualityProfile struct {
	Tier         QualityTier
	Width        int    // canonical (landscape) width
	Height       int    // canonical (landscape) height
	VideoBitrate string // ffmpeg bitrate string, e.g. "5M"
	AudioBitrate string
	Label        string
}

var qualityProfiles = []QualityProfile{
	{Tier: Tier480p, Width: 854, Height: 480, VideoBitrate: "2500k", AudioBitrate: "128k", Label: "SD"},
	{Tier: Tier720p, Width: 1280, Height: 720, VideoBitrate: "5M", AudioBitrate: "192k", Label: "HD"},
	{Tier: Tier1080p, Width: 1920, Height: 1080, VideoBitrate: "8M", AudioBitrate: "192k", Label: "Full HD"},
}

// Profiles returns the fixed quality tier table.
func Profiles() []QualityProfile {
	out := make([]QualityProfile, len(qualityProfiles))
	copy(out, qualityProfiles)
	return out
}

// ProfileFor looks up the profile for a tier.
func ProfileFor(tier QualityTier) (QualityProfile, error) {
	for _, p := range qualityProfiles {
		if p.Tier == tier {
			return p, nil
		}
	}
	return QualityProfile{}, fmt.Errorf("unknown quality tier %q", tier)
}

// Dimensions returns the output dimensions for the given orientation.
// Portrait output is an exact width/height swap of the canonical resolution.
func (p QualityProfile) Dimensions(o Orientation) (width, height int) {
	if o == Portrait {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// Resolution returns the ffmpeg WxH string for the given orientation.
func (p QualityProfile) Resolution(o Orientation) string {
	w, h := p.Dimensions(o)
	return fmt.Sprintf("%dx%d", w, h)
}
