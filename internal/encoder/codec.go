package encoder

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// CodecOption is one codec/container combination the encoder may use.
// Preferences live in an ordered list so adding a new combination is a data
// change, not a new branch in the negotiation logic.
type CodecOption struct {
	Name       string
	VideoCodec string
	AudioCodec string
	Container  string
	MIMEType   string
}

// DefaultFallbacks is the ordered codec preference list: most desirable
// first, walked until the platform supports both halves of a pair.
var DefaultFallbacks = []CodecOption{
	{Name: "h264/aac", VideoCodec: "libx264", AudioCodec: "aac", Container: "mp4", MIMEType: "video/mp4"},
	{Name: "vp9/opus", VideoCodec: "libvpx-vp9", AudioCodec: "libopus", Container: "webm", MIMEType: "video/webm"},
	{Name: "mpeg4/aac", VideoCodec: "mpeg4", AudioCodec: "aac", Container: "mp4", MIMEType: "video/mp4"},
}

// Prober reports whether this ffmpeg build provides a named encoder.
type Prober interface {
	Supports(encoder string) bool
}

// SelectCodec walks the ordered fallback list and returns the first option
// whose video and audio encoders are both available. It fails only after the
// whole list is exhausted.
func SelectCodec(p Prober, options []CodecOption) (CodecOption, error) {
	for _, opt := range options {
		if p.Supports(opt.VideoCodec) && p.Supports(opt.AudioCodec) {
			return opt, nil
		}
	}
	return CodecOption{}, fmt.Errorf("no supported codec combination among %d candidates", len(options))
}

// FFmpegProber inspects `ffmpeg -encoders` output once and answers support
// queries from the cached inventory.
type FFmpegProber struct {
	once sync.Once
	set  map[string]bool
}

// NewFFmpegProber creates a lazy prober against the system ffmpeg.
func NewFFmpegProber() *FFmpegProber {
	return &FFmpegProber{}
}

// Supports reports whether ffmpeg lists the encoder.
func (p *FFmpegProber) Supports(encoder string) bool {
	p.once.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
		if err != nil {
			p.set = map[string]bool{}
			return
		}
		p.set = parseEncoderList(out)
	})
	return p.set[encoder]
}

// parseEncoderList extracts encoder names from `ffmpeg -encoders` output.
// Lines look like " V....D libx264              libx264 H.264 ...".
func parseEncoderList(out []byte) map[string]bool {
	set := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))

	inList := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "------") {
			inList = true
			continue
		}
		if !inList {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 2 {
			set[fields[1]] = true
		}
	}

	return set
}
