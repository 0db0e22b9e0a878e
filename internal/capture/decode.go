package capture

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/framecast/framecast/internal/compose"
)

// startDecodeCmd starts the file decode process. Hook for tests.
var startDecodeCmd = func(args []string) (*exec.Cmd, io.ReadCloser, error) {
	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, stdout, nil
}

// decodeStream is the raw frame stream of a running decode process. Closing
// it stops the decoder and reaps the process.
type decodeStream struct {
	io.Reader
	cmd       *exec.Cmd
	pipe      io.ReadCloser
	closeOnce sync.Once
}

func (d *decodeStream) Close() error {
	d.closeOnce.Do(func() {
		d.pipe.Close()
		if d.cmd.Process != nil {
			d.cmd.Process.Kill()
		}
		d.cmd.Wait()
	})
	return nil
}

// DecodeFrames decodes an upload media file to raw RGBA frames at the given
// output surface, letterboxed the same way live capture is. The stream ends
// when the file's video track does; that EOF is the export loop's stop
// condition.
func DecodeFrames(path string, width, height, fps int) (io.ReadCloser, error) {
	if fps <= 0 {
		fps = 30
	}

	args := []string{
		"-i", path,
		"-vf", compose.ScalePadFilter(width, height),
		"-r", strconv.Itoa(fps),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	}

	cmd, pipe, err := startDecodeCmd(args)
	if err != nil {
		return nil, fmt.Errorf("starting decode of %s: %w", path, err)
	}

	return &decodeStream{Reader: pipe, cmd: cmd, pipe: pipe}, nil
}
