// Package deliver hands a finished artifact to the user. Strategies are
// tried in a fixed order of decreasing integration: desktop open handoff,
// then a configured viewer, then a plain save into the download directory.
// Whatever happens, the artifact always ends up saved under its suggested
// filename; the strategy only decides how it is surfaced. The source file is
// released by the move.
package deliver

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/framecast/framecast/internal/models"
)

// Strategy identifies how the artifact reached the user.
type Strategy int

const (
	// StrategyHandoff opened the artifact through the OS opener.
	StrategyHandoff Strategy = iota
	// StrategyViewer opened the artifact with the configured viewer.
	StrategyViewer
	// StrategySave only placed the file in the download directory.
	StrategySave
)

func (s Strategy) String() string {
	switch s {
	case StrategyHandoff:
		return "handoff"
	case StrategyViewer:
		return "viewer"
	default:
		return "save"
	}
}

// Hooks for tests.
var (
	lookPath  = exec.LookPath
	runOpener = func(name string, args ...string) error {
		return exec.Command(name, args...).Start()
	}
)

// Options configure delivery.
type Options struct {
	DownloadDir string
	// ViewerCommand is an optional user-configured viewer binary.
	ViewerCommand string
}

// Result reports where the artifact landed and how it was surfaced.
type Result struct {
	Strategy Strategy
	Path     string
}

// openerCommand returns the platform's file opener and its leading args.
func openerCommand() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil
	case "windows":
		return "cmd", []string{"/c", "start", ""}
	default:
		return "xdg-open", nil
	}
}

// Deliver saves the artifact into the download directory under its
// suggested filename, then surfaces it with the best available strategy.
func Deliver(artifact *models.ExportArtifact, opts Options) (Result, error) {
	if opts.DownloadDir == "" {
		return Result{}, fmt.Errorf("no download directory configured")
	}

	dest := filepath.Join(opts.DownloadDir, artifact.SuggestedFilename)
	if err := moveFile(artifact.Path, dest); err != nil {
		return Result{}, fmt.Errorf("saving artifact: %w", err)
	}

	opener, openerArgs := openerCommand()
	if _, err := lookPath(opener); err == nil {
		if err := runOpener(opener, append(openerArgs, dest)...); err == nil {
			return Result{Strategy: StrategyHandoff, Path: dest}, nil
		}
	}

	if opts.ViewerCommand != "" {
		if _, err := lookPath(opts.ViewerCommand); err == nil {
			if err := runOpener(opts.ViewerCommand, dest); err == nil {
				return Result{Strategy: StrategyViewer, Path: dest}, nil
			}
		}
	}

	return Result{Strategy: StrategySave, Path: dest}, nil
}

// moveFile renames src to dest, falling back to copy and remove when the
// rename crosses filesystems.
func moveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
