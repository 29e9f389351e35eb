// Package scriptrun runs the external tools the slides pipeline and
// extractor depend on (ffmpeg, ffprobe, yt-dlp, tesseract), capturing
// stdout/stderr and resolving each tool name through an optional
// override so tests and deployments can pin a specific binary path.
package scriptrun

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Runner executes external binaries with captured stdout/stderr.
type Runner struct {
	// BinPaths overrides the binary resolved from PATH for a given
	// tool name (e.g. {"ffmpeg": "/opt/ffmpeg/bin/ffmpeg"}).
	BinPaths map[string]string
	Logger   *logrus.Logger
}

// NewRunner builds a Runner. A nil logger falls back to logrus's
// standard logger.
func NewRunner(binPaths map[string]string, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{BinPaths: binPaths, Logger: logger}
}

func (r *Runner) resolve(tool string) string {
	if path, ok := r.BinPaths[tool]; ok && path != "" {
		return path
	}
	return tool
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Run executes tool with args, returning captured stdout/stderr. A
// non-zero exit is reported as an error wrapping the stderr content.
func (r *Runner) Run(ctx context.Context, tool string, args ...string) (Result, error) {
	const op = "scriptrun.Run"
	binary := r.resolve(tool)

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	entry := r.Logger.WithField("op", op).WithField("tool", tool).WithField("args", args)
	entry.Debug("running external tool")

	runErr := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr != nil {
		entry.WithError(runErr).WithField("stderr", stderr.String()).Warn("external tool failed")
		return result, errors.Wrapf(runErr, "%s: %s failed (stderr: %s)", op, tool, truncate(stderr.String(), 2000))
	}
	return result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("...(%d more bytes)", len(s)-max)
}
