// Package platformsvc declares the "install as a user service"
// contract: a platform-neutral description of how the daemon should
// be supervised, consumed by an OS-specific installer
// (launchd/systemd/schtasks). Only the protocol is in scope here; no
// installer that actually registers a service ships in this module —
// main.go owns the process lifecycle, something else owns getting the
// process started in the first place.
package platformsvc

import "fmt"

// Descriptor is everything an OS-specific supervisor needs to register
// summarized as a per-user service: what to run, where, and how to
// restart it.
type Descriptor struct {
	// Label is a reverse-DNS-style unique identifier
	// ("com.shaneholloman.summarized"), the form launchd and systemd
	// both expect for naming their respective unit/plist files.
	Label string

	// ExecPath is the absolute path to the summarized binary.
	ExecPath string
	// Args are passed to ExecPath verbatim, e.g. ["--port", "4173"].
	Args []string

	// WorkingDir is the directory the process runs from.
	WorkingDir string
	// Environment is injected into the child process, e.g.
	// SUMMARIZE_HOME overrides.
	Environment map[string]string

	// StdoutPath/StderrPath redirect the child's standard streams,
	// since a backgrounded service has no attached terminal.
	StdoutPath string
	StderrPath string

	// RunAtLoad starts the service immediately on registration rather
	// than waiting for the next login/boot.
	RunAtLoad bool
	// KeepAlive restarts the process if it exits non-zero.
	KeepAlive bool
}

// Validate checks the fields every supervisor needs populated,
// independent of which OS-specific installer consumes the Descriptor.
func (d Descriptor) Validate() error {
	if d.Label == "" {
		return fmt.Errorf("platformsvc: Label is required")
	}
	if d.ExecPath == "" {
		return fmt.Errorf("platformsvc: ExecPath is required")
	}
	return nil
}

// Status is the observed state of a registered service.
type Status string

const (
	StatusNotInstalled Status = "not-installed"
	StatusRunning      Status = "running"
	StatusStopped      Status = "stopped"
	StatusUnknown      Status = "unknown"
)

// Installer is implemented per-OS (launchd on macOS, systemd --user on
// Linux, schtasks on Windows) outside this module; platformsvc only
// declares the shape every implementation satisfies.
type Installer interface {
	// Install registers d as a user service, starting it immediately
	// when d.RunAtLoad is set.
	Install(d Descriptor) error
	// Uninstall stops and removes the service named by label.
	Uninstall(label string) error
	// Status reports whether label is registered and, if so, running.
	Status(label string) (Status, error)
}

// DefaultLabel is the label summarized registers itself under absent
// an explicit override.
const DefaultLabel = "com.shaneholloman.summarized"

// NewDescriptor builds the Descriptor for running execPath as the
// daemon out of homeDir, with logs under logDir.
func NewDescriptor(execPath, homeDir, logDir string, args []string) Descriptor {
	return Descriptor{
		Label:       DefaultLabel,
		ExecPath:    execPath,
		Args:        args,
		WorkingDir:  homeDir,
		StdoutPath:  logDir + "/daemon.out.log",
		StderrPath:  logDir + "/daemon.err.log",
		RunAtLoad:   true,
		KeepAlive:   true,
		Environment: map[string]string{},
	}
}
