// Package runtimectx bundles the small set of ambient values a run
// needs (environment, stdio, an HTTP client, the current time) into one
// explicit value. cmd/summarize's refresh-free subcommand is its only
// user; the orchestrator and other packages do not take it.
package runtimectx

import (
	"net/http"
	"os"
	"time"
)

// Context bundles the ambient values a run needs.
type Context struct {
	Env     map[string]string
	Stdout  *os.File
	Stderr  *os.File
	Client  *http.Client
	Now     func() time.Time
	TempDir string
}

// FromEnvironment builds a Context from the real process environment.
func FromEnvironment(tempDir string) *Context {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return &Context{
		Env:     env,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Client:  http.DefaultClient,
		Now:     time.Now,
		TempDir: tempDir,
	}
}

// IsTTY reports whether Stderr is attached to a terminal, a
// best-effort heuristic based on checking for a character device.
func (c *Context) IsTTY() bool {
	if c.Stderr == nil {
		return false
	}
	info, err := c.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
