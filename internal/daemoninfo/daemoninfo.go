// Package daemoninfo persists the daemon's port/token/install-timestamp
// at ~/.summarize/daemon.json, so the CLI's daemon-recovery path and
// the extension/browser client can find a running daemon without a
// discovery protocol.
package daemoninfo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Info is the persisted daemon.json shape.
type Info struct {
	Port      int       `json:"port"`
	Token     string    `json:"token"`
	InstalledAt time.Time `json:"installedAt"`
}

func path(homeDir string) string {
	return filepath.Join(homeDir, "daemon.json")
}

// Load reads daemon.json. ok is false if it doesn't exist yet.
func Load(homeDir string) (Info, bool) {
	raw, err := os.ReadFile(path(homeDir))
	if err != nil {
		return Info{}, false
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return Info{}, false
	}
	return info, true
}

// Save persists info atomically (temp file then rename).
func Save(homeDir string, info Info) error {
	raw, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("daemoninfo: marshal: %w", err)
	}
	dest := path(homeDir)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("daemoninfo: write: %w", err)
	}
	return os.Rename(tmp, dest)
}

// EnsureToken returns info's token, generating and persisting a fresh
// one the first time a daemon starts in this home directory.
func EnsureToken(homeDir string, port int) (Info, error) {
	if info, ok := Load(homeDir); ok && info.Token != "" {
		info.Port = port
		return info, Save(homeDir, info)
	}
	info := Info{Port: port, Token: uuid.New().String(), InstalledAt: time.Now()}
	return info, Save(homeDir, info)
}
