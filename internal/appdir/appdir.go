// Package appdir resolves the per-user directories mailcheck reads and writes.
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Name is the directory name used under every base directory.
const Name = "mailcheck"

// ConfigDir returns the OS-specific config directory for mailcheck.
// Linux: $XDG_CONFIG_HOME/mailcheck  macOS: ~/Library/Application Support/mailcheck
// Windows: %AppData%/mailcheck
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting user config dir: %w", err)
	}
	return filepath.Join(base, Name), nil
}

// ArtifactDir returns the default directory for generated download files.
// Artifacts do not outlive the process by contract, so it lives under the
// OS temp dir.
func ArtifactDir() string {
	return filepath.Join(os.TempDir(), Name)
}

// EnsureFile creates path and its parent directories if they do not exist.
// The file is created with 0600 permissions. A no-op if the file exists.
func EnsureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("creating config file: %w", err)
	}
	return f.Close()
}
