// Package sqlitepath resolves the transcript database used by the commands
// that read or write an on-disk DAG.
package sqlitepath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFile is the database looked for when nothing else is configured.
const DefaultFile = "parley.db"

// ErrNoDatabase is returned when no database path is given and the default
// database does not exist.
var ErrNoDatabase = errors.New("no transcript database configured; pass --sqlite or set storage.sqlite")

// ResolveSQLitePath returns the first non-empty of flagPath and configPath,
// or ~/.parley/parley.db when that file exists.
func ResolveSQLitePath(flagPath, configPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if configPath != "" {
		return configPath, nil
	}

	p, err := DefaultPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoDatabase
		}
		return "", fmt.Errorf("checking %s: %w", p, err)
	}
	return p, nil
}

// DefaultPath returns ~/.parley/parley.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".parley", DefaultFile), nil
}
