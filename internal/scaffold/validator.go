package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/sixhat/internal/config"
)

// CheckExisting fails if dir already holds a sixhat.yml.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.DefaultPath)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("already initialized\n\nFound existing: %s\n\nUse 'sixhat init --force' to overwrite it", path)
	}
	return nil
}
