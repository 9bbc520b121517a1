// Package fsext holds small filesystem helpers shared by the build and the
// storage code.
package fsext

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, creating parent directories as needed. Readers see either the
// old or the new content, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create parent directory")
	}

	tmp := TempName(path)
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return errors.Wrap(err, "write temporary file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename temporary file")
	}

	return nil
}

// TempName returns a unique sibling path of path for staging a write.
func TempName(path string) string {
	return path + "." + uuid.NewString() + ".tmp"
}
