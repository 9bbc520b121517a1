package bundle

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/pkg/errors"
)

// manifestPrefix marks source files that are never copied: the per-target
// manifests are merged into a single manifest.json instead.
const manifestPrefix = "manifest."

// copyTree copies the regular files under src into dest, preserving the
// directory layout. Files whose base name starts with "manifest." and files
// matching any exclude pattern (relative to src, slash separated) are
// skipped. Directories are walked concurrently.
func copyTree(src, dest string, exclude []string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "source directory %s", src)
	}
	if !info.IsDir() {
		return errors.Errorf("source %s is not a directory", src)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	return fastwalk.Walk(nil, src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		skip, err := excluded(filepath.ToSlash(rel), exclude)
		if err != nil {
			return err
		}

		target := filepath.Join(dest, rel)
		switch {
		case d.IsDir():
			if skip {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0o755)
		case skip, strings.HasPrefix(d.Name(), manifestPrefix):
			return nil
		case !d.Type().IsRegular():
			return nil
		}

		return copyFile(path, target)
	})
}

func excluded(rel string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, rel)
		if err != nil {
			return false, errors.Wrapf(err, "exclude pattern %q", p)
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

func copyFile(src, dest string) (err error) {
	// Walk order across directories is not guaranteed, so the parent may not
	// have been created yet.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "copy %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "copy %s", src)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "failed to copy file %q to %q", src, dest)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close %s", dest)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "failed to copy file %q to %q", src, dest)
	}

	return nil
}
