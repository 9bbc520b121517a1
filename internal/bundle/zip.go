package bundle

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"

	"github.com/romdo/extpack/internal/fsext"
)

type zipEntry struct {
	rel  string
	path string
	dir  bool
}

// zipDir archives the contents of dir (without dir itself as a top-level
// entry) into out at maximum compression. The archive is written to a
// temporary file and renamed into place. Entries are sorted so the same input
// produces the same archive layout. It returns the archive size in bytes.
func zipDir(dir, out string) (int64, error) {
	entries, err := listEntries(dir)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return 0, errors.Wrap(err, "create archive directory")
	}

	tmp := fsext.TempName(out)
	size, err := writeZip(tmp, entries)
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return 0, errors.Wrap(err, "rename archive")
	}

	return size, nil
}

func listEntries(dir string) ([]zipEntry, error) {
	var mux sync.Mutex
	var entries []zipEntry

	err := fastwalk.Walk(nil, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." || !(d.IsDir() || d.Type().IsRegular()) {
			return nil
		}

		mux.Lock()
		defer mux.Unlock()
		entries = append(entries, zipEntry{
			rel:  filepath.ToSlash(rel),
			path: path,
			dir:  d.IsDir(),
		})

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].rel < entries[j].rel
	})

	return entries, nil
}

func writeZip(path string, entries []zipEntry) (size int64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "create archive")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close archive")
		}
	}()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, e := range entries {
		if err := addEntry(zw, e); err != nil {
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(err, "finalize archive")
	}

	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat archive")
	}

	return info.Size(), nil
}

func addEntry(zw *zip.Writer, e zipEntry) error {
	info, err := os.Stat(e.path)
	if err != nil {
		return errors.Wrapf(err, "archive %s", e.rel)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Wrapf(err, "archive %s", e.rel)
	}
	hdr.Name = e.rel
	if e.dir {
		hdr.Name += "/"
		hdr.Method = zip.Store
	} else {
		hdr.Method = zip.Deflate
	}

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.Wrapf(err, "archive %s", e.rel)
	}
	if e.dir {
		return nil
	}

	in, err := os.Open(e.path)
	if err != nil {
		return errors.Wrapf(err, "archive %s", e.rel)
	}
	defer in.Close()

	if _, err := io.Copy(w, in); err != nil {
		return errors.Wrapf(err, "archive %s", e.rel)
	}

	return nil
}
