package tabular

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
)

// StdoutPath selects standard output as the destination
const StdoutPath = "-"

// WriteFile writes records to path atomically. With zero records nothing is
// created. Output goes to a temp file beside the target which is synced and
// renamed into place; on any failure the temp file is removed and an existing
// target is left as it was.
func WriteFile(path string, w Writer, schema flatten.Schema, records []flatten.Record) error {
	if len(records) == 0 {
		return nil
	}
	if path == StdoutPath {
		return writeStdout(w, schema, records)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.NewNotFoundError(path, "output directory does not exist", err)
	case err != nil:
		return classifyWriteError(path, "cannot access output directory", err)
	case !info.IsDir():
		return errors.NewNotFoundError(path, "output directory is not a directory", nil)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return errors.NewWriteError(path, "output path is a directory", nil)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return classifyWriteError(path, "failed to create output file", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriterSize(tmp, 64<<10)
	if err := w.Write(bw, schema, records); err != nil {
		return withPath(path, err)
	}
	if err := bw.Flush(); err != nil {
		return classifyWriteError(path, "failed to write output", err)
	}
	if err := tmp.Sync(); err != nil {
		return classifyWriteError(path, "failed to sync output", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return classifyWriteError(path, "failed to set output permissions", err)
	}
	if err := tmp.Close(); err != nil {
		return classifyWriteError(path, "failed to close output", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return classifyWriteError(path, "failed to move output into place", err)
	}
	committed = true
	return nil
}

func writeStdout(w Writer, schema flatten.Schema, records []flatten.Record) error {
	bw := bufio.NewWriter(os.Stdout)
	err := w.Write(bw, schema, records)
	if err == nil {
		err = bw.Flush()
	}
	// downstream consumers like head close early
	if err != nil && !IsBrokenPipe(err) {
		return withPath(StdoutPath, err)
	}
	return nil
}

// IsBrokenPipe reports whether err is a broken or closed pipe
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

func classifyWriteError(path, detail string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return errors.NewPermissionError(path, "permission denied writing output", err)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return errors.NewNotFoundError(path, detail, err)
	}
	return errors.NewWriteError(path, detail, err)
}

// withPath classifies a writer failure, filling in the destination when the
// writer raised a classified error without one.
func withPath(path string, err error) error {
	if ce, ok := errors.AsConversion(err); ok {
		if ce.Path == "" {
			ce.Path = path
		}
		return err
	}
	return classifyWriteError(path, "failed to write output", err)
}
