package export

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Staged is an output fully written to a temp file next to its destination.
// Nothing is visible at the destination until Commit.
type Staged struct {
	path string
	tmp  string
}

// Path returns the destination path
func (s *Staged) Path() string {
	return s.path
}

// Commit renames the staged file into place
func (s *Staged) Commit() error {
	if err := os.Rename(s.tmp, s.path); err != nil {
		os.Remove(s.tmp)
		return errors.Wrapf(err, "failed to move output into %s", s.path)
	}
	return nil
}

// Discard removes the staged file, leaving the destination untouched
func (s *Staged) Discard() {
	os.Remove(s.tmp)
}

// Stage streams write into a temp file in the destination directory and
// syncs it. On failure the temp file is removed.
func Stage(path string, write func(w io.Writer) error) (_ *Staged, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		return nil, err
	}
	if err = buf.Flush(); err != nil {
		return nil, errors.Wrap(err, "failed to flush output")
	}
	if err = tmp.Sync(); err != nil {
		return nil, errors.Wrap(err, "failed to sync output")
	}
	if err = tmp.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close output")
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return nil, errors.Wrap(err, "failed to set output permissions")
	}
	return &Staged{path: path, tmp: tmp.Name()}, nil
}

// writeFileAtomic stages the output and commits it at once. An existing
// file at path is left untouched on any failure.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	s, err := Stage(path, write)
	if err != nil {
		return err
	}
	return s.Commit()
}
