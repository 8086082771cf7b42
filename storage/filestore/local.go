// Package filestore provides file storage backends for attachments.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/sumano/oms/core/attachment"
)

var errPathEscape = errors.New("path escapes storage root")

// Local stores files on the local filesystem under a root directory.
type Local struct {
	root string
}

var _ attachment.FileStore = (*Local)(nil)

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage root")
	}
	return &Local{root: root}, nil
}

// abs resolves path within the root, rejecting traversal outside it.
func (fs *Local) abs(path string) (string, error) {
	full := filepath.Join(fs.root, filepath.FromSlash(path))
	if full != fs.root && !strings.HasPrefix(full, fs.root+string(filepath.Separator)) {
		return "", errPathEscape
	}
	return full, nil
}

func (fs *Local) Save(ctx context.Context, path string, r io.Reader) error {
	full, err := fs.abs(path)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrap(err, "creating storage dir")
	}
	f, err := os.Create(full)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return errors.Wrap(err, "writing file")
	}
	return errors.Wrap(f.Close(), "closing file")
}

func (fs *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := fs.abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	return f, errors.Wrap(err, "opening file")
}

func (fs *Local) Move(ctx context.Context, from, to string) error {
	src, err := fs.abs(from)
	if err != nil {
		return err
	}
	dst, err := fs.abs(to)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, "creating storage dir")
	}
	return errors.Wrap(os.Rename(src, dst), "moving file")
}

func (fs *Local) Delete(ctx context.Context, path string) error {
	full, err := fs.abs(path)
	if err != nil {
		return err
	}
	if err = os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting file")
	}
	return nil
}
