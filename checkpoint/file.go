package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File stores each checkpoint as a file under Dir. Writes go to a temporary file that is
// renamed into place so readers never observe a partial checkpoint.
type File struct {
	Dir string
}

func NewFile(dir string) *File {
	return &File{Dir: dir}
}

func (f *File) path(dest string) (string, error) {
	if dest == "" {
		return "", ErrEmptyDest
	}
	if filepath.IsAbs(dest) {
		return dest, nil
	}
	return filepath.Join(f.Dir, dest), nil
}

func (f *File) Write(ctx context.Context, blob []byte, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.path(dest)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create checkpoint directory, %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary checkpoint, %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write checkpoint, %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to sync checkpoint, %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close checkpoint, %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("unable to move checkpoint into place, %w", err)
	}
	return nil
}

func (f *File) Read(ctx context.Context, dest string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.path(dest)
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s, %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read checkpoint, %w", err)
	}
	return blob, nil
}

func (f *File) Close() error {
	return nil
}
