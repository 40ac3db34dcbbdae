// internal/repository/photos/local_store.go
package photos

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/photo"
	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"

	"github.com/gabriel-vasile/mimetype"
)

// LocalStore keeps photos as plain files in one directory.
type LocalStore struct {
	dir string
}

var _ photo.Store = (*LocalStore)(nil)

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Storage("create upload dir", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(ctx context.Context, ref string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(ref)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return xerrors.Storage("create temp photo", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return xerrors.Storage("write photo", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return xerrors.Storage("sync photo", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return xerrors.Storage("close photo", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return xerrors.Storage("chmod photo", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return xerrors.Storage("rename photo", err)
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, *photo.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	path, err := s.path(ref)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: photo %q", xerrors.ErrNotFound, ref)
		}
		return nil, nil, xerrors.Storage("open photo", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, xerrors.Storage("stat photo", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: photo %q", xerrors.ErrNotFound, ref)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, nil, xerrors.Storage("detect photo type", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, xerrors.Storage("rewind photo", err)
	}

	return f, &photo.Object{
		Ref:         ref,
		ContentType: mt.String(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return xerrors.Storage("remove photo", err)
	}
	return nil
}

// path refuses anything that is not a bare file name inside dir.
func (s *LocalStore) path(ref string) (string, error) {
	if ref == "" || ref == "." || ref == ".." || filepath.Base(ref) != ref {
		return "", xerrors.Invalid("photo reference %q is not a plain file name", ref)
	}
	return filepath.Join(s.dir, ref), nil
}
