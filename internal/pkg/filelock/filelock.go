// Package filelock provides an advisory lock file so the API server and the
// cardctl tool never interleave writes to the same record file.
package filelock

import (
	"fmt"
	"os"
)

// Lock is a held advisory lock.
type Lock struct {
	f *os.File
}

// Acquire blocks until the lock at path is held. shared locks may be held by
// several readers at once.
func Acquire(path string, shared bool) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lock(f, shared); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
