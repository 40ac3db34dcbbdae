//go:build !unix

package filelock

import "os"

// Without flock the in-process mutex in the store is the only guard.
func lock(*os.File, bool) error { return nil }

func unlock(*os.File) error { return nil }
