// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"errors"
	"fmt"
	"os"
)

// LockFile marks the exclusive ownership of a directory or resource by
// holding a file that only one owner can create. The file is deleted when
// the lock is released. Locks not released by a process remain in place
// after it ends.
type LockFile struct {
	path string
	file *os.File
}

// CreateLockFile atomically creates the file with the given path. It fails
// if the file exists already.
func CreateLockFile(path string) (*LockFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	return &LockFile{path: path, file: file}, nil
}

// Valid is true until the lock is released.
func (l *LockFile) Valid() bool {
	return l != nil && l.file != nil
}

// Release deletes the lock file. A lock can only be released once.
func (l *LockFile) Release() error {
	if !l.Valid() {
		return fmt.Errorf("unable to release invalid lock")
	}
	err := errors.Join(l.file.Close(), os.Remove(l.path))
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release file lock: %w", err)
	}
	return nil
}
