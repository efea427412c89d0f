// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package snapshot

//go:generate mockgen -source io.go -destination io_mocks.go -package snapshot

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Fantom-foundation/Warp/common"
)

const (
	// ErrNoManifest is returned when reading a snapshot lacking a manifest.
	ErrNoManifest = common.ConstError("no manifest")
	// ErrChunkNotFound is returned when requesting a chunk not in a snapshot.
	ErrChunkNotFound = common.ConstError("chunk not found")
	// ErrWriterClosed is returned when writing to a finished or closed writer.
	ErrWriterClosed = common.ConstError("snapshot writer closed")
)

const (
	// manifestFile is the name of the file holding the manifest of a loose snapshot.
	manifestFile = "MANIFEST"
	// lockFile marks a loose snapshot being written.
	lockFile = "LOCK"
)

// Writer is the sink of produced chunks. Write must be safe for concurrent use.
type Writer interface {
	// Write persists the given chunk and returns its hash.
	Write(chunk []byte) (common.Hash, error)
	// Finish completes the snapshot by writing its manifest. No more chunks
	// may be written afterwards.
	Finish(manifest ManifestData) error
}

// ChunkSource provides chunks by hash, not necessarily of a complete
// snapshot.
type ChunkSource interface {
	// Chunk returns the content of the chunk with the given hash.
	Chunk(hash common.Hash) ([]byte, error)
}

// Reader provides access to the chunks of a complete snapshot.
type Reader interface {
	ChunkSource
	Manifest() ManifestData
}

// BlockChunker produces the block chunks of a snapshot. Block data depends on
// the consensus engine and is provided by the embedding application.
type BlockChunker interface {
	ChunkBlocks(ctx context.Context, writer Writer, progress *Progress) ([]common.Hash, error)
}

// BlockRebuilder restores the block part of a snapshot. Block data depends on
// the consensus engine and is provided by the embedding application.
type BlockRebuilder interface {
	Feed(ctx context.Context, chunk []byte) error
	Finalize() error
}

// MemoryWriter keeps a snapshot in memory. Once finished, it can be read
// through its Reader methods.
type MemoryWriter struct {
	mutex    sync.Mutex
	chunks   map[common.Hash][]byte
	manifest *ManifestData
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{chunks: map[common.Hash][]byte{}}
}

func (w *MemoryWriter) Write(chunk []byte) (common.Hash, error) {
	hash := common.Keccak256(chunk)
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.manifest != nil {
		return hash, ErrWriterClosed
	}
	w.chunks[hash] = append([]byte(nil), chunk...)
	return hash, nil
}

func (w *MemoryWriter) Finish(manifest ManifestData) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.manifest != nil {
		return ErrWriterClosed
	}
	w.manifest = &manifest
	return nil
}

// Finished is true once a manifest has been written.
func (w *MemoryWriter) Finished() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.manifest != nil
}

// Manifest returns the written manifest, or an empty one if not finished.
func (w *MemoryWriter) Manifest() ManifestData {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.manifest == nil {
		return ManifestData{}
	}
	return *w.manifest
}

func (w *MemoryWriter) Chunk(hash common.Hash) ([]byte, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	chunk, found := w.chunks[hash]
	if !found {
		return nil, fmt.Errorf("%w: %v", ErrChunkNotFound, hash)
	}
	return chunk, nil
}

// NumChunks is the number of chunks written so far.
func (w *MemoryWriter) NumChunks() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return len(w.chunks)
}

// LooseWriter writes a snapshot into a directory, one file per chunk named by
// the chunk's hash plus a manifest file. The directory is locked until the
// snapshot is finished or the writer is closed.
type LooseWriter struct {
	dir  string
	lock *common.LockFile
}

// NewLooseWriter creates a writer placing files in the given directory, which
// is created if needed.
func NewLooseWriter(dir string) (*LooseWriter, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	lock, err := common.CreateLockFile(filepath.Join(dir, lockFile))
	if err != nil {
		return nil, fmt.Errorf("snapshot directory %s is in use: %w", dir, err)
	}
	return &LooseWriter{dir: dir, lock: lock}, nil
}

func chunkFileName(hash common.Hash) string {
	return hex.EncodeToString(hash[:])
}

func (w *LooseWriter) Write(chunk []byte) (common.Hash, error) {
	hash := common.Keccak256(chunk)
	if !w.lock.Valid() {
		return hash, ErrWriterClosed
	}
	return hash, writeFile(filepath.Join(w.dir, chunkFileName(hash)), chunk)
}

func (w *LooseWriter) Finish(manifest ManifestData) error {
	if !w.lock.Valid() {
		return ErrWriterClosed
	}
	data, err := manifest.Encode()
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(w.dir, manifestFile), data); err != nil {
		return err
	}
	return w.lock.Release()
}

// Close releases the directory of an unfinished snapshot. Closing a finished
// writer has no effect.
func (w *LooseWriter) Close() error {
	if !w.lock.Valid() {
		return nil
	}
	return w.lock.Release()
}

// writeFile writes data into a temporary file first so that no partially
// written files are left behind under the final name.
func writeFile(path string, data []byte) error {
	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := file.Name()
	_, err = file.Write(data)
	if err = errors.Join(err, file.Close()); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	return nil
}

// LooseReader reads a snapshot written by a LooseWriter.
type LooseReader struct {
	dir      string
	manifest ManifestData
}

// OpenLooseReader opens the snapshot in the given directory.
func OpenLooseReader(dir string) (*LooseReader, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}
	if err != nil {
		return nil, err
	}
	manifest, err := DecodeManifest(data)
	if err != nil {
		return nil, err
	}
	return &LooseReader{dir: dir, manifest: manifest}, nil
}

// OpenLooseChunks gives access to the chunks in the given directory, which
// may have been left behind by an unfinished restoration and thus lack a
// manifest.
func OpenLooseChunks(dir string) (*LooseReader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &LooseReader{dir: dir}, nil
}

func (r *LooseReader) Manifest() ManifestData {
	return r.manifest
}

func (r *LooseReader) Chunk(hash common.Hash) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, chunkFileName(hash)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", ErrChunkNotFound, hash)
	}
	return data, err
}
