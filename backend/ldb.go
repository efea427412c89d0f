// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package backend provides the key-value storage the snapshot state is kept
// in. Data of different kinds is separated into table spaces sharing a single
// LevelDB instance.
package backend

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// TableSpace divide key-value storage into spaces by adding a prefix to the key.
type TableSpace byte

const (
	// AccountTableKey is a tablespace for the leaves of the account trie
	AccountTableKey TableSpace = 'a'
	// StorageTableKey is a tablespace for storage slots, sub-divided by account hash
	StorageTableKey TableSpace = 's'
	// CodeTableKey is a tablespace for contract codes indexed by their hash
	CodeTableKey TableSpace = 'c'
	// MetadataTableKey is a tablespace for bookkeeping entries like the earliest era
	MetadataTableKey TableSpace = 'm'
)

// ErrNotFound is returned by Get if the requested key is not present.
var ErrNotFound = leveldb.ErrNotFound

// Reader is the read-only part of a Database.
type Reader interface {
	// Get gets the value for the given key. It returns ErrNotFound if the
	// DB does not contain the key. The returned slice is its own copy.
	Get(key []byte) ([]byte, error)

	// Has returns true if the DB does contain the given key.
	Has(key []byte) (bool, error)

	// NewIterator returns an iterator over the key range covered by slice.
	// A nil Range.Start is treated as a key before all keys in the DB and a
	// nil Range.Limit is treated as a key after all keys in the DB. A nil
	// slice covers everything.
	//
	// Slices returned by the iterator must not be modified and are only valid
	// until the next call moving the iterator. The iterator must be released
	// after use.
	NewIterator(slice *util.Range) iterator.Iterator
}

// Database is a key-value store with ordered iteration.
type Database interface {
	Reader

	// Put sets the value for the given key. It is safe to modify the
	// arguments after Put returns.
	Put(key, value []byte) error

	// Delete removes the given key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// NewBatch creates a batch of updates applied atomically by Write.
	NewBatch() Batch

	Close() error
}

// Batch collects updates to be written to a database at once.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	// Len is the number of recorded updates.
	Len() int
	// Write applies the recorded updates to the database.
	Write() error
	// Reset drops all recorded updates.
	Reset()
}

// LevelDB is a Database backed by a LevelDB instance.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens or creates a LevelDB instance in the given directory.
func OpenLevelDB(path string, options *opt.Options) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// NewMemoryLevelDB creates a LevelDB instance keeping all its data in memory.
func NewMemoryLevelDB() *LevelDB {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		// opening an empty in-memory storage can not fail
		panic(err)
	}
	return &LevelDB{db: db}
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	return l.db.Get(key, nil)
}

func (l *LevelDB) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *LevelDB) NewIterator(slice *util.Range) iterator.Iterator {
	return l.db.NewIterator(slice, nil)
}

func (l *LevelDB) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDB) NewBatch() Batch {
	return &levelDbBatch{db: l.db}
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}

type levelDbBatch struct {
	db    *leveldb.DB
	batch leveldb.Batch
}

func (b *levelDbBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

func (b *levelDbBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

func (b *levelDbBatch) Len() int {
	return b.batch.Len()
}

func (b *levelDbBatch) Write() error {
	return b.db.Write(&b.batch, nil)
}

func (b *levelDbBatch) Reset() {
	b.batch.Reset()
}
