// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package backend

import (
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// clearBatchSize is the number of deletions collected before being flushed.
const clearBatchSize = 1024

// Table is a view on a database restricted to keys with a common prefix. Keys
// passed to and returned by a table do not include the prefix.
type Table struct {
	db     Database
	prefix []byte
}

// NewTable creates a view on the given table space. Additional bytes may be
// used to further sub-divide the space.
func NewTable(db Database, space TableSpace, sub ...byte) *Table {
	prefix := make([]byte, 0, len(sub)+1)
	prefix = append(prefix, byte(space))
	prefix = append(prefix, sub...)
	return &Table{db: db, prefix: prefix}
}

func (t *Table) key(key []byte) []byte {
	res := make([]byte, 0, len(t.prefix)+len(key))
	res = append(res, t.prefix...)
	return append(res, key...)
}

func (t *Table) Get(key []byte) ([]byte, error) {
	return t.db.Get(t.key(key))
}

func (t *Table) Has(key []byte) (bool, error) {
	return t.db.Has(t.key(key))
}

func (t *Table) Put(key, value []byte) error {
	return t.db.Put(t.key(key), value)
}

func (t *Table) Delete(key []byte) error {
	return t.db.Delete(t.key(key))
}

// NewIterator iterates over the given key range of this table.
func (t *Table) NewIterator(slice *util.Range) iterator.Iterator {
	full := util.BytesPrefix(t.prefix)
	if slice != nil {
		if slice.Start != nil {
			full.Start = t.key(slice.Start)
		}
		if slice.Limit != nil {
			full.Limit = t.key(slice.Limit)
		}
	}
	return &tableIterator{Iterator: t.db.NewIterator(full), table: t}
}

func (t *Table) NewBatch() Batch {
	return &tableBatch{Batch: t.db.NewBatch(), table: t}
}

// Close is a no-op, the underlying database is owned by the caller.
func (t *Table) Close() error {
	return nil
}

// Clear deletes all entries of the table.
func (t *Table) Clear() error {
	return Clear(t.db, t.prefix)
}

// Clear deletes all keys of the database starting with the given prefix.
func Clear(db Database, prefix []byte) error {
	iter := db.NewIterator(util.BytesPrefix(prefix))
	defer iter.Release()
	batch := db.NewBatch()
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
		if batch.Len() >= clearBatchSize {
			if err := batch.Write(); err != nil {
				return err
			}
			batch.Reset()
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}
	return batch.Write()
}

type tableIterator struct {
	iterator.Iterator
	table *Table
}

func (i *tableIterator) Key() []byte {
	key := i.Iterator.Key()
	if key == nil {
		return nil
	}
	return key[len(i.table.prefix):]
}

func (i *tableIterator) Seek(key []byte) bool {
	return i.Iterator.Seek(i.table.key(key))
}

type tableBatch struct {
	Batch
	table *Table
}

func (b *tableBatch) Put(key, value []byte) {
	b.Batch.Put(b.table.key(key), value)
}

func (b *tableBatch) Delete(key []byte) {
	b.Batch.Delete(b.table.key(key))
}
