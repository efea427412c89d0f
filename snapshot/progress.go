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

import (
	"fmt"
	"sync/atomic"
)

// Progress reports on a running snapshot production. It is safe for
// concurrent use.
type Progress struct {
	accounts atomic.Uint64
	blocks   atomic.Uint64
	size     atomic.Uint64
	done     atomic.Bool
	failure  atomic.Pointer[error]
}

// Accounts is the number of accounts encoded so far.
func (p *Progress) Accounts() uint64 {
	return p.accounts.Load()
}

// Blocks is the number of blocks encoded so far.
func (p *Progress) Blocks() uint64 {
	return p.blocks.Load()
}

// Size is the compressed size of all chunks written so far.
func (p *Progress) Size() uint64 {
	return p.size.Load()
}

// Done is true once the snapshot has ended, either by writing the manifest
// or by failing. Err distinguishes the two.
func (p *Progress) Done() bool {
	return p.done.Load() || p.failure.Load() != nil
}

// Err is the reason the snapshot failed, ErrSnapshotAborted if it was
// cancelled, or nil while running and after success.
func (p *Progress) Err() error {
	if err := p.failure.Load(); err != nil {
		return *err
	}
	return nil
}

// fail records the first failure of the snapshot.
func (p *Progress) fail(err error) {
	p.failure.CompareAndSwap(nil, &err)
}

// AddBlocks records encoded blocks, to be called by block chunkers.
func (p *Progress) AddBlocks(count uint64) {
	p.blocks.Add(count)
}

func (p *Progress) String() string {
	res := fmt.Sprintf("accounts: %d, blocks: %d, bytes: %d", p.Accounts(), p.Blocks(), p.Size())
	if err := p.Err(); err != nil {
		res += fmt.Sprintf(", failed: %v", err)
	}
	return res
}
