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
	"context"
	"fmt"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/common/interrupt"
	"github.com/Fantom-foundation/Warp/logging"
	"github.com/Fantom-foundation/Warp/rlp"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const accountsPerProgressReport = 100_000

// Subpart selects the accounts whose hash starts with a byte in the range
// assigned to part Index out of Count equally sized parts.
type Subpart struct {
	Index int
	Count int
}

// Range returns the key range of the account trie covered by this part.
func (p Subpart) Range() *util.Range {
	if p.Count <= 1 {
		return nil
	}
	res := &util.Range{Start: []byte{byte(p.Index * 256 / p.Count)}}
	if p.Index < p.Count-1 {
		res.Limit = []byte{byte((p.Index + 1) * 256 / p.Count)}
	}
	return res
}

// StateChunker groups the entries of the accounts of a state, or a subpart of
// it, into chunks. Chunks are snappy compressed RLP lists of entries, filled
// up to the preferred chunk size and handed to the writer in order.
type StateChunker struct {
	state    StateReader
	writer   Writer
	config   Config
	progress *Progress
	log      *logging.Logger

	iter     iterator.Iterator
	usedCode mapset.Set[common.Hash]
	tracker  *logging.ProgressLogger
	entries  [][]byte
	size     int
	pending  []common.Hash
	hashes   []common.Hash
	finished bool
}

// NewStateChunker creates a chunker for the accounts of the given part of the
// state. The chunker must be closed after use.
func NewStateChunker(state StateReader, writer Writer, part Subpart, config Config, progress *Progress, log *logging.Logger) *StateChunker {
	if progress == nil {
		progress = &Progress{}
	}
	return &StateChunker{
		state:    state,
		writer:   writer,
		config:   config,
		progress: progress,
		log:      log,
		iter:     state.AccountTrie().NewIterator(part.Range()),
		usedCode: mapset.NewThreadUnsafeSet[common.Hash](),
		tracker:  log.NewProgressLogger("accounts chunked", accountsPerProgressReport),
	}
}

// NextChunk encodes accounts until the next chunk is complete and returns its
// hash. The flag is false once all accounts have been chunked.
func (c *StateChunker) NextChunk(ctx context.Context) (common.Hash, bool, error) {
	for len(c.pending) == 0 {
		if c.finished {
			return common.Hash{}, false, nil
		}
		if err := c.step(ctx); err != nil {
			return common.Hash{}, false, err
		}
	}
	hash := c.pending[0]
	c.pending = c.pending[1:]
	return hash, true, nil
}

// ChunkState chunks all remaining accounts and returns the hashes of all
// chunks written by this chunker in order.
func (c *StateChunker) ChunkState(ctx context.Context) ([]common.Hash, error) {
	for {
		_, more, err := c.NextChunk(ctx)
		if err != nil {
			return nil, err
		}
		if !more {
			return c.hashes, nil
		}
	}
}

// Close releases the resources held by the chunker.
func (c *StateChunker) Close() {
	c.iter.Release()
}

// step encodes the next account, flushing the last chunk once all accounts
// are done.
func (c *StateChunker) step(ctx context.Context) error {
	if interrupt.IsCancelled(ctx) {
		return ErrSnapshotAborted
	}
	if !c.iter.Next() {
		if err := c.iter.Error(); err != nil {
			return err
		}
		c.finished = true
		return c.writeChunk()
	}

	accountHash, err := common.BytesToHash(c.iter.Key())
	if err != nil {
		return fmt.Errorf("invalid account key: %w", err)
	}
	account, err := DecodeAccount(c.iter.Value())
	if err != nil {
		return fmt.Errorf("invalid account %v: %w", accountHash, err)
	}

	entries, err := ToFatRLPs(ctx, accountHash, &account, c.state, c.usedCode,
		c.config.PreferredChunkSize-c.size, c.config.PreferredChunkSize, c.log)
	if err != nil {
		return err
	}
	for i, entry := range entries {
		if i > 0 {
			if err := c.writeChunk(); err != nil {
				return err
			}
		}
		if len(entry) > 0 {
			c.push(entry)
		}
	}
	c.progress.accounts.Add(1)
	c.tracker.Step(1)
	accountsChunked.Inc()
	return nil
}

func (c *StateChunker) push(entry []byte) {
	c.size += len(entry)
	c.entries = append(c.entries, entry)
}

// writeChunk compresses and writes the collected entries as a chunk. Nothing
// is written if there are no entries.
func (c *StateChunker) writeChunk() error {
	if len(c.entries) == 0 {
		return nil
	}
	items := make([]rlp.Item, len(c.entries))
	for i, entry := range c.entries {
		items[i] = rlp.Encoded{Data: entry}
	}
	compressed := snappy.Encode(nil, rlp.Encode(rlp.List{Items: items}))
	hash, err := c.writer.Write(compressed)
	if err != nil {
		return err
	}
	c.log.Debug("wrote state chunk",
		zap.Stringer("hash", hash),
		zap.Int("entries", len(c.entries)),
		zap.Int("size", c.size),
		zap.Int("compressed", len(compressed)),
	)
	c.pending = append(c.pending, hash)
	c.hashes = append(c.hashes, hash)
	c.entries = c.entries[:0]
	c.size = 0
	c.progress.size.Add(uint64(len(compressed)))
	chunksWritten.Inc()
	chunkBytesWritten.Add(float64(len(compressed)))
	return nil
}

// ChunkStateParallel chunks the given state split into config.Subparts parts
// processed by up to config.Parallelism goroutines. Each part deduplicates
// codes on its own. The resulting hashes are ordered by part.
func ChunkStateParallel(ctx context.Context, state StateReader, writer Writer, config Config, progress *Progress, log *logging.Logger) ([]common.Hash, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	results := make([][]common.Hash, config.Subparts)
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(config.Parallelism)
	for i := 0; i < config.Subparts; i++ {
		i := i
		group.Go(func() error {
			part := Subpart{Index: i, Count: config.Subparts}
			chunker := NewStateChunker(state, writer, part, config, progress, log.With(zap.Int("part", i)))
			defer chunker.Close()
			hashes, err := chunker.ChunkState(ctx)
			if err != nil {
				return err
			}
			results[i] = hashes
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	res := []common.Hash{}
	for _, hashes := range results {
		res = append(res, hashes...)
	}
	return res, nil
}

// BlockInfo identifies the block a snapshot is taken at.
type BlockInfo struct {
	Number uint64
	Hash   common.Hash
}

// TakeSnapshot writes a complete snapshot of the given state: the state
// chunks, the block chunks if a block chunker is given, and finally the
// manifest binding them to the state root and block. Failures, including
// cancellation, are also recorded in the progress.
func TakeSnapshot(
	ctx context.Context,
	state StateReader,
	block BlockInfo,
	blocks BlockChunker,
	writer Writer,
	config Config,
	progress *Progress,
	log *logging.Logger,
) (_ ManifestData, err error) {
	if progress == nil {
		progress = &Progress{}
	}
	defer func() {
		if err != nil {
			progress.fail(err)
		}
	}()
	log = log.Named("snapshot")
	root, err := state.AccountTrie().Hash()
	if err != nil {
		return ManifestData{}, err
	}
	log.Info("taking snapshot", zap.Uint64("block", block.Number), zap.Stringer("root", root))

	stateHashes, err := ChunkStateParallel(ctx, state, writer, config, progress, log)
	if err != nil {
		return ManifestData{}, err
	}

	blockHashes := []common.Hash{}
	if blocks != nil {
		if blockHashes, err = blocks.ChunkBlocks(ctx, writer, progress); err != nil {
			return ManifestData{}, err
		}
	}

	manifest := ManifestData{
		Version:     ManifestVersion,
		StateHashes: stateHashes,
		BlockHashes: blockHashes,
		StateRoot:   root,
		BlockNumber: block.Number,
		BlockHash:   block.Hash,
	}
	if err := writer.Finish(manifest); err != nil {
		return ManifestData{}, err
	}
	progress.done.Store(true)
	log.Info("snapshot complete",
		zap.Int("state_chunks", len(stateHashes)),
		zap.Int("block_chunks", len(blockHashes)),
		zap.Stringer("progress", progress),
	)
	return manifest, nil
}
