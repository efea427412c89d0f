// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package warpsync

//go:generate mockgen -source downloader.go -destination downloader_mocks.go -package warpsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/common/interrupt"
	"github.com/Fantom-foundation/Warp/logging"
	"github.com/Fantom-foundation/Warp/snapshot"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// ErrNoManifest is returned when downloading without an active manifest.
	ErrNoManifest = common.ConstError("no active manifest")
	// ErrKnownBadManifest is returned when restoring a manifest that failed before.
	ErrKnownBadManifest = common.ConstError("manifest is known to be bad")
	// ErrUnknownChunk is returned for downloaded chunks not accepted by the tracker.
	ErrUnknownChunk = common.ConstError("unknown chunk")
	// ErrNoPeers is returned when creating a downloader without peers.
	ErrNoPeers = common.ConstError("no peers")
)

// Peer is a source of snapshot chunks.
type Peer interface {
	ID() string
	// RequestChunk fetches the chunk with the given hash. The returned data
	// is not verified.
	RequestChunk(ctx context.Context, hash common.Hash) ([]byte, error)
}

// ChunkSink consumes downloaded chunks, typically a snapshot.Restoration.
type ChunkSink interface {
	Feed(ctx context.Context, kind snapshot.ChunkKind, hash common.Hash, chunk []byte) error
}

// Config lists the tunables of a Downloader.
type Config struct {
	// Workers is the number of chunks downloaded concurrently.
	Workers int
	// MaxRetries is the number of retries of a failed chunk request before
	// the download is abandoned.
	MaxRetries uint64
	// InitialInterval is the delay before the first retry, growing
	// exponentially up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:         8,
		MaxRetries:      5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Downloader fetches the chunks selected by a ChunkTracker from a set of
// peers. Chunks are requested concurrently but handed to the sink one at a
// time.
type Downloader struct {
	mutex   sync.Mutex
	tracker *ChunkTracker
	peers   []Peer
	config  Config
	log     *logging.Logger
}

// NewDownloader creates a downloader using the given tracker, which must not
// be used by others while the downloader is active.
func NewDownloader(tracker *ChunkTracker, peers []Peer, config Config, log *logging.Logger) (*Downloader, error) {
	if len(peers) == 0 {
		return nil, ErrNoPeers
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("number of workers must be positive, got %d", config.Workers)
	}
	return &Downloader{
		tracker: tracker,
		peers:   peers,
		config:  config,
		log:     log.Named("downloader"),
	}, nil
}

type download struct {
	kind snapshot.ChunkKind
	hash common.Hash
	data []byte
}

// Download fetches all chunks of the tracker's active manifest not yet
// completed and feeds them into the sink. If the sink fails, the manifest is
// noted as bad.
func (d *Downloader) Download(ctx context.Context, sink ChunkSink) error {
	d.mutex.Lock()
	manifestHash, active := d.tracker.SnapshotHash()
	total := d.tracker.TotalChunks()
	d.mutex.Unlock()
	if !active {
		return ErrNoManifest
	}
	d.log.Info("downloading snapshot", zap.Stringer("manifest", manifestHash), zap.Int("chunks", total))

	parent := ctx
	group, ctx := errgroup.WithContext(ctx)
	received := make(chan download)
	var workers sync.WaitGroup
	for i := 0; i < d.config.Workers; i++ {
		i := i
		workers.Add(1)
		group.Go(func() error {
			defer workers.Done()
			return d.work(ctx, i, received)
		})
	}
	go func() {
		workers.Wait()
		close(received)
	}()

	group.Go(func() error {
		progress := d.log.NewProgressLogger("chunks restored", 100)
		for chunk := range received {
			if err := sink.Feed(ctx, chunk.kind, chunk.hash, chunk.data); err != nil {
				if !errors.Is(err, snapshot.ErrRestorationAborted) {
					d.NoteBad(manifestHash)
				}
				return fmt.Errorf("failed to restore %v chunk %v: %w", chunk.kind, chunk.hash, err)
			}
			progress.Step(1)
		}
		return nil
	})

	err := group.Wait()
	if interrupt.IsCancelled(parent) {
		return snapshot.ErrRestorationAborted
	}
	if err != nil {
		return err
	}

	d.mutex.Lock()
	complete := d.tracker.IsComplete()
	done := d.tracker.DoneChunks()
	d.mutex.Unlock()
	if !complete {
		return fmt.Errorf("%w: %d of %d chunks done", snapshot.ErrRestorationIncomplete, done, total)
	}
	d.log.Info("snapshot downloaded", zap.Stringer("manifest", manifestHash))
	return nil
}

// work downloads chunks until no chunk is pending.
func (d *Downloader) work(ctx context.Context, worker int, received chan<- download) error {
	for {
		if interrupt.IsCancelled(ctx) {
			return ctx.Err()
		}
		d.mutex.Lock()
		hash, found := d.tracker.NeededChunk()
		d.mutex.Unlock()
		if !found {
			return nil
		}

		data, err := d.fetch(ctx, worker, hash)
		d.mutex.Lock()
		if err != nil {
			d.tracker.ClearChunkDownload(hash)
			d.mutex.Unlock()
			return err
		}
		kind, _, valid := d.tracker.ValidateChunk(data)
		if !valid {
			d.tracker.ClearChunkDownload(hash)
		}
		d.mutex.Unlock()
		if !valid {
			return fmt.Errorf("%w: %v", ErrUnknownChunk, hash)
		}

		chunksDownloaded.Inc()
		select {
		case received <- download{kind: kind, hash: hash, data: data}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fetch requests a chunk, rotating through the peers on failure and backing
// off between attempts. Only data matching the hash is returned.
func (d *Downloader) fetch(ctx context.Context, worker int, hash common.Hash) ([]byte, error) {
	var res []byte
	attempt := 0
	operation := func() error {
		peer := d.peers[(worker+attempt)%len(d.peers)]
		attempt++
		data, err := peer.RequestChunk(ctx, hash)
		if err == nil && common.Keccak256(data) != hash {
			err = fmt.Errorf("%w: received wrong data for %v", snapshot.ErrChunkHashMismatch, hash)
		}
		if err != nil {
			chunkRequestFailures.WithLabelValues(peer.ID()).Inc()
			d.log.Debug("chunk request failed",
				zap.String("peer", peer.ID()),
				zap.Stringer("chunk", hash),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		res = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.config.InitialInterval
	policy.MaxInterval = d.config.MaxInterval
	policy.MaxElapsedTime = 0
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, d.config.MaxRetries), ctx)); err != nil {
		return nil, fmt.Errorf("failed to download chunk %v: %w", hash, err)
	}
	return res, nil
}

// NoteBad records a manifest whose restoration failed.
func (d *Downloader) NoteBad(manifestHash common.Hash) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.tracker.NoteBad(manifestHash)
	d.log.Warn("manifest noted as bad", zap.Stringer("manifest", manifestHash))
}

// Restore downloads the snapshot described by the manifest and restores it
// into the given state. Chunks available from options.Previous are imported
// first and not downloaded again. Manifests failing restoration are noted as
// bad and not attempted again.
func (d *Downloader) Restore(ctx context.Context, manifest snapshot.ManifestData, state snapshot.StateWriter, options snapshot.RestorationOptions) error {
	manifestHash, err := manifest.Hash()
	if err != nil {
		return err
	}
	d.mutex.Lock()
	if d.tracker.IsKnownBad(manifestHash) {
		d.mutex.Unlock()
		return fmt.Errorf("%w: %v", ErrKnownBadManifest, manifestHash)
	}
	d.tracker.ResetTo(manifest, manifestHash)
	d.mutex.Unlock()

	if options.Log == nil {
		options.Log = d.log
	}
	restoration, err := snapshot.NewRestoration(manifest, state, options)
	if err != nil {
		return err
	}
	if options.Previous != nil {
		if _, err := restoration.ImportChunks(ctx, options.Previous); err != nil {
			return err
		}
		d.mutex.Lock()
		d.tracker.Initialize(restoration.CompletedChunks())
		d.mutex.Unlock()
	}
	if err := d.Download(ctx, restoration); err != nil {
		return err
	}
	if err := restoration.Finalize(); err != nil {
		d.NoteBad(manifestHash)
		return err
	}
	return nil
}
