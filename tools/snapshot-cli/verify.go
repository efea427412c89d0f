package main

import (
	"fmt"

	"github.com/Fantom-foundation/Warp/common"
	"github.com/Fantom-foundation/Warp/snapshot"
	"github.com/golang/snappy"
	"github.com/urfave/cli/v2"
)

var verifyCommand = cli.Command{
	Action: verify,
	Name:   "verify",
	Usage:  "checks that all chunks of a snapshot are present and match their hashes",
	Flags: []cli.Flag{
		&snapshotDirFlag,
		&configFlag,
	},
}

func verify(ctx *cli.Context) error {
	config, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	reader, err := openSnapshot(ctx)
	if err != nil {
		return err
	}
	manifest := reader.Manifest()

	failures := 0
	check := func(kind snapshot.ChunkKind, hash common.Hash) {
		if err := verifyChunk(reader, hash, config.MaxChunkSize); err != nil {
			fmt.Printf("Invalid %v chunk %v: %v\n", kind, hash, err)
			failures++
		}
	}
	for _, hash := range manifest.StateHashes {
		check(snapshot.StateChunk, hash)
	}
	for _, hash := range manifest.BlockHashes {
		check(snapshot.BlockChunk, hash)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d chunks are invalid", failures, manifest.TotalChunks())
	}
	fmt.Printf("All %d chunks are valid\n", manifest.TotalChunks())
	return nil
}

func verifyChunk(reader snapshot.Reader, hash common.Hash, maxSize int) error {
	chunk, err := reader.Chunk(hash)
	if err != nil {
		return err
	}
	if got := common.Keccak256(chunk); got != hash {
		return fmt.Errorf("%w: got %v", snapshot.ErrChunkHashMismatch, got)
	}
	size, err := snappy.DecodedLen(chunk)
	if err != nil {
		return err
	}
	if size > maxSize {
		return fmt.Errorf("%w: %d > %d", snapshot.ErrChunkTooLarge, size, maxSize)
	}
	_, err = snappy.Decode(nil, chunk)
	return err
}
