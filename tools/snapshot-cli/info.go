package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var getInfoCommand = cli.Command{
	Action: getInfo,
	Name:   "info",
	Usage:  "prints the manifest of a snapshot directory",
	Flags: []cli.Flag{
		&snapshotDirFlag,
		&verboseFlag,
	},
}

var verboseFlag = cli.BoolFlag{
	Name:  "verbose",
	Usage: "list the hashes of all chunks",
}

func getInfo(ctx *cli.Context) error {
	reader, err := openSnapshot(ctx)
	if err != nil {
		return err
	}
	manifest := reader.Manifest()
	hash, err := manifest.Hash()
	if err != nil {
		return err
	}

	fmt.Printf("Manifest hash: %v\n", hash)
	fmt.Printf("Version:       %d\n", manifest.Version)
	fmt.Printf("Block:         %d (%v)\n", manifest.BlockNumber, manifest.BlockHash)
	fmt.Printf("State root:    %v\n", manifest.StateRoot)
	fmt.Printf("State chunks:  %d\n", len(manifest.StateHashes))
	fmt.Printf("Block chunks:  %d\n", len(manifest.BlockHashes))

	if ctx.Bool(verboseFlag.Name) {
		for _, hash := range manifest.StateHashes {
			fmt.Printf("state %v\n", hash)
		}
		for _, hash := range manifest.BlockHashes {
			fmt.Printf("block %v\n", hash)
		}
	}
	return nil
}
