package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Run with `go run ./tools/snapshot-cli`

func main() {
	app := &cli.App{
		Name:      "Warp Snapshot Toolbox",
		HelpName:  "snapshot",
		Usage:     "A set of utilities to inspect and restore state snapshots",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags:     []cli.Flag{},
		Commands: []*cli.Command{
			&getInfoCommand,
			&verifyCommand,
			&restoreCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
