package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/Fantom-foundation/Warp/logging"
	"github.com/Fantom-foundation/Warp/snapshot"
	"github.com/urfave/cli/v2"
)

var (
	snapshotDirFlag = cli.StringFlag{
		Name:     "snapshot",
		Usage:    "the directory holding the snapshot",
		Required: true,
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "a TOML file overriding the default snapshot configuration",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "the minimum level of log messages, one of debug, info, warn, error",
		Value: "info",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Usage: "the format of log messages, either text or json",
		Value: "text",
	}
	cpuProfilingFlag = cli.StringFlag{
		Name:  "cpu-profile",
		Usage: "enable the recording of a CPU profile",
	}
)

// openSnapshot opens the loose snapshot in the directory given by the snapshot flag.
func openSnapshot(ctx *cli.Context) (*snapshot.LooseReader, error) {
	return snapshot.OpenLooseReader(ctx.String(snapshotDirFlag.Name))
}

func loadConfig(ctx *cli.Context) (snapshot.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return snapshot.DefaultConfig(), nil
	}
	return snapshot.LoadConfig(path)
}

func newLogger(ctx *cli.Context) (*logging.Logger, error) {
	level, err := logging.ParseLevel(ctx.String(logLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	var log *logging.Logger
	switch format := ctx.String(logFormatFlag.Name); format {
	case "text":
		log = logging.NewDevelopmentLogger()
	case "json":
		log = logging.NewProductionLogger()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	log.SetLevel(level)
	return log, nil
}

func StartCPUProfile(profileName string) error {
	f, err := os.Create(profileName)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %s", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return fmt.Errorf("could not start CPU profile: %s", err)
	}
	return nil
}

func StopCPUProfile() {
	pprof.StopCPUProfile()
}
