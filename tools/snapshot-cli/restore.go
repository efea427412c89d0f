package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Fantom-foundation/Warp/common/interrupt"
	"github.com/Fantom-foundation/Warp/database"
	"github.com/Fantom-foundation/Warp/snapshot"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	dbTargetDirFlag = cli.StringFlag{
		Name:     "db",
		Usage:    "the LevelDB directory to restore the state into",
		Required: true,
	}
)

var restoreCommand = cli.Command{
	Action: restore,
	Name:   "restore",
	Usage:  "restores the state of a snapshot directory into a database",
	Flags: []cli.Flag{
		&snapshotDirFlag,
		&dbTargetDirFlag,
		&configFlag,
		&logLevelFlag,
		&logFormatFlag,
		&cpuProfilingFlag,
	},
}

func restore(ctx *cli.Context) (err error) {
	log, err := newLogger(ctx)
	if err != nil {
		return err
	}
	defer log.AtExit()

	profileTarget := ctx.String(cpuProfilingFlag.Name)
	if len(profileTarget) != 0 {
		if err := StartCPUProfile(profileTarget); err != nil {
			return err
		}
		defer StopCPUProfile()
	}

	config, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	reader, err := openSnapshot(ctx)
	if err != nil {
		return err
	}

	dir := ctx.String(dbTargetDirFlag.Name)
	log.Info("opening target state", zap.String("dir", dir))
	state, err := database.OpenLevelDbState(dir)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing target state", zap.String("dir", dir))
		if closeError := state.Close(); closeError != nil {
			if err == nil {
				err = closeError
			} else {
				log.Error("failure closing DB", zap.Error(closeError))
			}
		}
	}()

	manifest := reader.Manifest()
	log.Info("restoring snapshot",
		zap.Uint64("block", manifest.BlockNumber),
		zap.Stringer("root", manifest.StateRoot),
		zap.Int("chunks", manifest.TotalChunks()),
	)

	start := time.Now()
	runCtx := interrupt.Register(context.Background(), log.Logger)
	if err := snapshot.RestoreFromReader(runCtx, reader, state, snapshot.RestorationOptions{
		Config: config,
		Log:    log,
	}); err != nil {
		return err
	}

	root, err := state.StateRoot()
	if err != nil {
		return err
	}
	log.Info("restoration complete", zap.Duration("took", time.Since(start)))
	fmt.Printf("Restored state root: %v\n", root)
	return nil
}
