package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "CONDUCTOR"

var (
	SelectionFile = &cli.StringFlag{
		Name:    "selection",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SELECTION"),
		Usage:   "Path to a YAML file carrying fixture/test selection flags (eg. 'selection.yaml')",
	}
	ForceAll = &cli.BoolFlag{
		Name:    "force-all",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FORCE_ALL"),
		Usage:   "Run every fixture and test, ignoring selection flags",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between suite runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_PROGRESS"),
		Usage:   "Show periodic progress updates while the suite is running",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when --show-progress is set",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	SelectionFile,
	ForceAll,
	RunInterval,
	ShowProgress,
	ProgressInterval,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
