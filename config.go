package conductor

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fixturelab/conductor/flags"
	"github.com/fixturelab/conductor/types"
)

// Config holds the application configuration
type Config struct {
	SelectionFile    string                    // Optional YAML file carrying fixture/test selection flags
	Fixtures         []types.FixtureDescriptor // Fixture descriptors registered at startup
	ForceAll         bool                      // Run every fixture and test, ignoring selection flags
	RunInterval      time.Duration             // Interval between suite runs
	RunOnce          bool                      // Indicates if the service should exit after one suite run
	ShowProgress     bool                      // Whether to show periodic progress updates during suite execution
	ProgressInterval time.Duration             // Interval between progress updates when ShowProgress is 'true'
	Log              log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger, fixtures []types.FixtureDescriptor) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	selectionFile := ctx.String(flags.SelectionFile.Name)
	if selectionFile != "" {
		var err error
		selectionFile, err = filepath.Abs(selectionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for selection file '%s': %w", ctx.String(flags.SelectionFile.Name), err)
		}
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	return &Config{
		SelectionFile:    selectionFile,
		Fixtures:         fixtures,
		ForceAll:         ctx.Bool(flags.ForceAll.Name),
		RunInterval:      runInterval,
		RunOnce:          runOnce,
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		Log:              log,
	}, nil
}
