// Package cli contains the rigfit command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"

	optimizeFlagModels    = "model"
	optimizeFlagFrames    = "frames"
	optimizeFlagWorkers   = "workers"
	optimizeFlagOutputDir = "output-dir"
	optimizeFlagPlot      = "plot"

	platformFlagOutput = "output"

	synthesizeFlagFrames = "frames"
	synthesizeFlagNoise  = "noise"
	synthesizeFlagSeed   = "seed"
	synthesizeFlagModel  = "model"
)

var app = &cli.App{
	Name:            "rigfit",
	Usage:           "estimate the kinematic parameters of a camera observed rig",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     generalFlagConfig,
			Aliases:  []string{"c"},
			Usage:    "load configuration from `FILE`",
			Required: true,
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "optimize",
			Usage:     "fit rig models to the configured detections",
			UsageText: "rigfit --config <path> optimize [--model simple] [--frames 10]",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:  optimizeFlagModels,
					Usage: "model variants to fit, overriding the config (simple, generalized)",
				},
				&cli.IntFlag{
					Name:  optimizeFlagFrames,
					Usage: "fit only the first `N` frames, overriding the config",
				},
				&cli.IntFlag{
					Name:  optimizeFlagWorkers,
					Usage: "number of goroutines evaluating jacobians, overriding the config",
				},
				&cli.StringFlag{
					Name:  optimizeFlagOutputDir,
					Usage: "directory to write results to, overriding the config",
				},
				&cli.BoolFlag{
					Name:  optimizeFlagPlot,
					Usage: "write a convergence plot",
				},
			},
			Action: OptimizeAction,
		},
		{
			Name:      "platform-pose",
			Usage:     "estimate the platform pose from its configured corners",
			UsageText: "rigfit --config <path> platform-pose [--output <file>]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  platformFlagOutput,
					Usage: "write the refined 4x4 platform to camera transform to `FILE`",
				},
			},
			Action: PlatformPoseAction,
		},
		{
			Name:      "synthesize",
			Usage:     "write synthetic detections of the nominal rig to the configured detections file",
			UsageText: "rigfit --config <path> synthesize [--frames 50] [--noise 0.5]",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  synthesizeFlagFrames,
					Usage: "number of frames to generate",
					Value: 50,
				},
				&cli.Float64Flag{
					Name:  synthesizeFlagNoise,
					Usage: "standard deviation of the pixel noise",
				},
				&cli.Uint64Flag{
					Name:  synthesizeFlagSeed,
					Usage: "seed of the noise generator",
					Value: 1,
				},
				&cli.StringFlag{
					Name:  synthesizeFlagModel,
					Usage: "model variant generating the detections",
					Value: "simple",
				},
			},
			Action: SynthesizeAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
