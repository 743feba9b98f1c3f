package cli

import (
	"math/rand/v2"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/rigfit/calibration"
	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/utils/matrix"
)

// SynthesizeAction is the corresponding action for 'synthesize'. It projects the nominal rig
// carrying the reference markers along a sweep and writes the detections to the configured file.
func SynthesizeAction(c *cli.Context) error {
	logger := newLogger(c)
	defer goutils.UncheckedErrorFunc(logger.Sync)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	variant, err := kinematics.ParseVariant(c.String(synthesizeFlagModel))
	if err != nil {
		return err
	}
	frames := c.Int(synthesizeFlagFrames)
	if frames <= 0 {
		return errors.Errorf("frames must be positive, got %d", frames)
	}
	in, err := calibration.LoadRig(cfg.Inputs)
	if err != nil {
		return err
	}
	model, err := kinematics.NewModel(variant, in.PlatformToCamera)
	if err != nil {
		return err
	}
	markers, err := kinematics.FlattenMarkers(in.ReferenceMarkers)
	if err != nil {
		return err
	}
	statics := append(model.NominalParams(), markers...)

	seed := c.Uint64(synthesizeFlagSeed)
	detections, err := calibration.SynthesizeDetections(model, in.CameraMatrix, statics,
		calibration.SweepTrajectory(frames), c.Float64(synthesizeFlagNoise), rand.NewPCG(seed, seed))
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(cfg.Inputs.Detections)); err != nil {
		return err
	}
	if err := matrix.WriteFile(cfg.Inputs.Detections, calibration.DetectionsToTable(detections)); err != nil {
		return errors.Wrap(err, "error writing detections")
	}
	logger.Infow("wrote synthetic detections", "path", cfg.Inputs.Detections, "frames", frames, "model", variant)
	printf(c.App.Writer, "wrote %d frames to %s", frames, cfg.Inputs.Detections)
	return nil
}
