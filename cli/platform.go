package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/rigfit/calibration"
	"go.viam.com/rigfit/utils/matrix"
)

// PlatformPoseAction is the corresponding action for 'platform-pose'.
func PlatformPoseAction(c *cli.Context) error {
	logger := newLogger(c)
	defer goutils.UncheckedErrorFunc(logger.Sync)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	if !cfg.Inputs.HasPlatformCorners() {
		return errors.New("config does not name platform_corners_metric and platform_corners_image")
	}
	in, err := calibration.LoadRig(cfg.Inputs)
	if err != nil {
		return err
	}
	pose, err := calibration.EstimatePlatformPose(c.Context, logger, in.CameraMatrix,
		in.PlatformCornersMetric, in.PlatformCornersImage, cfg.SolverOptions())
	if err != nil {
		return err
	}

	errs := table.NewWriter()
	errs.SetTitle("reprojection error (px)")
	errs.AppendHeader(table.Row{"Corner", "H", "[R t]", "LM"})
	for i := range pose.RefinedErrors {
		errs.AppendRow(table.Row{
			i,
			fmt.Sprintf("%.4f", pose.HomographyErrors[i]),
			fmt.Sprintf("%.4f", pose.LinearErrors[i]),
			fmt.Sprintf("%.4f", pose.RefinedErrors[i]),
		})
	}
	printf(c.App.Writer, "%s", errs.Render())
	printf(c.App.Writer, "platform to camera:\n%s", pose.Refined)

	if output := c.String(platformFlagOutput); output != "" {
		if err := matrix.WriteFile(output, pose.Refined.Matrix()); err != nil {
			return errors.Wrap(err, "error writing platform pose")
		}
	}
	return nil
}
