package cli

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.viam.com/rigfit/calibration"
	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/utils"
	"go.viam.com/rigfit/utils/matrix"
)

const convergencePlotFile = "convergence.png"

// OptimizeAction is the corresponding action for 'optimize'.
func OptimizeAction(c *cli.Context) error {
	logger := newLogger(c)
	defer goutils.UncheckedErrorFunc(logger.Sync)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	if models := c.StringSlice(optimizeFlagModels); len(models) != 0 {
		cfg.Models = models
	}
	if c.IsSet(optimizeFlagFrames) {
		cfg.Frames = c.Int(optimizeFlagFrames)
	}
	if c.IsSet(optimizeFlagWorkers) {
		cfg.Workers = c.Int(optimizeFlagWorkers)
	}
	if c.IsSet(optimizeFlagOutputDir) {
		cfg.Output.Directory = c.String(optimizeFlagOutputDir)
	}
	if c.Bool(optimizeFlagPlot) {
		cfg.Output.ConvergencePlot = true
	}
	if err := cfg.Validate(""); err != nil {
		return err
	}
	variants, err := cfg.Variants()
	if err != nil {
		return err
	}

	in, err := calibration.LoadInputs(cfg.Inputs)
	if err != nil {
		return err
	}
	opts := calibration.OptionsFromConfig(cfg)

	results := make([]*calibration.ModelResult, 0, len(variants))
	for _, variant := range variants {
		result, err := calibration.OptimizeModel(c.Context, logger, in, variant, opts)
		if err != nil {
			return err
		}
		results = append(results, result)
	}

	if err := ensureDir(cfg.Output.Directory); err != nil {
		return err
	}
	for _, result := range results {
		if err := writeModelResult(cfg.Output.Directory, result); err != nil {
			return err
		}
	}
	if cfg.Output.ConvergencePlot {
		if err := plotConvergence(filepath.Join(cfg.Output.Directory, convergencePlotFile), results); err != nil {
			return err
		}
	}
	printResults(c.App.Writer, results)
	return nil
}

// resultFiles returns the params and markers file paths of a variant.
func resultFiles(dir string, variant kinematics.Variant) (string, string) {
	return filepath.Join(dir, variant.String()+"_params.txt"), filepath.Join(dir, variant.String()+"_markers.txt")
}

func writeModelResult(dir string, result *calibration.ModelResult) error {
	paramsPath, markersPath := resultFiles(dir, result.Variant)
	if err := matrix.WriteVectorFile(paramsPath, result.Params); err != nil {
		return errors.Wrapf(err, "error writing %s parameters", result.Variant)
	}
	if err := matrix.WriteFile(markersPath, result.Markers); err != nil {
		return errors.Wrapf(err, "error writing %s markers", result.Variant)
	}
	return nil
}

func printResults(w io.Writer, results []*calibration.ModelResult) {
	summary := table.NewWriter()
	summary.AppendHeader(table.Row{"Model", "Frames", "Iterations", "Converged", "Cost", "RMS (px)", "Median (px)", "Max (px)"})
	for _, result := range results {
		summary.AppendRow(table.Row{
			result.Variant,
			result.Frames,
			result.Summary.Iterations,
			result.Summary.Converged,
			fmt.Sprintf("%.6g", result.Summary.Cost),
			fmt.Sprintf("%.4f", result.Stats.RMS),
			fmt.Sprintf("%.4f", result.Stats.Median),
			fmt.Sprintf("%.4f", result.Stats.Max),
		})
	}
	printf(w, "%s", summary.Render())

	for _, result := range results {
		params := table.NewWriter()
		params.SetTitle(result.Variant.String() + " parameters")
		params.AppendHeader(table.Row{"#", "Name", "Value", "Degrees"})
		for i, name := range result.ParamNames {
			degrees := ""
			if isAngleParam(name) {
				degrees = fmt.Sprintf("%.3f", utils.RadToDeg(result.Params[i]))
			}
			params.AppendRow(table.Row{i, name, fmt.Sprintf("%.6f", result.Params[i]), degrees})
		}
		printf(w, "%s", params.Render())
	}
}

// plotConvergence plots log10 of the cost at every iteration of each result.
func plotConvergence(path string, results []*calibration.ModelResult) error {
	p := plot.New()
	p.Title.Text = "Convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log10 cost"

	lines := make([]interface{}, 0, 2*len(results))
	for _, result := range results {
		history := result.Summary.History
		pts := make(plotter.XYs, len(history)+1)
		for i, info := range history {
			pts[i].X = float64(info.Iteration - 1)
			pts[i].Y = logCost(info.Cost)
		}
		pts[len(history)].X = float64(len(history))
		pts[len(history)].Y = logCost(result.Summary.Cost)
		lines = append(lines, result.Variant.String(), pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return errors.Wrap(err, "error building convergence plot")
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "error saving convergence plot to %s", path)
	}
	return nil
}

// isAngleParam reports whether a structural parameter is a misalignment angle in radians.
func isAngleParam(name string) bool {
	for _, suffix := range []string{"_roll", "_pitch", "_yaw"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func logCost(cost float64) float64 {
	return math.Log10(math.Max(cost, math.SmallestNonzeroFloat64))
}
