// Package config defines the JSON run configuration of a rig fit: where the inputs live, which
// model variants to fit, the solver settings and where results go.
package config

import (
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/logging"
	"go.viam.com/rigfit/solver"
	rutils "go.viam.com/rigfit/utils"
)

// DefaultInitialAnglesDegrees seeds the per-frame trajectory estimate: yaw, pitch and roll.
var DefaultInitialAnglesDegrees = []float64{11.6, 28.9, 0}

// Config describes a complete run.
type Config struct {
	// ConfigFilePath is where the config was read from. Relative input and output paths are
	// resolved against its directory.
	ConfigFilePath string `json:"-"`

	Inputs InputPaths `json:"inputs"`
	// Models lists the variants to fit, in order. Empty means every variant.
	Models []string `json:"models,omitempty"`
	// Frames limits the fit to the first Frames detections. Zero uses every frame.
	Frames int `json:"frames,omitempty"`
	// Workers bounds the goroutines that evaluate per-frame Jacobians. Zero uses one per CPU.
	Workers int `json:"workers,omitempty"`
	// InitialAnglesDegrees seeds the trajectory estimate of the first frame.
	InitialAnglesDegrees []float64     `json:"initial_angles_degrees,omitempty"`
	Solver               solver.Options `json:"solver,omitempty"`
	Output               OutputConfig   `json:"output"`
	// LogLevel can only lower the threshold of the logger the config is read with.
	LogLevel logging.Level `json:"log_level,omitempty"`
}

// InputPaths names the whitespace separated text tables a run reads.
type InputPaths struct {
	CameraMatrix     string `json:"camera_matrix"`
	PlatformToCamera string `json:"platform_to_camera"`
	Detections       string `json:"detections"`
	ReferenceMarkers string `json:"reference_markers"`
	// The platform corners are only needed to estimate the platform pose.
	PlatformCornersMetric string `json:"platform_corners_metric,omitempty"`
	PlatformCornersImage  string `json:"platform_corners_image,omitempty"`
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Directory string `json:"directory,omitempty"`
	// ConvergencePlot additionally writes a PNG of the cost per iteration for every model.
	ConvergencePlot bool `json:"convergence_plot,omitempty"`
}

// Validate ensures all parts of the config are valid. Every problem found is reported.
func (c *Config) Validate(path string) error {
	var errs error
	errs = multierr.Append(errs, c.Inputs.Validate(joinPath(path, "inputs")))
	if _, err := c.Variants(); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(joinPath(path, "models"), err))
	}
	if c.Frames < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.Errorf("frames must be non-negative, got %d", c.Frames)))
	}
	if c.Workers < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.Errorf("workers must be non-negative, got %d", c.Workers)))
	}
	if n := len(c.InitialAnglesDegrees); n != 0 && n != kinematics.JointCount {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.Errorf("initial_angles_degrees must have %d values, got %d", kinematics.JointCount, n)))
	}
	errs = multierr.Append(errs, validateSolver(joinPath(path, "solver"), c.Solver))
	return errs
}

// Validate ensures the required inputs are named.
func (p *InputPaths) Validate(path string) error {
	var errs error
	required := []struct {
		name, value string
	}{
		{"camera_matrix", p.CameraMatrix},
		{"platform_to_camera", p.PlatformToCamera},
		{"detections", p.Detections},
		{"reference_markers", p.ReferenceMarkers},
	}
	for _, field := range required {
		if field.value == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, field.name))
		}
	}
	if (p.PlatformCornersMetric == "") != (p.PlatformCornersImage == "") {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			errors.New("platform_corners_metric and platform_corners_image must be given together")))
	}
	return errs
}

// HasPlatformCorners reports whether the inputs include platform corner correspondences.
func (p *InputPaths) HasPlatformCorners() bool {
	return p.PlatformCornersMetric != "" && p.PlatformCornersImage != ""
}

func validateSolver(path string, opts solver.Options) error {
	var errs error
	if opts.MaxIterations < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("max_iterations must be non-negative")))
	}
	if opts.Tolerance < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("tolerance must be non-negative")))
	}
	if opts.FiniteDifferenceStep < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("finite_difference_step must be non-negative")))
	}
	if opts.MaxDampingRetries < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("max_damping_retries must be non-negative")))
	}
	if opts.InitialDampingScale < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("initial_damping_scale must be non-negative")))
	}
	return errs
}

// Variants returns the parsed model variants, defaulting to every variant.
func (c *Config) Variants() ([]kinematics.Variant, error) {
	if len(c.Models) == 0 {
		return kinematics.Variants(), nil
	}
	variants := make([]kinematics.Variant, 0, len(c.Models))
	for _, name := range c.Models {
		v, err := kinematics.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// InitialAngles returns the first frame seed in radians.
func (c *Config) InitialAngles() []float64 {
	degrees := c.InitialAnglesDegrees
	if len(degrees) == 0 {
		degrees = DefaultInitialAnglesDegrees
	}
	return rutils.DegsToRads(degrees...)
}

// SolverOptions returns the solver options with defaults applied.
func (c *Config) SolverOptions() solver.Options {
	return c.Solver.WithDefaults()
}

// ResolvePaths rewrites relative input and output paths to be relative to the config file.
func (c *Config) ResolvePaths() {
	if c.ConfigFilePath == "" {
		return
	}
	base := filepath.Dir(c.ConfigFilePath)
	for _, p := range []*string{
		&c.Inputs.CameraMatrix,
		&c.Inputs.PlatformToCamera,
		&c.Inputs.Detections,
		&c.Inputs.ReferenceMarkers,
		&c.Inputs.PlatformCornersMetric,
		&c.Inputs.PlatformCornersImage,
		&c.Output.Directory,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
