package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/rigfit/kinematics"
	"go.viam.com/rigfit/logging"
	"go.viam.com/rigfit/solver"
)

const sampleConfig = `{
	"inputs": {
		"camera_matrix": "K.txt",
		"platform_to_camera": "platform_to_camera.txt",
		"detections": "${RIGFIT_DATA}/detections.txt",
		"reference_markers": "/abs/markers.txt"
	},
	"models": ["simple"],
	"frames": 10,
	"workers": 2,
	"solver": {"max_iterations": 20, "tolerance": 1e-8},
	"output": {"directory": "out", "convergence_plot": true},
	"log_level": "debug"
}`

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.WARN)
	dir := t.TempDir()
	t.Setenv("RIGFIT_DATA", "data")
	path := filepath.Join(dir, "rig.json")
	test.That(t, os.WriteFile(path, []byte(sampleConfig), 0o600), test.ShouldBeNil)

	cfg, err := Read(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Inputs.CameraMatrix, test.ShouldEqual, filepath.Join(dir, "K.txt"))
	test.That(t, cfg.Inputs.Detections, test.ShouldEqual, filepath.Join(dir, "data", "detections.txt"))
	test.That(t, cfg.Inputs.ReferenceMarkers, test.ShouldEqual, "/abs/markers.txt")
	test.That(t, cfg.Inputs.HasPlatformCorners(), test.ShouldBeFalse)
	test.That(t, cfg.Output.Directory, test.ShouldEqual, filepath.Join(dir, "out"))
	test.That(t, cfg.Output.ConvergencePlot, test.ShouldBeTrue)
	test.That(t, cfg.Frames, test.ShouldEqual, 10)
	test.That(t, cfg.Workers, test.ShouldEqual, 2)
	test.That(t, cfg.LogLevel, test.ShouldEqual, logging.DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)

	variants, err := cfg.Variants()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, variants, test.ShouldResemble, []kinematics.Variant{kinematics.Simple})

	opts := cfg.SolverOptions()
	test.That(t, opts.MaxIterations, test.ShouldEqual, 20)
	test.That(t, opts.Tolerance, test.ShouldEqual, 1e-8)
	test.That(t, opts.MaxDampingRetries, test.ShouldEqual, solver.DefaultOptions().MaxDampingRetries)

	_, err = Read(context.Background(), filepath.Join(dir, "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := FromReader(context.Background(), "", strings.NewReader("{"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode Config from json")

	_, err = FromReader(context.Background(), "", strings.NewReader(`{"inputs": {}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "camera_matrix")
	test.That(t, err.Error(), test.ShouldContainSubstring, "reference_markers")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FromReader(ctx, "", strings.NewReader(sampleConfig), logger)
	test.That(t, err, test.ShouldBeError, context.Canceled)

	_, err = FromReader(context.Background(), "", strings.NewReader(`{"log_level": "loud"}`), logger)
	test.That(t, err, test.ShouldNotBeNil)

	// a quieter config level leaves the logger alone
	logger.SetLevel(logging.INFO)
	quiet := strings.Replace(sampleConfig, `"log_level": "debug"`, `"log_level": "error"`, 1)
	_, err = FromReader(context.Background(), "", strings.NewReader(quiet), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.INFO)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Inputs: InputPaths{
			CameraMatrix:     "K.txt",
			PlatformToCamera: "T.txt",
			Detections:       "d.txt",
			ReferenceMarkers: "m.txt",
		}}
	}
	test.That(t, valid().Validate("rig"), test.ShouldBeNil)

	cfg := valid()
	cfg.Models = []string{"simple", "tricopter"}
	err := cfg.Validate("rig")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "tricopter")

	cfg = valid()
	cfg.Frames = -1
	cfg.Workers = -2
	cfg.InitialAnglesDegrees = []float64{1, 2}
	cfg.Solver.Tolerance = -1
	err = cfg.Validate("rig")
	test.That(t, err, test.ShouldNotBeNil)
	for _, want := range []string{"frames", "workers", "initial_angles_degrees", "tolerance"} {
		test.That(t, err.Error(), test.ShouldContainSubstring, want)
	}

	cfg = valid()
	cfg.Inputs.PlatformCornersMetric = "corners.txt"
	err = cfg.Validate("rig")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "together")
	cfg.Inputs.PlatformCornersImage = "pixels.txt"
	test.That(t, cfg.Validate("rig"), test.ShouldBeNil)
	test.That(t, cfg.Inputs.HasPlatformCorners(), test.ShouldBeTrue)
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	variants, err := cfg.Variants()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, variants, test.ShouldResemble, kinematics.Variants())

	angles := cfg.InitialAngles()
	test.That(t, angles, test.ShouldHaveLength, 3)
	test.That(t, angles[0], test.ShouldAlmostEqual, 0.20245819323134223, 1e-12)
	test.That(t, angles[2], test.ShouldEqual, 0)

	cfg.InitialAnglesDegrees = []float64{90, 0, -90}
	angles = cfg.InitialAngles()
	test.That(t, angles[0], test.ShouldAlmostEqual, 1.5707963267948966, 1e-12)
	test.That(t, angles[2], test.ShouldAlmostEqual, -1.5707963267948966, 1e-12)

	test.That(t, cfg.SolverOptions(), test.ShouldResemble, solver.DefaultOptions())

	// nothing to resolve against
	cfg.Inputs.CameraMatrix = "K.txt"
	cfg.ResolvePaths()
	test.That(t, cfg.Inputs.CameraMatrix, test.ShouldEqual, "K.txt")
}
