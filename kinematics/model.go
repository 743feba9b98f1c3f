// Package kinematics describes the helicopter rig as a serial chain platform → base → hinge →
// arm → rotors and predicts where its markers appear in the camera frame for a given set of
// structural parameters and joint angles.
package kinematics

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rigfit/spatialmath"
)

// JointCount is the number of joint angles per frame: yaw, pitch and roll.
const JointCount = 3

// Variant selects the structural parametrization of the rig.
type Variant string

const (
	// Simple has five link lengths.
	Simple Variant = "simple"
	// Generalized has eight lengths and six fixed misalignment angles.
	Generalized Variant = "generalized"
)

// Variants lists every supported variant.
func Variants() []Variant {
	return []Variant{Simple, Generalized}
}

func (v Variant) String() string {
	return string(v)
}

// ParseVariant returns the variant named by s, ignoring case.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(Variants(), v) {
		return "", errors.Errorf("unknown model variant %q, expected one of %v", s, Variants())
	}
	return v, nil
}

// Model predicts the poses of the rig frames that carry markers.
type Model interface {
	Name() string
	Variant() Variant
	// StructuralParamCount is the number of structural parameters at the head of the statics.
	StructuralParamCount() int
	// StaticParamCount is the structural count plus the marker coordinates.
	StaticParamCount() int
	// StructuralParamNames names each structural parameter in order.
	StructuralParamNames() []string
	// NominalParams returns a fresh copy of the nominal structural parameters.
	NominalParams() []float64
	PlatformToCamera() *spatialmath.Transform
	// Poses returns the rotor and arm frames in the camera frame. statics must hold at least the
	// structural parameters and angles the three joint angles.
	Poses(statics, angles []float64) (rotorsToCamera, armToCamera *spatialmath.Transform)
	// FramePoses returns every frame of the chain in the camera frame keyed by name.
	FramePoses(statics, angles []float64) map[string]*spatialmath.Transform
}

var (
	simpleNominal = []float64{0.1145, 0.325, 0.050, 0.65, 0.030}
	simpleNames   = []string{"platform_side", "hinge_height", "arm_drop", "rotor_arm_length", "rotor_drop"}

	generalizedNominal = []float64{
		0.1145, 0.1145, 0, 0.325, 0.050, 0.65, 0, 0.030,
		0, 0, 0, 0, 0, 0,
	}
	generalizedNames = []string{
		"base_x", "base_y", "hinge_x", "hinge_z", "arm_drop", "rotor_x", "rotor_y", "rotor_drop",
		"base_roll", "base_pitch", "hinge_roll", "hinge_yaw", "rotor_pitch", "rotor_yaw",
	}
)

// NewModel returns the model of the given variant mounted at platformToCamera.
func NewModel(variant Variant, platformToCamera *spatialmath.Transform) (Model, error) {
	if platformToCamera == nil {
		return nil, errors.New("model needs a platform to camera transform")
	}
	switch variant {
	case Simple:
		return &chainModel{
			variant:          Simple,
			links:            simpleLinks,
			nominal:          simpleNominal,
			names:            simpleNames,
			platformToCamera: platformToCamera,
		}, nil
	case Generalized:
		return &chainModel{
			variant:          Generalized,
			links:            generalizedLinks,
			nominal:          generalizedNominal,
			names:            generalizedNames,
			platformToCamera: platformToCamera,
		}, nil
	default:
		return nil, errors.Errorf("unknown model variant %q", variant)
	}
}

// chainModel evaluates a serial chain of links where every link's parent is the previous link.
type chainModel struct {
	variant          Variant
	links            []Link
	nominal          []float64
	names            []string
	platformToCamera *spatialmath.Transform
}

func (m *chainModel) Name() string {
	return m.variant.String() + " helicopter"
}

func (m *chainModel) Variant() Variant {
	return m.variant
}

func (m *chainModel) StructuralParamCount() int {
	return len(m.nominal)
}

func (m *chainModel) StaticParamCount() int {
	return len(m.nominal) + MarkerParamCount
}

func (m *chainModel) StructuralParamNames() []string {
	return append([]string(nil), m.names...)
}

func (m *chainModel) NominalParams() []float64 {
	return append([]float64(nil), m.nominal...)
}

func (m *chainModel) PlatformToCamera() *spatialmath.Transform {
	return m.platformToCamera
}

func (m *chainModel) Poses(statics, angles []float64) (*spatialmath.Transform, *spatialmath.Transform) {
	// the chain is platform, base, hinge, arm, rotors
	toCamera := m.platformToCamera
	var armToCamera *spatialmath.Transform
	for i := range m.links {
		toCamera = toCamera.Compose(m.links[i].Transform(statics, angles))
		if m.links[i].name == ArmFrame {
			armToCamera = toCamera
		}
	}
	return toCamera, armToCamera
}

func (m *chainModel) FramePoses(statics, angles []float64) map[string]*spatialmath.Transform {
	poses := map[string]*spatialmath.Transform{PlatformFrame: m.platformToCamera}
	for i := range m.links {
		link := &m.links[i]
		poses[link.name] = poses[link.parent].Compose(link.Transform(statics, angles))
	}
	return poses
}
