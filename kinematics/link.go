package kinematics

import (
	"go.viam.com/rigfit/spatialmath"
)

// Link is one rigid step of the serial rig chain. Its transform maps coordinates in the link's
// own frame into its parent's frame and may depend on the static parameters and on the joint
// angles of the frame being evaluated.
type Link struct {
	name      string
	parent    string
	transform func(statics, angles []float64) *spatialmath.Transform
}

// Transform returns the child to parent transform for the given parameters.
func (l *Link) Transform(statics, angles []float64) *spatialmath.Transform {
	return l.transform(statics, angles)
}

// Frame names along the rig chain.
const (
	PlatformFrame = "platform"
	BaseFrame     = "base"
	HingeFrame    = "hinge"
	ArmFrame      = "arm"
	RotorsFrame   = "rotors"
)

// simpleLinks is the chain whose only structural parameters are the five link lengths. The yaw
// joint turns about the base z axis, pitch about the hinge y axis and roll about the rotor x axis.
var simpleLinks = []Link{
	{
		name: BaseFrame, parent: PlatformFrame,
		transform: func(s, a []float64) *spatialmath.Transform {
			return spatialmath.Translate(s[0]/2, s[0]/2, 0).Compose(spatialmath.RotateZ(a[0]))
		},
	},
	{
		name: HingeFrame, parent: BaseFrame,
		transform: func(s, a []float64) *spatialmath.Transform {
			return spatialmath.Translate(0, 0, s[1]).Compose(spatialmath.RotateY(a[1]))
		},
	},
	{
		name: ArmFrame, parent: HingeFrame,
		transform: func(s, _ []float64) *spatialmath.Transform {
			return spatialmath.Translate(0, 0, -s[2])
		},
	},
	{
		name: RotorsFrame, parent: ArmFrame,
		transform: func(s, a []float64) *spatialmath.Transform {
			return spatialmath.Translate(s[3], 0, -s[4]).Compose(spatialmath.RotateX(a[2]))
		},
	},
}

// generalizedLinks adds independent x/y offsets and fixed misalignment angles to every link.
// Structural parameters are eight lengths l0..l7 followed by six angles g0..g5.
var generalizedLinks = []Link{
	{
		name: BaseFrame, parent: PlatformFrame,
		transform: func(s, a []float64) *spatialmath.Transform {
			return spatialmath.Translate(s[0]/2, s[1]/2, 0).
				Compose(spatialmath.RotateX(s[8])).
				Compose(spatialmath.RotateY(s[9])).
				Compose(spatialmath.RotateZ(a[0]))
		},
	},
	{
		name: HingeFrame, parent: BaseFrame,
		transform: func(s, a []float64) *spatialmath.Transform {
			return spatialmath.Translate(s[2], 0, s[3]).
				Compose(spatialmath.RotateX(s[10])).
				Compose(spatialmath.RotateZ(s[11])).
				Compose(spatialmath.RotateY(a[1]))
		},
	},
	{
		name: ArmFrame, parent: HingeFrame,
		transform: func(s, _ []float64) *spatialmath.Transform {
			return spatialmath.Translate(0, 0, -s[4])
		},
	},
	{
		name: RotorsFrame, parent: ArmFrame,
		transform: func(s, a []float64) *spatialmath.Transform {
			return spatialmath.Translate(s[5], s[6], -s[7]).
				Compose(spatialmath.RotateY(s[12])).
				Compose(spatialmath.RotateZ(s[13])).
				Compose(spatialmath.RotateX(a[2]))
		},
	},
}
