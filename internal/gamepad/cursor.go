package gamepad

import (
	"math"

	"golang.org/x/mobile/exp/f32"
)

const (
	// DefaultSpeed is the cursor speed used when none is configured.
	DefaultSpeed = 30

	radiansPerDegree = float32(math.Pi / 180)

	// depthStep is the fraction of its distance a cursor moves per tick at
	// unit sensitivity.
	depthStep = radiansPerDegree
)

var (
	upVector    = f32.Vec4{0, 1, 0, 0}
	rightVector = f32.Vec4{1, 0, 0, 0}
)

// Sample is the analog input a controller integrates once per tick.
type Sample struct {
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Twist float32 `json:"twist"`
}

// IsZero reports whether the sample carries no displacement.
func (s Sample) IsZero() bool {
	return s.X == 0 && s.Y == 0 && s.Twist == 0
}

// Sensitivity converts a configured speed into degrees per tick.
func Sensitivity(speed float32) float32 {
	return speed / 100
}

// Shell bounds the distance of a cursor from the head.
type Shell struct {
	Near float32
	Far  float32
}

// Contains reports whether p lies within the shell. Both bounds are
// inclusive and compared on squared magnitude.
func (s Shell) Contains(p f32.Vec3) bool {
	d := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
	return d >= s.Near*s.Near && d <= s.Far*s.Far
}

// Integrate moves pos by one tick of sample s relative to the head frame.
//
// The x and y components swing the cursor around the head's up and right
// axes by a fixed angle whose direction follows atan2(y, x). The twist
// component steps the cursor radially, outward for negative twist. Each
// candidate position outside the shell is rejected and the previous
// position kept.
func Integrate(pos f32.Vec3, s Sample, head *f32.Mat4, sensitivity float32, shell Shell) f32.Vec3 {
	next := pos

	if s.X != 0 || s.Y != 0 {
		angle := math.Atan2(float64(s.Y), float64(s.X))
		dx := float32(math.Cos(angle))
		dy := float32(math.Sin(angle))

		upAxis := direction(head, upVector)
		rightAxis := direction(head, rightVector)

		candidate := rotateAbout(next, upAxis, -dx*sensitivity)
		candidate = rotateAbout(candidate, rightAxis, dy*sensitivity)
		if shell.Contains(candidate) {
			next = candidate
		}
	}

	if s.Twist != 0 {
		step := depthStep * sensitivity
		if s.Twist > 0 {
			step = -step
		}
		candidate := f32.Vec3{
			next[0] + next[0]*step,
			next[1] + next[1]*step,
			next[2] + next[2]*step,
		}
		if shell.Contains(candidate) {
			next = candidate
		}
	}

	return next
}

// direction transforms v by m and returns the normalised xyz part. The
// translation of m is ignored.
func direction(m *f32.Mat4, v f32.Vec4) f32.Vec3 {
	var out f32.Vec3
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2] + m[i][3]*v[3]
	}
	return normalize(out)
}

func normalize(v f32.Vec3) f32.Vec3 {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l == 0 {
		return v
	}
	return f32.Vec3{v[0] / l, v[1] / l, v[2] / l}
}

// rotateAbout rotates p around axis (through the origin) by deg degrees.
func rotateAbout(p f32.Vec3, axis f32.Vec3, deg float32) f32.Vec3 {
	if deg == 0 || (axis[0] == 0 && axis[1] == 0 && axis[2] == 0) {
		return p
	}
	rot := Rotation(axis, float64(deg*radiansPerDegree))

	var out f32.Vec3
	for i := 0; i < 3; i++ {
		out[i] = rot[i][0]*p[0] + rot[i][1]*p[1] + rot[i][2]*p[2] + rot[i][3]
	}
	return out
}

// Rotation returns the right-handed rotation of rad radians around axis.
// m[i][j] is row i, column j.
func Rotation(axis f32.Vec3, rad float64) f32.Mat4 {
	a := normalize(axis)
	x, y, z := float64(a[0]), float64(a[1]), float64(a[2])
	c, s := math.Cos(rad), math.Sin(rad)
	d := 1 - c

	return f32.Mat4{
		{float32(c + x*x*d), float32(x*y*d - z*s), float32(x*z*d + y*s), 0},
		{float32(y*x*d + z*s), float32(c + y*y*d), float32(y*z*d - x*s), 0},
		{float32(z*x*d - y*s), float32(z*y*d + x*s), float32(c + z*z*d), 0},
		{0, 0, 0, 1},
	}
}

// IdentityHead returns a head transform looking down -Z with Y up.
func IdentityHead() f32.Mat4 {
	var m f32.Mat4
	m.Identity()
	return m
}
