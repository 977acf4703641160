package render

import "math"

// OrbitControls rotates and dollies a camera around a target with optional
// damping, so motion eases out over several Update calls.
type OrbitControls struct {
	Camera        *Camera
	Target        Vec3
	EnableDamping bool
	DampingFactor float64
	MinDistance   float64
	MaxDistance   float64

	deltaTheta float64
	deltaPhi   float64
	dolly      float64
}

// NewOrbitControls creates damped controls for camera.
func NewOrbitControls(camera *Camera) *OrbitControls {
	return &OrbitControls{
		Camera:        camera,
		Target:        camera.Target,
		EnableDamping: true,
		DampingFactor: 0.05,
		MinDistance:   0.5,
		MaxDistance:   1000,
		dolly:         1,
	}
}

// Rotate queues a rotation in radians (azimuth, polar).
func (o *OrbitControls) Rotate(theta, phi float64) {
	o.deltaTheta -= theta
	o.deltaPhi -= phi
}

// Dolly queues a distance scale; >1 moves away, <1 moves closer.
func (o *OrbitControls) Dolly(scale float64) {
	if scale > 0 {
		o.dolly *= scale
	}
}

// Update applies pending motion and reports whether the camera moved.
func (o *OrbitControls) Update() bool {
	offset := o.Camera.Position.Sub(o.Target)
	radius := offset.Len()
	if radius == 0 {
		return false
	}

	theta := math.Atan2(offset.X(), offset.Z())
	phi := math.Acos(math.Max(-1, math.Min(1, offset.Y()/radius)))

	factor := 1.0
	if o.EnableDamping {
		factor = o.DampingFactor
	}

	theta += o.deltaTheta * factor
	phi += o.deltaPhi * factor
	phi = math.Max(1e-6, math.Min(math.Pi-1e-6, phi))

	scale := 1 + (o.dolly-1)*factor
	radius = math.Max(o.MinDistance, math.Min(o.MaxDistance, radius*scale))

	sp, cp := math.Sincos(phi)
	st, ct := math.Sincos(theta)
	next := o.Target.Add(V3(radius*sp*st, radius*cp, radius*sp*ct))

	moved := next.Sub(o.Camera.Position).Len() > 1e-9
	o.Camera.Position = next
	o.Camera.Target = o.Target

	if o.EnableDamping {
		o.deltaTheta *= 1 - o.DampingFactor
		o.deltaPhi *= 1 - o.DampingFactor
		o.dolly = 1 + (o.dolly-1)*(1-o.DampingFactor)
	} else {
		o.deltaTheta, o.deltaPhi, o.dolly = 0, 0, 1
	}
	return moved
}

// SetDistance places the camera d units from the target, keeping the current
// viewing direction, and drops any pending dolly.
func (o *OrbitControls) SetDistance(d float64) {
	dir := normalize(o.Camera.Position.Sub(o.Target))
	if dir.LenSqr() == 0 {
		dir = V3(0, 0, 1)
	}
	o.Camera.Position = o.Target.Add(dir.Mul(d))
	o.Camera.Target = o.Target
	o.dolly = 1
}

// Distance returns the camera's distance from the target.
func (o *OrbitControls) Distance() float64 {
	return o.Camera.Position.Sub(o.Target).Len()
}
