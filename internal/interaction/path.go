package interaction

import (
	"math"

	"github.com/ghostwire/ghostwire/internal/domhost"
)

// bezierPath computes the cursor's approach path for the human-click
// pipeline (spec §4.3 step 5): a cubic Bézier with two control points
// offset perpendicular to the line, optional overshoot-then-correct
// for long drags, ease-in-out step timing, and per-step jitter.
//
// Grounded on Developer-Ujjwal-LinkedIn-Automation-Tool's
// internal/stealth/mouse.go (generateControlPoints/generateBezierPoints/
// GetPath), adapted to the exact control-point and step-count formulas
// spec §4.3 names rather than that file's own constants.
func (e *Engine) bezierPath(start, end domhost.Point) []domhost.Point {
	dx := end.X - start.X
	dy := end.Y - start.Y
	distance := math.Hypot(dx, dy)
	if distance < 1 {
		return []domhost.Point{end}
	}

	target := end
	overshoot := distance > 200
	var overshootPoint domhost.Point
	if overshoot {
		overshootDistance := math.Min(20, distance*0.06) * (0.4 + 0.6*e.rng.Float64())
		angle := math.Atan2(dy, dx)
		overshootPoint = domhost.Point{
			X: end.X + overshootDistance*math.Cos(angle),
			Y: end.Y + overshootDistance*math.Sin(angle),
		}
	} else {
		overshootPoint = end
	}

	steps := int(distance / 4)
	if steps < 15 {
		steps = 15
	}
	if steps > 100 {
		steps = 100
	}

	points := e.cubicBezier(start, overshootPoint, distance, steps)
	if overshoot {
		points = append(points, e.cubicBezier(overshootPoint, target, distance, 6)...)
	}

	for i := range points {
		t := float64(i) / float64(len(points)-1)
		amp := math.Min(distance*0.003, 1.5)
		jitter := math.Sin(math.Pi*t) * amp * (e.rng.Float64()*2 - 1)
		points[i].X += jitter
		points[i].Y += jitter
	}
	return points
}

// cubicBezier builds control points offset perpendicular to the
// start-end line by up to min(distance*0.35, 120px) and samples the
// curve at steps points (spec §4.3 step 5).
func (e *Engine) cubicBezier(start, end domhost.Point, distance float64, steps int) []domhost.Point {
	dx := end.X - start.X
	dy := end.Y - start.Y
	perpX, perpY := -dy, dx
	perpLen := math.Hypot(perpX, perpY)
	offset := math.Min(distance*0.35, 120)
	if perpLen > 0 {
		scale := offset * (0.3 + e.rng.Float64()*0.7)
		perpX = perpX / perpLen * scale
		perpY = perpY / perpLen * scale
	}
	sign := 1.0
	if e.rng.Float64() < 0.5 {
		sign = -1.0
	}
	c1 := domhost.Point{X: start.X + sign*perpX*0.4, Y: start.Y + sign*perpY*0.4}
	c2 := domhost.Point{X: end.X - sign*perpX*0.4, Y: end.Y - sign*perpY*0.4}

	out := make([]domhost.Point, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		et := easeInOutCubic(t)
		mt := 1 - et
		out[i] = domhost.Point{
			X: mt*mt*mt*start.X + 3*mt*mt*et*c1.X + 3*mt*et*et*c2.X + et*et*et*end.X,
			Y: mt*mt*mt*start.Y + 3*mt*mt*et*c1.Y + 3*mt*et*et*c2.Y + et*et*et*end.Y,
		}
	}
	return out
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// centerPointWithin returns a random point inside the element's
// centre 60% (spec §4.3 step 5).
func (e *Engine) centerPointWithin(box domhost.Rect) domhost.Point {
	marginX := box.Width * 0.2
	marginY := box.Height * 0.2
	return domhost.Point{
		X: box.X + marginX + e.rng.Float64()*(box.Width-2*marginX),
		Y: box.Y + marginY + e.rng.Float64()*(box.Height-2*marginY),
	}
}
