package sim

import "math"

// collides is the axis-aligned proximity test shared by every entity kind:
// a hit requires |dZ| < zTol and |dX| < xTol simultaneously. Values at
// exactly the tolerance are misses.
func collides(objX, objZ, runnerX, runnerZ, zTol, xTol float64) bool {
	return math.Abs(objZ-runnerZ) < zTol && math.Abs(objX-runnerX) < xTol
}
