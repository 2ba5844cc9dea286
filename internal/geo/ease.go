package geo

// EaseOutQuad decelerates towards the end of the leg.
// Inputs outside [0,1] are clamped.
func EaseOutQuad(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return 1 - (1-t)*(1-t)
}
