package storage

// Polynomial holds coefficients lowest order first.
type Polynomial []float64

// Eval evaluates the polynomial at x using Horner's scheme.
func (p Polynomial) Eval(x float64) float64 {
	var r float64
	for i := len(p) - 1; i >= 0; i-- {
		r = r*x + p[i]
	}
	return r
}

// Order returns the polynomial order.
func (p Polynomial) Order() int { return len(p) - 1 }
