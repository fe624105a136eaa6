// Package optim describes mixed-integer dispatch problems independently of
// the numerical solver. A Problem holds bounded variables, linear rows, gated
// curve bounds and a linear objective; a Solver turns it into a Solution.
package optim
