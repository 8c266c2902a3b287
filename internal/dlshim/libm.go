package dlshim

import "math"

// LibmModule returns a HostModule implementing the handful of libm
// entrypoints crux programs commonly declare as extern procs (§8
// scenario 2's foreign sqrt call), backed by Go's math package rather
// than a dlopen'd libm.so — see internal/ffi's doc comment on why a real
// foreign code address can't be invoked without cgo.
func LibmModule() *HostModule {
	return &HostModule{
		Procs: map[string]any{
			"sqrt":  func(x float64) float64 { return math.Sqrt(x) },
			"pow":   func(x, y float64) float64 { return math.Pow(x, y) },
			"floor": func(x float64) float64 { return math.Floor(x) },
			"ceil":  func(x float64) float64 { return math.Ceil(x) },
			"fabs":  func(x float64) float64 { return math.Abs(x) },
		},
	}
}
