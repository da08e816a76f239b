package expr

import (
	"math"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// DefaultFunctions returns the plain (non path) functions available to every
// expression.
func DefaultFunctions() map[string]function.Function {
	return map[string]function.Function{
		"abs":    stdlib.AbsoluteFunc,
		"ceil":   stdlib.CeilFunc,
		"floor":  stdlib.FloorFunc,
		"int":    stdlib.IntFunc,
		"log":    stdlib.LogFunc,
		"max":    stdlib.MaxFunc,
		"min":    stdlib.MinFunc,
		"pow":    stdlib.PowFunc,
		"signum": stdlib.SignumFunc,
		"strlen": stdlib.StrlenFunc,
		"upper":  stdlib.UpperFunc,
		"lower":  stdlib.LowerFunc,
		"format": stdlib.FormatFunc,
		"length": stdlib.LengthFunc,

		"sin":  unaryMath(math.Sin),
		"cos":  unaryMath(math.Cos),
		"tan":  unaryMath(math.Tan),
		"asin": unaryMath(math.Asin),
		"acos": unaryMath(math.Acos),
		"atan": unaryMath(math.Atan),
		"sqrt": unaryMath(math.Sqrt),
		"deg":  unaryMath(func(r float64) float64 { return r * 180 / math.Pi }),
		"rad":  unaryMath(func(d float64) float64 { return d * math.Pi / 180 }),
		"rand": unaryMath(hashRand),

		"clamp": numberFunc([]string{"value", "min", "max"}, func(a []float64) float64 {
			return math.Min(math.Max(a[0], a[1]), a[2])
		}),
		"mix": numberFunc([]string{"a", "b", "t"}, func(a []float64) float64 {
			return a[0] + (a[1]-a[0])*a[2]
		}),
		"fit": numberFunc([]string{"value", "src_min", "src_max", "dest_min", "dest_max"}, fit),
	}
}

// numberFunc builds a function taking len(params) numbers and returning one.
func numberFunc(params []string, fn func([]float64) float64) function.Function {
	specs := make([]function.Parameter, len(params))
	for i, name := range params {
		specs[i] = function.Parameter{Name: name, Type: cty.Number}
	}
	return function.New(&function.Spec{
		Params: specs,
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			in := make([]float64, len(args))
			for i, a := range args {
				in[i], _ = a.AsBigFloat().Float64()
			}
			out := fn(in)
			if math.IsNaN(out) || math.IsInf(out, 0) {
				return cty.UnknownVal(cty.Number), function.NewArgErrorf(0, "result is not a finite number")
			}
			return cty.NumberFloatVal(out), nil
		},
	})
}

func unaryMath(fn func(float64) float64) function.Function {
	return numberFunc([]string{"num"}, func(a []float64) float64 { return fn(a[0]) })
}

// fit linearly maps value from [src_min, src_max] to [dest_min, dest_max],
// clamping to the source range first.
func fit(a []float64) float64 {
	v, smin, smax, dmin, dmax := a[0], a[1], a[2], a[3], a[4]
	if smin == smax {
		return dmin
	}
	lo, hi := math.Min(smin, smax), math.Max(smin, smax)
	v = math.Min(math.Max(v, lo), hi)
	return dmin + (v-smin)/(smax-smin)*(dmax-dmin)
}

// hashRand is a deterministic pseudo random number in [0, 1) for a seed.
func hashRand(seed float64) float64 {
	s := math.Sin(seed*12.9898) * 43758.5453
	return s - math.Floor(s)
}
